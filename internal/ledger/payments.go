package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop/internal/orders"
)

type PaymentInput struct {
	UserID string
	Method string
	Amount decimal.Decimal
	Status orders.PaymentStatus // empty means completed
}

type PaymentResult struct {
	Payment    orders.Payment  `json:"payment"`
	Balance    decimal.Decimal `json:"balance"`
	PaidOrders []string        `json:"paid_orders,omitempty"`
}

// RecordPayment appends a payment. A completed payment credits the balance
// and settles whatever pending orders it now covers, in the same unit.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (PaymentResult, error) {
	if in.UserID == "" {
		return PaymentResult{}, orders.ErrForbidden
	}
	if !in.Amount.IsPositive() {
		return PaymentResult{}, fmt.Errorf("amount must be positive: %w", orders.ErrInvalidInput)
	}
	if !in.Amount.Equal(in.Amount.Truncate(2)) {
		return PaymentResult{}, fmt.Errorf("amount %s has more than 2 decimal places: %w", in.Amount, orders.ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = orders.PaymentCompleted
	}
	if status != orders.PaymentCompleted && status != orders.PaymentPending {
		return PaymentResult{}, fmt.Errorf("new payment status %q: %w", status, orders.ErrInvalidInput)
	}

	var (
		res PaymentResult
		st  Settlement
	)
	err := s.Store.WithTx(ctx, func(tx orders.Tx) error {
		if _, err := tx.PaymentMethod(ctx, in.Method); err != nil {
			if errors.Is(err, orders.ErrNotFound) {
				return fmt.Errorf("payment method %q: %w", in.Method, orders.ErrInvalidInput)
			}
			return err
		}
		p := orders.Payment{
			UserID:        in.UserID,
			Method:        in.Method,
			TransactionID: externalID(in.UserID, s.clock()),
			Amount:        in.Amount,
			Status:        status,
		}
		if err := tx.InsertPayment(ctx, &p); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		res.Payment = p

		if status != orders.PaymentCompleted {
			prof, err := tx.LockProfile(ctx, in.UserID)
			res.Balance = prof.Balance
			return err
		}
		var err error
		st, err = s.credit(ctx, tx, in.UserID, in.Amount)
		return err
	})
	if err != nil {
		return PaymentResult{}, fmt.Errorf("payment not recorded: %w", err)
	}
	if status == orders.PaymentCompleted {
		res.Balance, res.PaidOrders = st.Balance, st.Paid
		s.Log.Info("payment completed",
			"payment_id", res.Payment.ID, "user_id", in.UserID,
			"amount", in.Amount.StringFixed(2), "balance", st.Balance.StringFixed(2))
		s.emit(ctx, s.completedEvents(res.Payment, st)...)
	}
	return res, nil
}

// CompletePayment moves a pending payment to completed and credits it.
// Any other source status is ErrInvalidState, so a payment is credited once.
func (s *Service) CompletePayment(ctx context.Context, paymentID string) (PaymentResult, error) {
	var (
		res PaymentResult
		st  Settlement
	)
	err := s.Store.WithTx(ctx, func(tx orders.Tx) error {
		p, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != orders.PaymentPending {
			return fmt.Errorf("payment is %s: %w", p.Status, orders.ErrInvalidState)
		}
		if err := tx.SetPaymentStatus(ctx, p.ID, orders.PaymentCompleted); err != nil {
			return err
		}
		p.Status = orders.PaymentCompleted
		res.Payment = p

		st, err = s.credit(ctx, tx, p.UserID, p.Amount)
		return err
	})
	if err != nil {
		return PaymentResult{}, fmt.Errorf("complete payment %s: %w", paymentID, err)
	}
	res.Balance, res.PaidOrders = st.Balance, st.Paid
	s.Log.Info("payment completed",
		"payment_id", paymentID, "user_id", res.Payment.UserID,
		"amount", res.Payment.Amount.StringFixed(2), "balance", st.Balance.StringFixed(2))
	s.emit(ctx, s.completedEvents(res.Payment, st)...)
	return res, nil
}

func (s *Service) FailPayment(ctx context.Context, paymentID string) (orders.Payment, error) {
	return s.closePayment(ctx, paymentID, orders.PaymentFailed)
}

func (s *Service) CancelPayment(ctx context.Context, paymentID string) (orders.Payment, error) {
	return s.closePayment(ctx, paymentID, orders.PaymentCanceled)
}

func (s *Service) closePayment(ctx context.Context, paymentID string, to orders.PaymentStatus) (orders.Payment, error) {
	var p orders.Payment
	err := s.Store.WithTx(ctx, func(tx orders.Tx) error {
		var err error
		if p, err = tx.LockPayment(ctx, paymentID); err != nil {
			return err
		}
		if p.Status != orders.PaymentPending {
			return fmt.Errorf("payment is %s: %w", p.Status, orders.ErrInvalidState)
		}
		p.Status = to
		return tx.SetPaymentStatus(ctx, p.ID, to)
	})
	if err != nil {
		return orders.Payment{}, fmt.Errorf("%s payment %s: %w", to, paymentID, err)
	}
	return p, nil
}

// credit adds amount to the stored balance and then lets the reconciler
// spend it on pending orders.
func (s *Service) credit(ctx context.Context, tx orders.Tx, userID string, amount decimal.Decimal) (Settlement, error) {
	prof, err := tx.LockProfile(ctx, userID)
	if err != nil {
		return Settlement{}, fmt.Errorf("lock profile: %w", err)
	}
	balance := prof.Balance.Add(amount)
	if err := tx.SetBalance(ctx, userID, balance); err != nil {
		return Settlement{}, fmt.Errorf("save balance: %w", err)
	}
	return s.Reconciler.Handle(ctx, tx, BalanceChanged{UserID: userID, Balance: balance})
}

func (s *Service) completedEvents(p orders.Payment, st Settlement) []outEvent {
	return append([]outEvent{{
		eventType: orders.EventPaymentCompleted,
		userID:    p.UserID,
		payload: orders.PaymentCompletedPayload{
			PaymentID: p.ID,
			UserID:    p.UserID,
			Amount:    p.Amount,
			Balance:   st.Balance,
		},
	}}, paidEvents(st)...)
}
