package ledger

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-shop/internal/orders"
)

// UpdateShipping stores the shipping defaults used by later checkouts.
func (s *Service) UpdateShipping(ctx context.Context, userID string, sh Shipping) (orders.Profile, error) {
	sh = sh.normalize()
	if err := sh.validate(); err != nil {
		return orders.Profile{}, err
	}

	var prof orders.Profile
	err := s.Store.WithTx(ctx, func(tx orders.Tx) error {
		var err error
		if prof, err = tx.LockProfile(ctx, userID); err != nil {
			return err
		}
		prof.Phone, prof.City, prof.Address = sh.Phone, sh.City, sh.Address
		return tx.SetShipping(ctx, userID, sh.Phone, sh.City, sh.Address)
	})
	if err != nil {
		return orders.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return prof, nil
}
