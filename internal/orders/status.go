package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCanceled  Status = "canceled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusCanceled: true},
	StatusPaid:      {StatusShipped: true, StatusCanceled: true},
	StatusShipped:   {StatusDelivered: true, StatusCanceled: true},
	StatusDelivered: {},
	StatusCanceled:  {},
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Refundable reports whether canceling an order in this status returns its
// total to the buyer's balance.
func (s Status) Refundable() bool {
	return s == StatusPaid || s == StatusShipped
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCanceled  PaymentStatus = "canceled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentCanceled:
		return true
	}
	return false
}
