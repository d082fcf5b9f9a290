package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ariefcatur/go-shop/internal/orders"
)

var phoneRe = regexp.MustCompile(`^79\d{9}$`)

type Shipping struct {
	Phone   string `json:"phone"`
	City    string `json:"city"`
	Address string `json:"address"`
}

func (sh Shipping) normalize() Shipping {
	return Shipping{
		Phone:   strings.TrimSpace(sh.Phone),
		City:    strings.TrimSpace(sh.City),
		Address: strings.TrimSpace(sh.Address),
	}
}

// withDefaults fills blank fields from the stored profile.
func (sh Shipping) withDefaults(p orders.Profile) Shipping {
	if sh.Phone == "" {
		sh.Phone = p.Phone
	}
	if sh.City == "" {
		sh.City = p.City
	}
	if sh.Address == "" {
		sh.Address = p.Address
	}
	return sh
}

func (sh Shipping) validate() error {
	switch {
	case !phoneRe.MatchString(sh.Phone):
		return fmt.Errorf("phone must start with 79 and have 11 digits: %w", orders.ErrInvalidInput)
	case sh.City == "" || utf8.RuneCountInString(sh.City) > 100:
		return fmt.Errorf("city is required, max 100 characters: %w", orders.ErrInvalidInput)
	case sh.Address == "" || utf8.RuneCountInString(sh.Address) > 300:
		return fmt.Errorf("address is required, max 300 characters: %w", orders.ErrInvalidInput)
	}
	return nil
}
