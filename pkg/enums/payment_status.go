package enums

import (
	"fmt"
	"strings"
)

// PaymentStatus is set by an admin; no gateway reports it.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return member(p, paymentStatuses) }

// ParsePaymentStatus folds case and surrounding space, so " PAID " parses as paid.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	status, err := parseMember("payment status", strings.ToLower(strings.TrimSpace(value)), paymentStatuses)
	if err != nil {
		return "", fmt.Errorf("invalid payment status %q", value)
	}
	return status, nil
}
