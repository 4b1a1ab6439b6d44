package draft

import "github.com/xenking/florist/internal/domain/pricing"

// PaymentStatus tracks how much of a total has been settled.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// PaymentStatusOf derives the payment status of a purchase breakdown.
func PaymentStatusOf(b pricing.Breakdown) PaymentStatus {
	switch {
	case b.Balance.IsZero():
		return PaymentPaid
	case b.CashTendered.IsPositive():
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}
