package domain

import (
	"time"
)

// Payment method constants.
const (
	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodDebitCard    = "debit_card"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodWallet       = "wallet"
)

// Payment status constants.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment represents a payment made against a booking.
type Payment struct {
	ID            string    `json:"id"`
	BookingID     string    `json:"booking_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ValidPaymentMethods returns the set of valid payment methods.
func ValidPaymentMethods() []string {
	return []string{
		PaymentMethodCreditCard,
		PaymentMethodDebitCard,
		PaymentMethodBankTransfer,
		PaymentMethodWallet,
	}
}

// IsValidPaymentMethod checks whether the given method is valid.
func IsValidPaymentMethod(method string) bool {
	for _, m := range ValidPaymentMethods() {
		if m == method {
			return true
		}
	}
	return false
}
