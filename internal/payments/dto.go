package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dermafill/storefront-backend/internal/orders"
	"github.com/dermafill/storefront-backend/pkg/enums"
)

// InitiateRequest asks a provider to start collecting an order.
type InitiateRequest struct {
	OrderID     uuid.UUID
	OrderNumber string
	Amount      decimal.Decimal
	Currency    enums.Currency
	Provider    enums.PaymentProvider
	Phone       string
}

// Initiation is what the storefront needs to finish paying. Only the fields
// of the chosen provider are set.
type Initiation struct {
	PaymentID    uuid.UUID             `json:"payment_id"`
	Provider     enums.PaymentProvider `json:"provider"`
	Status       enums.PaymentStatus   `json:"status"`
	Amount       decimal.Decimal       `json:"amount"`
	Currency     enums.Currency        `json:"currency"`
	ClientSecret string                `json:"client_secret,omitempty"`
	ApprovalURL  string                `json:"approval_url,omitempty"`
	Entity       string                `json:"entity,omitempty"`
	Reference    string                `json:"reference,omitempty"`
	Phone        string                `json:"phone,omitempty"`
}

// CaptureResult is returned after a PayPal capture attempt.
type CaptureResult struct {
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Order         *orders.OrderDTO    `json:"order,omitempty"`
}

// EuPagoCallback carries the query parameters EuPago sends when a reference
// or MB WAY request is paid.
type EuPagoCallback struct {
	Amount      string `json:"valor"`
	Channel     string `json:"canal"`
	Reference   string `json:"referencia"`
	Transaction string `json:"transacao"`
	Identifier  string `json:"identificador"`
	Method      string `json:"mp"`
	Key         string `json:"chave_api"`
	Date        string `json:"data"`
	Entity      string `json:"entidade"`
}

// EventID identifies the callback for dedupe.
func (c EuPagoCallback) EventID() string {
	if c.Transaction != "" {
		return c.Transaction
	}
	return c.Reference
}
