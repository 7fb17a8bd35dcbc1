package core

// Invoice describes the invoice sent in reply to the pay command
type Invoice struct {
	Title         string `validate:"nonzero"`
	Description   string `validate:"nonzero"`
	Payload       string `validate:"nonzero"`
	ProviderToken string `validate:"nonzero"`
	Currency      string `validate:"len=3"`
	ProviderData  string
	Prices        []LabeledPrice `validate:"min=1"`
}

// LabeledPrice is a portion of the price in the smallest currency units
type LabeledPrice struct {
	Label  string `json:"label" yaml:"label"`
	Amount int64  `json:"amount" yaml:"amount"`
}

// Action is what the service did with an update
type Action string

const (
	ActionInvoiceSent      Action = "invoice_sent"
	ActionCheckoutAnswered Action = "checkout_answered"
	ActionPaymentConfirmed Action = "payment_confirmed"
	ActionRateLimited      Action = "rate_limited"
	ActionIgnored          Action = "ignored"
)

// Outcome reports how an update was handled
type Outcome struct {
	UpdateID int64  `json:"update_id"`
	ChatID   int64  `json:"chat_id,omitempty"`
	Action   Action `json:"action"`
}

func (o Outcome) ActionName() string {
	return string(o.Action)
}
