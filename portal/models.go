package portal

import (
	"time"

	"github.com/jrsteele09/synco-portal/storage"
)

// Event is a calendar entry (training, match, tournament)
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	Location    string    `json:"location,omitempty"`
	Date        time.Time `json:"date"`
}

// EventInput is the body for creating an event
type EventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	Location    string    `json:"location,omitempty"`
	Date        time.Time `json:"date"`
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// Payment is a registered payment; its status is decided by the backend
type Payment struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId,omitempty"`
	UserEmail  string        `json:"userEmail,omitempty"`
	Amount     float64       `json:"amount"`
	Concept    string        `json:"concept,omitempty"`
	Notes      string        `json:"notes,omitempty"`
	Status     PaymentStatus `json:"status"`
	ReceiptURL string        `json:"receiptUrl,omitempty"`
	CreatedAt  time.Time     `json:"createdAt,omitempty"`
	VerifiedBy string        `json:"verifiedBy,omitempty"`
}

// PaymentInput is the form part of a payment registration
type PaymentInput struct {
	Amount  float64
	Concept string
	Notes   string
}

// Verification is the body of PATCH /payments/{id}/verify
type Verification struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note,omitempty"`
}

// Debt is what a member owes, as computed by the backend
type Debt struct {
	UserID    string     `json:"userId,omitempty"`
	UserEmail string     `json:"userEmail,omitempty"`
	Concept   string     `json:"concept"`
	Amount    float64    `json:"amount"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
}

// Receipt is the file attached to a payment
type Receipt struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ReceiptFromObject turns a shared file into a receipt
func ReceiptFromObject(obj *storage.Object) *Receipt {
	if obj == nil {
		return nil
	}
	return &Receipt{Name: obj.Name, MIMEType: obj.MIMEType, Data: obj.Data}
}
