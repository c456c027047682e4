package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnonymousDonor is stored when the donor leaves the name field empty.
const AnonymousDonor = "Hamba Allah"

type Donation struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	DonorName     string          `json:"donor_name"`
	PhoneNumber   *string         `json:"phone_number,omitempty"`
	Note          *string         `json:"note,omitempty"`
	ProgramSlug   *string         `json:"program_slug,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentLink   string          `json:"payment_link"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the donation was soft-deleted by an operator.
func (d *Donation) IsDeleted() bool {
	return d.DeletedAt != nil
}
