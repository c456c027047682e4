package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/esaputra95/webalhijrah-sub000/internal/currency"
	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
)

// Transaction is the Snap transaction request body.
type Transaction struct {
	TransactionDetails TransactionDetails `json:"transaction_details"`
	CustomerDetails    CustomerDetails    `json:"customer_details"`
	ItemDetails        []ItemDetail       `json:"item_details"`
	Callbacks          Callbacks          `json:"callbacks"`
	// CustomField1 carries the donor's note. It is shown on the gateway
	// dashboard and never read back.
	CustomField1 string `json:"custom_field1,omitempty"`
}

type TransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type CustomerDetails struct {
	FirstName string `json:"first_name"`
	Phone     string `json:"phone,omitempty"`
}

type ItemDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type Callbacks struct {
	Finish string `json:"finish"`
	Error  string `json:"error"`
}

// TransactionInput is what the builder needs to describe one donation.
type TransactionInput struct {
	InvoiceNumber string
	Amount        decimal.Decimal
	DonorName     string
	PhoneNumber   string
	Note          string
	FinishURL     string
	ErrorURL      string
}

// Builder turns donation requests into gateway transactions. BaseURL is the
// public site root used for the default redirect targets.
type Builder struct {
	BaseURL string
}

func NewBuilder(baseURL string) *Builder {
	return &Builder{BaseURL: baseURL}
}

// FinishURL is where the gateway sends the donor after paying.
func (b *Builder) FinishURL() string {
	return b.BaseURL + "/donasi/terima-kasih"
}

// ErrorURL is the donation landing page. It doubles as the safe redirect
// target whenever invoice creation fails.
func (b *Builder) ErrorURL() string {
	return b.BaseURL + "/donasi"
}

// Build is a pure transform. The amount is rounded to whole rupiah before it
// is placed in the payload.
func (b *Builder) Build(in TransactionInput) Transaction {
	gross := currency.GrossAmount(in.Amount)

	name := in.DonorName
	if name == "" {
		name = domain.AnonymousDonor
	}

	finish := in.FinishURL
	if finish == "" {
		finish = b.FinishURL()
	}
	errURL := in.ErrorURL
	if errURL == "" {
		errURL = b.ErrorURL()
	}

	return Transaction{
		TransactionDetails: TransactionDetails{
			OrderID:     in.InvoiceNumber,
			GrossAmount: gross,
		},
		CustomerDetails: CustomerDetails{
			FirstName: name,
			Phone:     in.PhoneNumber,
		},
		ItemDetails: []ItemDetail{{
			ID:       "donation",
			Name:     "Donation",
			Price:    gross,
			Quantity: 1,
		}},
		Callbacks: Callbacks{
			Finish: finish,
			Error:  errURL,
		},
		CustomField1: in.Note,
	}
}
