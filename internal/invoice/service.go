// Package invoice turns a donation form submission into a hosted payment page
// and a pending donation record.
package invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/esaputra95/webalhijrah-sub000/internal/currency"
	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
	"github.com/esaputra95/webalhijrah-sub000/internal/gateway"
	"github.com/esaputra95/webalhijrah-sub000/internal/metrics"
)

// DefaultGatewayTimeout bounds the hosted-transaction call when no timeout is
// configured.
const DefaultGatewayTimeout = 15 * time.Second

const (
	msgCreated = "Invoice created"
	msgInvalid = "Donation amount must be at least Rp1"
	msgFailed  = "We could not start the payment right now. Please try again."
)

// Gateway creates hosted payment pages.
type Gateway interface {
	CreateHostedTransaction(ctx context.Context, tx gateway.Transaction) (*gateway.HostedTransaction, error)
}

// DonationCreator persists a new donation.
type DonationCreator interface {
	CreateDonation(ctx context.Context, d *domain.Donation) error
}

// CreateParams is one donation form submission.
type CreateParams struct {
	Amount      decimal.Decimal
	DonorName   string
	PhoneNumber string
	Note        string
	// ProgramCode, when set, is used as the invoice prefix as is.
	ProgramCode string
	// ProgramSlug is looked up for a prefix when ProgramCode is empty and is
	// stored on the donation.
	ProgramSlug string
}

// CreateResult always carries a RedirectURL. On failure it points at the
// donation landing page.
type CreateResult struct {
	Success     bool             `json:"success"`
	RedirectURL string           `json:"redirect_url"`
	Token       string           `json:"token,omitempty"`
	Donation    *domain.Donation `json:"-"`
	Message     string           `json:"message"`
}

type Service struct {
	numbers  *Generator
	builder  *gateway.Builder
	gateway  Gateway
	store    DonationCreator
	programs ProgramCodeFinder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewService wires the orchestrator. programs may be nil, in which case every
// invoice gets the default prefix.
func NewService(
	numbers *Generator,
	builder *gateway.Builder,
	gw Gateway,
	store DonationCreator,
	programs ProgramCodeFinder,
	timeout time.Duration,
	logger *zap.Logger,
) *Service {
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	return &Service{
		numbers:  numbers,
		builder:  builder,
		gateway:  gw,
		store:    store,
		programs: programs,
		timeout:  timeout,
		logger:   logger,
	}
}

// CreateInvoiceDonation never returns an error. Every failure is reported as
// Success=false with the fallback redirect so the donor is never left on a
// dead end. No donation is stored unless the gateway accepted the
// transaction.
func (s *Service) CreateInvoiceDonation(ctx context.Context, p CreateParams) CreateResult {
	if !ValidAmount(p.Amount) {
		metrics.InvoicesCreated.WithLabelValues("invalid").Inc()
		s.logger.Info("donation rejected", zap.Error(domain.ErrInvalidAmount), zap.String("amount", p.Amount.String()))
		return s.failure(msgInvalid)
	}

	prefix := s.resolvePrefix(ctx, p.ProgramCode, p.ProgramSlug)
	invoiceNumber := s.numbers.Next(prefix)
	log := s.logger.With(zap.String("invoice", invoiceNumber))

	tx := s.builder.Build(gateway.TransactionInput{
		InvoiceNumber: invoiceNumber,
		Amount:        p.Amount,
		DonorName:     p.DonorName,
		PhoneNumber:   p.PhoneNumber,
		Note:          p.Note,
	})

	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	hosted, err := s.gateway.CreateHostedTransaction(gwCtx, tx)
	cancel()
	if err != nil {
		metrics.InvoicesCreated.WithLabelValues("gateway_error").Inc()
		log.Error("hosted transaction failed", zap.Error(err))
		return s.failure(msgFailed)
	}

	donation := &domain.Donation{
		InvoiceNumber: invoiceNumber,
		DonorName:     tx.CustomerDetails.FirstName,
		PhoneNumber:   optional(p.PhoneNumber),
		Note:          optional(p.Note),
		ProgramSlug:   optional(p.ProgramSlug),
		Amount:        p.Amount,
		PaymentLink:   hosted.RedirectURL,
		Status:        domain.StatusPending,
	}
	if err := s.store.CreateDonation(ctx, donation); err != nil {
		// The hosted page exists but nothing will reconcile it; the donor is
		// sent back to the form instead.
		metrics.InvoicesCreated.WithLabelValues("store_error").Inc()
		log.Error("donation not stored after gateway accepted it", zap.Error(err))
		return s.failure(msgFailed)
	}

	metrics.InvoicesCreated.WithLabelValues("created").Inc()
	log.Info("invoice created",
		zap.String("amount", p.Amount.String()),
		zap.String("program", p.ProgramSlug),
	)

	return CreateResult{
		Success:     true,
		RedirectURL: hosted.RedirectURL,
		Token:       hosted.Token,
		Donation:    donation,
		Message:     msgCreated,
	}
}

// ValidAmount reports whether amount is still positive after rounding to the
// whole rupiah sent to the gateway.
func ValidAmount(amount decimal.Decimal) bool {
	return currency.GrossAmount(amount) > 0
}

func (s *Service) failure(msg string) CreateResult {
	return CreateResult{
		Success:     false,
		RedirectURL: s.builder.ErrorURL(),
		Message:     msg,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
