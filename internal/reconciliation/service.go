// Package reconciliation applies gateway-reported payment states to stored
// donations. It is the only writer of donation status.
package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/esaputra95/webalhijrah-sub000/internal/currency"
	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
	"github.com/esaputra95/webalhijrah-sub000/internal/events"
	"github.com/esaputra95/webalhijrah-sub000/internal/gateway"
	"github.com/esaputra95/webalhijrah-sub000/internal/metrics"
)

// Store is the part of the donation store reconciliation needs.
type Store interface {
	FindDonationByInvoice(ctx context.Context, invoice string) (*domain.Donation, error)
	UpdateDonationStatusConditional(ctx context.Context, invoice string, to domain.Status, from []domain.Status) (int64, error)
}

// Publisher receives a status-changed event for every applied transition.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, e events.StatusChanged) error
}

// Result describes what happened to one notification. Skipped results are
// not errors: the gateway re-sends notifications and they may arrive out of
// order.
type Result struct {
	Invoice  string        `json:"invoice_number"`
	Skipped  bool          `json:"skipped"`
	Status   domain.Status `json:"status"`
	Previous domain.Status `json:"previous_status"`
}

// DefaultPublishTimeout bounds one status-changed publish.
const DefaultPublishTimeout = 5 * time.Second

// Service reconciles candidate statuses against the store.
type Service struct {
	store          Store
	publisher      Publisher
	publishTimeout time.Duration
	pending        sync.WaitGroup
	logger         *zap.Logger
}

// NewService creates a reconciliation service. A nil publisher disables
// events.
func NewService(store Store, publisher Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:          store,
		publisher:      publisher,
		publishTimeout: DefaultPublishTimeout,
		logger:         logger,
	}
}

// Wait blocks until every in-flight event publish has finished. Call it
// before closing the publisher.
func (s *Service) Wait() {
	s.pending.Wait()
}

// ProcessNotification maps a verified notification to a candidate status and
// reconciles it. The signature must already have been checked.
func (s *Service) ProcessNotification(ctx context.Context, n gateway.Notification) (*Result, error) {
	candidate := gateway.MapStatus(n.TransactionStatus, n.FraudStatus)
	return s.reconcile(ctx, n.OrderID, candidate, n.GrossAmount)
}

// Reconcile moves the donation identified by invoice towards candidate.
// It returns nil, nil when no live donation exists.
//
// Rules, in order: settled never changes; a repeat of the current status is
// skipped; a transition outside the domain table is skipped; otherwise a
// conditional update is attempted and, if another writer got there first,
// the result is skipped with the winner's status. A candidate the table does
// not allow from the current status (for example expired to pending) is
// returned as skipped with the current status, never as an error.
//
// Applied transitions publish a status-changed event in the background, so a
// slow broker never delays the caller.
func (s *Service) Reconcile(ctx context.Context, invoice string, candidate domain.Status) (*Result, error) {
	return s.reconcile(ctx, invoice, candidate, "")
}

func (s *Service) reconcile(ctx context.Context, invoice string, candidate domain.Status, reportedGross string) (*Result, error) {
	log := s.logger.With(zap.String("invoice", invoice), zap.String("candidate", string(candidate)))

	d, err := s.store.FindDonationByInvoice(ctx, invoice)
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load donation: %w", err)
	}
	if d == nil || d.IsDeleted() {
		metrics.ReconcileTotal.WithLabelValues("not_found").Inc()
		log.Warn("notification for unknown donation")
		return nil, nil
	}

	if reportedGross != "" && !currency.SameGross(reportedGross, d.Amount) {
		log.Warn("gross amount differs from stored donation",
			zap.String("reported", reportedGross),
			zap.String("stored", currency.FormatGross(d.Amount)))
	}

	current := d.Status
	if current.IsTerminal() || current == candidate || !domain.CanTransition(current, candidate) {
		metrics.ReconcileTotal.WithLabelValues("skipped").Inc()
		log.Info("status unchanged", zap.String("current", string(current)))
		return &Result{Invoice: invoice, Skipped: true, Status: current, Previous: current}, nil
	}

	n, err := s.store.UpdateDonationStatusConditional(ctx, invoice, candidate, domain.SourcesOf(candidate))
	if err != nil {
		metrics.ReconcileTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("update status: %w", err)
	}

	if n == 0 {
		// Lost a race with a concurrent notification; report what won.
		latest, err := s.store.FindDonationByInvoice(ctx, invoice)
		if err != nil {
			metrics.ReconcileTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("reload donation: %w", err)
		}
		if latest == nil {
			metrics.ReconcileTotal.WithLabelValues("not_found").Inc()
			return nil, nil
		}
		metrics.ReconcileTotal.WithLabelValues("skipped").Inc()
		log.Info("concurrent update won", zap.String("current", string(latest.Status)))
		return &Result{Invoice: invoice, Skipped: true, Status: latest.Status, Previous: current}, nil
	}

	metrics.ReconcileTotal.WithLabelValues("applied").Inc()
	log.Info("donation status updated", zap.String("from", string(current)))

	s.publish(ctx, events.StatusChanged{
		InvoiceNumber: invoice,
		From:          string(current),
		To:            string(candidate),
		Amount:        d.Amount.String(),
		Currency:      currency.Code,
		ProgramSlug:   deref(d.ProgramSlug),
		ChangedAt:     time.Now().UTC(),
	})

	return &Result{Invoice: invoice, Status: candidate, Previous: current}, nil
}

// publish is best effort. The store is the source of truth, and the request
// that caused the transition may finish before the event is written.
func (s *Service) publish(ctx context.Context, e events.StatusChanged) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		if err := s.publisher.PublishStatusChanged(ctx, e); err != nil {
			metrics.EventPublishErrors.Inc()
			s.logger.Error("failed to publish status change",
				zap.String("invoice", e.InvoiceNumber),
				zap.Error(err))
		}
	}()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
