package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
	"github.com/esaputra95/webalhijrah-sub000/internal/gateway"
	"github.com/esaputra95/webalhijrah-sub000/internal/invoice"
	"github.com/esaputra95/webalhijrah-sub000/internal/metrics"
	"github.com/esaputra95/webalhijrah-sub000/internal/reconciliation"
)

const maxBodyBytes = 64 << 10

// NotificationVerifier checks the signature of a gateway notification.
type NotificationVerifier interface {
	Verify(n gateway.Notification) bool
}

// NotificationProcessor applies a verified notification to the store.
type NotificationProcessor interface {
	ProcessNotification(ctx context.Context, n gateway.Notification) (*reconciliation.Result, error)
}

// InvoiceCreator starts a donation payment.
type InvoiceCreator interface {
	CreateInvoiceDonation(ctx context.Context, p invoice.CreateParams) invoice.CreateResult
}

// DonationReader is the read side of the donation store.
type DonationReader interface {
	FindDonationByInvoice(ctx context.Context, invoice string) (*domain.Donation, error)
	Ping(ctx context.Context) error
}

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	verifier  NotificationVerifier
	processor NotificationProcessor
	invoices  InvoiceCreator
	donations DonationReader
	logger    *zap.Logger
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// notificationResponse is what the gateway sees. Any 2xx stops its retries.
type notificationResponse struct {
	Status    bool          `json:"status"`
	Message   string        `json:"message"`
	NewStatus domain.Status `json:"new_status,omitempty"`
}

func (h *Handlers) notificationOutcome(w http.ResponseWriter, status int, outcome string, body notificationResponse) {
	metrics.NotificationsTotal.WithLabelValues(outcome).Inc()
	writeJSON(w, status, body)
}

// --- HandleNotification ---

// HandleNotification receives payment status notifications from the gateway.
// Status codes drive the gateway's retry policy: 403 and 404 are final, 500
// is retried, 200 means handled (including ignored duplicates).
func (h *Handlers) HandleNotification(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	var n gateway.Notification
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&n); err != nil {
		log.Error("malformed notification", zap.Error(err))
		h.notificationOutcome(w, http.StatusInternalServerError, "malformed",
			notificationResponse{Message: "Internal server error"})
		return
	}

	log = log.With(zap.String("invoice", n.OrderID), zap.String("transaction_status", n.TransactionStatus))

	if !h.verifier.Verify(n) {
		log.Warn("notification signature rejected")
		h.notificationOutcome(w, http.StatusForbidden, "forbidden",
			notificationResponse{Message: "Invalid signature"})
		return
	}

	res, err := h.processor.ProcessNotification(r.Context(), n)
	if err != nil {
		log.Error("notification processing failed", zap.Error(err))
		h.notificationOutcome(w, http.StatusInternalServerError, "error",
			notificationResponse{Message: "Internal server error"})
		return
	}
	if res == nil {
		h.notificationOutcome(w, http.StatusNotFound, "not_found",
			notificationResponse{Message: "Donation not found"})
		return
	}

	msg := "Status updated"
	outcome := "applied"
	if res.Skipped {
		msg = "Status unchanged"
		outcome = "skipped"
	}
	h.notificationOutcome(w, http.StatusOK, outcome, notificationResponse{
		Status:    true,
		Message:   msg,
		NewStatus: res.Status,
	})
}

// --- CreateDonation ---

type createDonationRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Name        string          `json:"name"`
	PhoneNumber string          `json:"phone_number"`
	Note        string          `json:"note"`
	Program     string          `json:"program"`
	ProgramCode string          `json:"program_code"`
}

type createDonationResponse struct {
	Success       bool   `json:"success"`
	RedirectURL   string `json:"redirect_url"`
	Token         string `json:"token,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Message       string `json:"message"`
}

// CreateDonation starts a payment. The response always carries a
// redirect_url the client can send the donor to.
func (h *Handlers) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req createDonationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res := h.invoices.CreateInvoiceDonation(r.Context(), invoice.CreateParams{
		Amount:      req.Amount,
		DonorName:   req.Name,
		PhoneNumber: req.PhoneNumber,
		Note:        req.Note,
		ProgramCode: req.ProgramCode,
		ProgramSlug: req.Program,
	})

	resp := createDonationResponse{
		Success:     res.Success,
		RedirectURL: res.RedirectURL,
		Token:       res.Token,
		Message:     res.Message,
	}
	if res.Donation != nil {
		resp.InvoiceNumber = res.Donation.InvoiceNumber
	}

	status := http.StatusCreated
	if !res.Success {
		status = http.StatusBadGateway
		if !invoice.ValidAmount(req.Amount) {
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, resp)
}

// --- GetDonationStatus ---

type donationStatusResponse struct {
	InvoiceNumber string        `json:"invoice_number"`
	Status        domain.Status `json:"status"`
	Amount        string        `json:"amount"`
	DonorName     string        `json:"donor_name"`
	ProgramSlug   *string       `json:"program_slug,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// GetDonationStatus is read only. The thank-you page polls it after the
// browser redirect, which itself never changes a donation.
func (h *Handlers) GetDonationStatus(w http.ResponseWriter, r *http.Request) {
	invoiceNumber := chi.URLParam(r, "invoice")

	d, err := h.donations.FindDonationByInvoice(r.Context(), invoiceNumber)
	if err != nil {
		h.logger.Error("find donation", zap.String("invoice", invoiceNumber), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "donation not found")
		return
	}

	writeJSON(w, http.StatusOK, donationStatusResponse{
		InvoiceNumber: d.InvoiceNumber,
		Status:        d.Status,
		Amount:        d.Amount.StringFixed(2),
		DonorName:     d.DonorName,
		ProgramSlug:   d.ProgramSlug,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	})
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.donations.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
