package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
)

const donationColumns = `id, invoice_number, donor_name, phone_number, note, program_slug,
	amount, payment_link, status, created_at, updated_at, deleted_at`

type DonationRepo struct {
	db *sql.DB
}

func NewDonationRepo(db *sql.DB) *DonationRepo {
	return &DonationRepo{db: db}
}

// CreateDonation inserts d. ID and timestamps are filled in when empty.
func (r *DonationRepo) CreateDonation(ctx context.Context, d *domain.Donation) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = d.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO donations
		(id, invoice_number, donor_name, phone_number, note, program_slug,
		 amount, payment_link, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.InvoiceNumber, d.DonorName, d.PhoneNumber, d.Note, d.ProgramSlug,
		d.Amount.String(), d.PaymentLink, string(d.Status),
		d.CreatedAt.Format(time.RFC3339Nano), d.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

// FindDonationByInvoice returns the live donation for invoice, or nil when
// none exists or it was soft-deleted.
func (r *DonationRepo) FindDonationByInvoice(ctx context.Context, invoice string) (*domain.Donation, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+donationColumns+" FROM donations WHERE invoice_number = ? AND deleted_at IS NULL",
		invoice,
	)
	d, err := scanDonation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find donation %s: %w", invoice, err)
	}
	return d, nil
}

// UpdateDonationStatusConditional sets the status of a live donation only if
// its current status is one of from. It returns the number of rows changed,
// so concurrent callers can tell who won.
func (r *DonationRepo) UpdateDonationStatusConditional(ctx context.Context, invoice string, to domain.Status, from []domain.Status) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(from))
	args := []any{string(to), time.Now().UTC().Format(time.RFC3339Nano), invoice}
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE donations SET status = ?, updated_at = ?
		WHERE invoice_number = ? AND deleted_at IS NULL
		  AND status IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("update donation status: %w", err)
	}
	return res.RowsAffected()
}

// SoftDelete hides a donation from reconciliation. Operators use it for test
// or duplicate entries.
func (r *DonationRepo) SoftDelete(ctx context.Context, invoice string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE donations SET deleted_at = ? WHERE invoice_number = ? AND deleted_at IS NULL",
		time.Now().UTC().Format(time.RFC3339Nano), invoice,
	)
	return err
}

func (r *DonationRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- helpers ---

func scanDonation(row *sql.Row) (*domain.Donation, error) {
	var d domain.Donation
	var amount, status, createdAt, updatedAt string
	var phone, note, program, deletedAt sql.NullString

	err := row.Scan(
		&d.ID, &d.InvoiceNumber, &d.DonorName, &phone, &note, &program,
		&amount, &d.PaymentLink, &status, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if d.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	d.PhoneNumber = nullableString(phone)
	d.Note = nullableString(note)
	d.ProgramSlug = nullableString(program)

	if deletedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, deletedAt.String)
		d.DeletedAt = &t
	}

	return &d, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
