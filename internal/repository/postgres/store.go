// Package postgres is the PostgreSQL-backed donation store, used when
// DB_DRIVER=postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		slug        TEXT PRIMARY KEY,
		code        TEXT NOT NULL,
		title       TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS donations (
		id              UUID PRIMARY KEY,
		invoice_number  TEXT UNIQUE NOT NULL,
		donor_name      TEXT NOT NULL,
		phone_number    TEXT,
		note            TEXT,
		program_slug    TEXT,
		amount          NUMERIC NOT NULL CHECK (amount > 0),
		payment_link    TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'pending',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_status ON donations(status)`,
	// Unconstrained NUMERIC keeps the submitted amount exactly as sqlite does.
	`ALTER TABLE donations ALTER COLUMN amount TYPE NUMERIC`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type DonationRepository struct {
	db *pgxpool.Pool
}

func NewDonationRepository(db *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) CreateDonation(ctx context.Context, d *domain.Donation) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	query := `
		INSERT INTO donations (
			id, invoice_number, donor_name, phone_number, note, program_slug,
			amount, payment_link, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		d.ID,
		d.InvoiceNumber,
		d.DonorName,
		d.PhoneNumber,
		d.Note,
		d.ProgramSlug,
		d.Amount.String(),
		d.PaymentLink,
		string(d.Status),
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}

func (r *DonationRepository) FindDonationByInvoice(ctx context.Context, invoice string) (*domain.Donation, error) {
	query := `
		SELECT
			id::text, invoice_number, donor_name, phone_number, note, program_slug,
			amount::text, payment_link, status, created_at, updated_at, deleted_at
		FROM donations
		WHERE invoice_number = $1 AND deleted_at IS NULL
	`

	var d domain.Donation
	var amount, status string
	err := r.db.QueryRow(ctx, query, invoice).Scan(
		&d.ID,
		&d.InvoiceNumber,
		&d.DonorName,
		&d.PhoneNumber,
		&d.Note,
		&d.ProgramSlug,
		&amount,
		&d.PaymentLink,
		&status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find donation %s: %w", invoice, err)
	}

	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if d.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDonationStatusConditional runs as one statement, so the row lock
// taken by the UPDATE serialises concurrent notifications for an invoice.
func (r *DonationRepository) UpdateDonationStatusConditional(ctx context.Context, invoice string, to domain.Status, from []domain.Status) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}

	sources := make([]string, len(from))
	for i, s := range from {
		sources[i] = string(s)
	}

	query := `
		UPDATE donations
		SET
			status = $1,
			updated_at = NOW()
		WHERE invoice_number = $2
		  AND deleted_at IS NULL
		  AND status = ANY($3)
	`

	tag, err := r.db.Exec(ctx, query, string(to), invoice, sources)
	if err != nil {
		return 0, fmt.Errorf("update donation status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *DonationRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

type ProgramRepository struct {
	db *pgxpool.Pool
}

func NewProgramRepository(db *pgxpool.Pool) *ProgramRepository {
	return &ProgramRepository{db: db}
}

func (r *ProgramRepository) FindProgramCodeBySlug(ctx context.Context, slug string) (string, error) {
	var code string
	err := r.db.QueryRow(ctx,
		`SELECT code FROM programs WHERE slug = $1 AND deleted_at IS NULL`, slug,
	).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrProgramNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find program %s: %w", slug, err)
	}
	return code, nil
}

func (r *ProgramRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM programs`).Scan(&count)
	return count, err
}

func (r *ProgramRepository) BulkInsert(ctx context.Context, programs []domain.Program) (int, error) {
	batch := &pgx.Batch{}
	for _, p := range programs {
		batch.Queue(
			`INSERT INTO programs (slug, code, title) VALUES ($1, $2, $3) ON CONFLICT (slug) DO NOTHING`,
			p.Slug, p.Code, p.Title,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for i := range programs {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
