package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
)

type ProgramRepo struct {
	db *sql.DB
}

func NewProgramRepo(db *sql.DB) *ProgramRepo {
	return &ProgramRepo{db: db}
}

// FindProgramCodeBySlug returns the invoice code of a live program.
func (r *ProgramRepo) FindProgramCodeBySlug(ctx context.Context, slug string) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx,
		"SELECT code FROM programs WHERE slug = ? AND deleted_at IS NULL", slug,
	).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrProgramNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find program %s: %w", slug, err)
	}
	return code, nil
}

func (r *ProgramRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM programs").Scan(&count)
	return count, err
}

func (r *ProgramRepo) BulkInsert(ctx context.Context, programs []domain.Program) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO programs (slug, code, title, created_at) VALUES (?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range programs {
		p := &programs[i]
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		res, err := stmt.ExecContext(ctx, p.Slug, p.Code, p.Title, p.CreatedAt.Format(time.RFC3339))
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}
