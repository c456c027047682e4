package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
)

func newTestDB(t *testing.T) (*DonationRepo, *ProgramRepo) {
	t.Helper()
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDonationRepo(db), NewProgramRepo(db)
}

func pendingDonation(invoice string) *domain.Donation {
	note := "semoga berkah"
	return &domain.Donation{
		InvoiceNumber: invoice,
		DonorName:     "Fulan",
		Note:          &note,
		Amount:        decimal.RequireFromString("50000.505"),
		PaymentLink:   "https://pay.test/" + invoice,
		Status:        domain.StatusPending,
	}
}

func TestDonationRepoCreateAndFind(t *testing.T) {
	repo, _ := newTestDB(t)
	ctx := context.Background()

	d := pendingDonation("DON-1-AAAAAA")
	if err := repo.CreateDonation(ctx, d); err != nil {
		t.Fatalf("CreateDonation: %v", err)
	}
	if d.ID == "" {
		t.Fatal("ID not assigned")
	}

	got, err := repo.FindDonationByInvoice(ctx, "DON-1-AAAAAA")
	if err != nil {
		t.Fatalf("FindDonationByInvoice: %v", err)
	}
	if got == nil {
		t.Fatal("donation not found")
	}
	if got.Status != domain.StatusPending || !got.Amount.Equal(d.Amount) {
		t.Errorf("got %+v", got)
	}
	if got.Note == nil || *got.Note != "semoga berkah" {
		t.Errorf("Note = %v", got.Note)
	}
	if got.PhoneNumber != nil {
		t.Errorf("PhoneNumber = %v, want nil", got.PhoneNumber)
	}

	missing, err := repo.FindDonationByInvoice(ctx, "DON-404")
	if err != nil || missing != nil {
		t.Errorf("missing invoice: got %v, %v", missing, err)
	}
}

func TestDonationRepoInvoiceUnique(t *testing.T) {
	repo, _ := newTestDB(t)
	ctx := context.Background()

	if err := repo.CreateDonation(ctx, pendingDonation("DON-1-DUP")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := repo.CreateDonation(ctx, pendingDonation("DON-1-DUP")); err == nil {
		t.Fatal("duplicate invoice number accepted")
	}
}

func TestDonationRepoConditionalUpdate(t *testing.T) {
	repo, _ := newTestDB(t)
	ctx := context.Background()

	d := pendingDonation("DON-2-BBBBBB")
	if err := repo.CreateDonation(ctx, d); err != nil {
		t.Fatal(err)
	}

	n, err := repo.UpdateDonationStatusConditional(ctx, d.InvoiceNumber, domain.StatusSettled,
		domain.SourcesOf(domain.StatusSettled))
	if err != nil || n != 1 {
		t.Fatalf("first update: n=%d err=%v", n, err)
	}

	// settled is not a source of expired, so this must not match.
	n, err = repo.UpdateDonationStatusConditional(ctx, d.InvoiceNumber, domain.StatusExpired,
		domain.SourcesOf(domain.StatusExpired))
	if err != nil || n != 0 {
		t.Fatalf("second update: n=%d err=%v", n, err)
	}

	got, _ := repo.FindDonationByInvoice(ctx, d.InvoiceNumber)
	if got.Status != domain.StatusSettled {
		t.Errorf("status = %s, want settled", got.Status)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", got.UpdatedAt, got.CreatedAt)
	}
	if !got.Amount.Equal(d.Amount) {
		t.Errorf("amount changed to %s", got.Amount)
	}
}

func TestDonationRepoSoftDeleteExcluded(t *testing.T) {
	repo, _ := newTestDB(t)
	ctx := context.Background()

	d := pendingDonation("DON-3-CCCCCC")
	if err := repo.CreateDonation(ctx, d); err != nil {
		t.Fatal(err)
	}
	if err := repo.SoftDelete(ctx, d.InvoiceNumber); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindDonationByInvoice(ctx, d.InvoiceNumber)
	if err != nil || got != nil {
		t.Fatalf("soft-deleted donation returned: %v, %v", got, err)
	}

	n, err := repo.UpdateDonationStatusConditional(ctx, d.InvoiceNumber, domain.StatusSettled,
		domain.SourcesOf(domain.StatusSettled))
	if err != nil || n != 0 {
		t.Errorf("soft-deleted donation updated: n=%d err=%v", n, err)
	}
}

func TestProgramRepo(t *testing.T) {
	_, programs := newTestDB(t)
	ctx := context.Background()

	seed := []domain.Program{
		{Slug: "pembangunan-masjid", Code: "MSJ", Title: "Pembangunan Masjid"},
		{Slug: "santunan-yatim", Code: "YTM", Title: "Santunan Yatim"},
	}
	n, err := programs.BulkInsert(ctx, seed)
	if err != nil || n != 2 {
		t.Fatalf("BulkInsert: n=%d err=%v", n, err)
	}
	n, err = programs.BulkInsert(ctx, seed)
	if err != nil || n != 0 {
		t.Fatalf("second BulkInsert should ignore duplicates: n=%d err=%v", n, err)
	}

	code, err := programs.FindProgramCodeBySlug(ctx, "santunan-yatim")
	if err != nil || code != "YTM" {
		t.Errorf("FindProgramCodeBySlug = %q, %v", code, err)
	}

	if _, err := programs.FindProgramCodeBySlug(ctx, "nope"); !errors.Is(err, domain.ErrProgramNotFound) {
		t.Errorf("err = %v, want ErrProgramNotFound", err)
	}

	count, err := programs.Count(ctx)
	if err != nil || count != 2 {
		t.Errorf("Count = %d, %v", count, err)
	}
}

type fakeFinder struct {
	calls int
	code  string
	err   error
}

func (f *fakeFinder) FindProgramCodeBySlug(ctx context.Context, slug string) (string, error) {
	f.calls++
	return f.code, f.err
}

func TestCachedProgramRepoFallsBackWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	next := &fakeFinder{code: "MSJ"}
	c := NewCachedProgramRepo(next, client, time.Minute, zap.NewNop())

	code, err := c.FindProgramCodeBySlug(context.Background(), "pembangunan-masjid")
	if err != nil || code != "MSJ" {
		t.Fatalf("got %q, %v", code, err)
	}
	if next.calls != 1 {
		t.Errorf("next called %d times, want 1", next.calls)
	}

	next.err = domain.ErrProgramNotFound
	if _, err := c.FindProgramCodeBySlug(context.Background(), "x"); !errors.Is(err, domain.ErrProgramNotFound) {
		t.Errorf("err = %v, want ErrProgramNotFound", err)
	}
}
