package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
)

type fakePrograms struct {
	inserted []domain.Program
}

func (f *fakePrograms) FindProgramCodeBySlug(ctx context.Context, slug string) (string, error) {
	return "", domain.ErrProgramNotFound
}

func (f *fakePrograms) Count(ctx context.Context) (int, error) {
	return len(f.inserted), nil
}

func (f *fakePrograms) BulkInsert(ctx context.Context, programs []domain.Program) (int, error) {
	f.inserted = append(f.inserted, programs...)
	return len(programs), nil
}

func TestReadTestdataFromWorkingDirectory(t *testing.T) {
	chdir(t, filepath.Join("..", ".."))

	data, path, err := readTestdata("programs.json")
	if err != nil {
		t.Fatalf("readTestdata: %v", err)
	}
	if path != filepath.Join("testdata", "programs.json") {
		t.Errorf("path = %s", path)
	}
	if len(data) == 0 {
		t.Error("empty programs file")
	}
}

func TestReadTestdataMissing(t *testing.T) {
	chdir(t, t.TempDir())

	_, _, err := readTestdata("nothing-here.json")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "nothing-here.json") || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v", err)
	}
}

func TestSeedPrograms(t *testing.T) {
	chdir(t, filepath.Join("..", ".."))

	repo := &fakePrograms{}
	if err := seedPrograms(context.Background(), repo, zap.NewNop()); err != nil {
		t.Fatalf("seedPrograms: %v", err)
	}
	if len(repo.inserted) != 6 {
		t.Fatalf("inserted %d programs, want 6", len(repo.inserted))
	}
	for _, p := range repo.inserted {
		if p.Slug == "" || p.Code == "" {
			t.Errorf("incomplete program %+v", p)
		}
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory for the duration of the test and restores it after.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
