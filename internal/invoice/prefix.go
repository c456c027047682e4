package invoice

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
	"github.com/esaputra95/webalhijrah-sub000/internal/metrics"
)

// ProgramCodeFinder looks up the invoice code of a program by slug.
type ProgramCodeFinder interface {
	FindProgramCodeBySlug(ctx context.Context, slug string) (string, error)
}

// resolvePrefix picks the invoice prefix: an explicit code wins, then a
// lookup by slug, then "" which lets the generator apply its default.
// Lookup problems are never fatal.
func (s *Service) resolvePrefix(ctx context.Context, code, slug string) string {
	if code != "" {
		return code
	}
	if slug == "" || s.programs == nil {
		return ""
	}

	found, err := s.programs.FindProgramCodeBySlug(ctx, slug)
	switch {
	case err == nil && found != "":
		return found
	case err == nil:
		s.prefixFallback(slug, "empty_code", nil)
	case errors.Is(err, domain.ErrProgramNotFound):
		s.prefixFallback(slug, "not_found", nil)
	default:
		s.prefixFallback(slug, "lookup_error", err)
	}
	return ""
}

func (s *Service) prefixFallback(slug, reason string, err error) {
	metrics.PrefixFallbackTotal.WithLabelValues(reason).Inc()

	fields := []zap.Field{
		zap.String("program", slug),
		zap.String("reason", reason),
		zap.String("prefix", s.numbers.DefaultPrefix()),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Warn("invoice prefix fell back to default", fields...)
}
