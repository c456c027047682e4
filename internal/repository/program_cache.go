package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const programCodeNamespace = "program:code"

// ProgramCodeFinder resolves a program slug to its invoice code.
type ProgramCodeFinder interface {
	FindProgramCodeBySlug(ctx context.Context, slug string) (string, error)
}

// CachedProgramRepo puts redis in front of a ProgramCodeFinder. Redis errors
// degrade to a direct lookup.
type CachedProgramRepo struct {
	next   ProgramCodeFinder
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProgramRepo(next ProgramCodeFinder, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedProgramRepo {
	return &CachedProgramRepo{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedProgramRepo) FindProgramCodeBySlug(ctx context.Context, slug string) (string, error) {
	key := programCodeNamespace + ":" + slug

	code, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return code, nil
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("program cache read failed", zap.String("slug", slug), zap.Error(err))
	}

	code, err = c.next.FindProgramCodeBySlug(ctx, slug)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, code, c.ttl).Err(); err != nil {
		c.logger.Warn("program cache write failed", zap.String("slug", slug), zap.Error(err))
	}
	return code, nil
}
