package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/esaputra95/webalhijrah-sub000/internal/api"
	"github.com/esaputra95/webalhijrah-sub000/internal/config"
	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
	"github.com/esaputra95/webalhijrah-sub000/internal/events"
	"github.com/esaputra95/webalhijrah-sub000/internal/gateway"
	"github.com/esaputra95/webalhijrah-sub000/internal/invoice"
	"github.com/esaputra95/webalhijrah-sub000/internal/reconciliation"
	"github.com/esaputra95/webalhijrah-sub000/internal/repository"
	"github.com/esaputra95/webalhijrah-sub000/internal/repository/postgres"
)

// donationStore is satisfied by both the sqlite and postgres repositories.
type donationStore interface {
	CreateDonation(ctx context.Context, d *domain.Donation) error
	FindDonationByInvoice(ctx context.Context, invoice string) (*domain.Donation, error)
	UpdateDonationStatusConditional(ctx context.Context, invoice string, to domain.Status, from []domain.Status) (int64, error)
	Ping(ctx context.Context) error
}

type programStore interface {
	FindProgramCodeBySlug(ctx context.Context, slug string) (string, error)
	Count(ctx context.Context) (int, error)
	BulkInsert(ctx context.Context, programs []domain.Program) (int, error)
}

func main() {
	logger, err := newLogger(os.Getenv("ENVIRONMENT"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("starting donation service",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("midtrans_environment", cfg.Midtrans.Environment))

	if cfg.IsProduction() && cfg.Midtrans.Environment != "production" {
		logger.Warn("production environment is using the sandbox gateway")
	}

	ctx := context.Background()

	donations, programs, closeDB, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer closeDB()

	// Seed programs if DB is empty.
	count, err := programs.Count(ctx)
	if err != nil {
		logger.Fatal("failed to count programs", zap.Error(err))
	}
	if count == 0 {
		logger.Info("database is empty, seeding programs from testdata")
		if err := seedPrograms(ctx, programs, logger); err != nil {
			logger.Warn("failed to seed programs", zap.Error(err))
		}
	} else {
		logger.Info("programs already present, skipping seed", zap.Int("count", count))
	}

	var codeFinder invoice.ProgramCodeFinder = programs
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, program lookups will hit the database", zap.Error(err))
		}
		codeFinder = repository.NewCachedProgramRepo(programs, rdb, cfg.Redis.TTL, logger)
		logger.Info("program cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher reconciliation.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger), logger)
		defer kp.Close()
		publisher = kp
		logger.Info("status events enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	snap := gateway.NewSnapClient(cfg.Midtrans.ServerKey, cfg.Midtrans.Environment, cfg.Midtrans.Timeout, logger)
	invoices := invoice.NewService(
		invoice.NewGenerator(cfg.Invoice.DefaultPrefix),
		gateway.NewBuilder(cfg.Server.BaseURL),
		snap,
		donations,
		codeFinder,
		cfg.Midtrans.Timeout,
		logger,
	)
	reconciler := reconciliation.NewService(donations, publisher, logger)

	router := api.NewRouter(api.Deps{
		Verifier:  gateway.NewVerifier(cfg.Midtrans.ServerKey, logger),
		Processor: reconciler,
		Invoices:  invoices,
		Donations: donations,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.Strings("endpoints", []string{
				"POST /api/v1/payments/notification",
				"POST /api/v1/donations",
				"GET  /api/v1/donations/{invoice}",
				"GET  /api/v1/health",
				"GET  /metrics",
			}))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	// Let in-flight status events reach the broker before the writer closes.
	reconciler.Wait()
	logger.Info("server exited")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (donationStore, programStore, func(), error) {
	if cfg.Database.Driver == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		logger.Info("connected to postgres")
		return postgres.NewDonationRepository(pool), postgres.NewProgramRepository(pool), pool.Close, nil
	}

	logger.Info("initializing sqlite database", zap.String("path", cfg.Database.Path))
	db, err := repository.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return repository.NewDonationRepo(db), repository.NewProgramRepo(db), func() { db.Close() }, nil
}

func seedPrograms(ctx context.Context, repo programStore, logger *zap.Logger) error {
	data, path, err := readTestdata("programs.json")
	if err != nil {
		return err
	}
	logger.Info("loaded programs", zap.String("path", path))

	var programs []domain.Program
	if err := json.Unmarshal(data, &programs); err != nil {
		return fmt.Errorf("unmarshal programs: %w", err)
	}

	inserted, err := repo.BulkInsert(ctx, programs)
	if err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}

	logger.Info("seeded programs", zap.Int("inserted", inserted), zap.Int("in_file", len(programs)))
	return nil
}

// readTestdata looks for name under testdata/ in the working directory, then
// next to the executable and two levels above it (go build output in cmd/).
func readTestdata(name string) ([]byte, string, error) {
	dirs := []string{"testdata"}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		dirs = append(dirs, filepath.Join(dir, "testdata"), filepath.Join(dir, "..", "..", "testdata"))
	}

	var lastErr error
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("could not find %s in any testdata directory: %w", name, lastErr)
}
