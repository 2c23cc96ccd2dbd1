// Command relay runs the audit pipeline: it ships pending outbox entries from
// postgres to Kafka and consumes the audit topic back into the queryable
// audit_events table, alerting on security-category events. Requires both
// DATABASE_URL and KAFKA_BROKERS.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"turnstile/internal/platform/config"
	kafkaConsumer "turnstile/internal/platform/kafka/consumer"
	kafkaProducer "turnstile/internal/platform/kafka/producer"
	"turnstile/internal/platform/logger"
	audit "turnstile/pkg/platform/audit"
	auditConsumer "turnstile/pkg/platform/audit/consumer"
	auditRelay "turnstile/pkg/platform/audit/relay"
	auditPostgres "turnstile/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("relay exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Postgres.DSN == "" {
		return errors.New("DATABASE_URL is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	store := auditPostgres.New(db)

	producer, err := kafkaProducer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		return fmt.Errorf("connect kafka producer: %w", err)
	}
	defer producer.Close()

	consumer, err := kafkaConsumer.New(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.AuditTopic)
	if err != nil {
		return fmt.Errorf("connect kafka consumer: %w", err)
	}
	defer consumer.Close()

	relay := auditRelay.New(store, producer, log, cfg.Audit.RelayInterval, cfg.Audit.RelayBatch)

	router := auditConsumer.NewRouter(store, log)
	router.On(audit.CategorySecurity, func(ctx context.Context, event audit.Event) {
		log.WarnContext(ctx, "security audit event",
			"action", event.Action,
			"subject", event.Subject,
			"reason", event.Reason,
			"device_id", event.DeviceID,
		)
	})

	log.Info("starting audit relay",
		"topic", cfg.Kafka.AuditTopic,
		"group", cfg.Kafka.GroupID,
		"interval", cfg.Audit.RelayInterval,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(ctx) })
	g.Go(func() error { return consumer.Run(ctx, router.Handle) })
	return g.Wait()
}
