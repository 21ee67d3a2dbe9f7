// Command indexer consumes the audit topic and materializes events into the
// audit_events table. It runs separately from the server so event replay
// never competes with request handling.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"clearledger/internal/audit"
	"clearledger/internal/audit/indexer"
	"clearledger/internal/platform/config"
	"clearledger/internal/platform/kafka/consumer"
	"clearledger/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New("indexer")

	if cfg.Postgres.DSN == "" {
		return errors.New("indexer requires CLEARLEDGER_POSTGRES_DSN")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("indexer requires CLEARLEDGER_KAFKA_BROKERS")
	}

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	handler := indexer.NewHandler(audit.NewPostgresStore(db), log)
	c, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.AuditTopic, handler, log)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}

	log.InfoContext(ctx, "indexer started",
		"topic", cfg.Kafka.AuditTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer: %w", err)
	}
	log.Info("indexer stopped")
	return nil
}
