// Command server runs the ledger HTTP API and the outbox worker. Business
// logic lives in the internal services; main only wires dependencies.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	adminHandler "clearledger/internal/admin/handler"
	"clearledger/internal/audit"
	"clearledger/internal/audit/outbox"
	"clearledger/internal/authz"
	"clearledger/internal/core"
	"clearledger/internal/jwtauth"
	"clearledger/internal/lending"
	lendingHandler "clearledger/internal/lending/handler"
	"clearledger/internal/platform/config"
	"clearledger/internal/platform/httpserver"
	"clearledger/internal/platform/kafka/producer"
	"clearledger/internal/platform/logger"
	"clearledger/internal/platform/metrics"
	platformredis "clearledger/internal/platform/redis"
	"clearledger/internal/registry"
	"clearledger/internal/registry/cache"
	registryHandler "clearledger/internal/registry/handler"
	"clearledger/internal/token"
	tokenHandler "clearledger/internal/token/handler"
	httptransport "clearledger/internal/transport/http"
	"clearledger/internal/vault"
	vaultHandler "clearledger/internal/vault/handler"
	id "clearledger/pkg/domain"
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
	log := logger.New("server")
	m := metrics.New()

	steward, err := id.ParseAccountID(cfg.Core.Steward)
	if err != nil {
		return fmt.Errorf("steward account: %w", err)
	}
	vaultAccount, err := id.ParseAccountID(cfg.Core.VaultAccount)
	if err != nil {
		return fmt.Errorf("vault account: %w", err)
	}
	lendingAccount, err := id.ParseAccountID(cfg.Core.LendingAccount)
	if err != nil {
		return fmt.Errorf("lending account: %w", err)
	}

	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		defer db.Close()
	} else {
		log.WarnContext(ctx, "no postgres DSN configured, using in-memory stores")
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var auditStore audit.Store
	var registryStore registry.Store
	var tokenStore token.Store
	var lendingStore lending.Store
	if db != nil {
		auditStore = audit.NewPostgresStore(db)
		registryStore = registry.NewPostgresStore(db)
		tokenStore = token.NewPostgresStore(db)
		lendingStore = lending.NewPostgresStore(db)
	} else {
		auditStore = audit.NewInMemoryStore()
		registryStore = registry.NewInMemoryStore()
		tokenStore = token.NewInMemoryStore()
		lendingStore = lending.NewInMemoryStore()
	}
	publisher := audit.NewPublisher(auditStore)

	// The steward administers grants; the system custody accounts hold only
	// what they need: the vault mints and burns, nothing else.
	table := authz.NewTable(steward, map[id.Capability][]id.AccountID{
		id.CapabilityComplianceOfficer: {steward},
		id.CapabilityTokenAdmin:        {steward},
		id.CapabilityRiskOfficer:       {steward},
		id.CapabilityTreasury:          {steward},
		id.CapabilityMinter:            {vaultAccount},
	})

	registrySvc, err := registry.NewService(ctx, registryStore, table, publisher, steward)
	if err != nil {
		return fmt.Errorf("registry service: %w", err)
	}
	tokenSvc, err := token.NewService(tokenStore, table, registrySvc, publisher)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	vaultSvc, err := vault.NewService(vaultAccount, tokenSvc, registrySvc, table, publisher, &logMover{log: log})
	if err != nil {
		return fmt.Errorf("vault service: %w", err)
	}
	lendingSvc, err := lending.NewService(ctx, lendingAccount, lendingStore, tokenSvc, registrySvc, table, publisher, lending.RiskParameters{
		MaxLTV:     cfg.Core.DefaultMaxLTV,
		AnnualRate: cfg.Core.DefaultAnnualRate,
	})
	if err != nil {
		return fmt.Errorf("lending service: %w", err)
	}

	// Custody accounts bypass the compliance gate; they are infrastructure,
	// not parties.
	for _, system := range []id.AccountID{vaultAccount, lendingAccount} {
		if err := tokenSvc.SetExempt(ctx, steward, system, true); err != nil {
			return fmt.Errorf("exempt system account %s: %w", system, err)
		}
	}

	engine, err := core.NewEngine(db, registrySvc, tokenSvc, vaultSvc, lendingSvc, table)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	validator := jwtauth.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	var statusCache *cache.Cache
	if redisClient != nil {
		statusCache = cache.New(redisClient.Client, cache.StatusTTL)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   m,
		Validator: validator,
		Registry:  registryHandler.New(engine, statusCache, log),
		Token:     tokenHandler.New(engine, log),
		Vault:     vaultHandler.New(engine, log),
		Lending:   lendingHandler.New(engine, log),
		Admin:     adminHandler.New(engine, publisher, log),
		Health: func(ctx context.Context) error {
			if db != nil {
				return db.PingContext(ctx)
			}
			return nil
		},
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		prod, err := producer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, 3)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer prod.Close()
		worker := outbox.NewWorker(db, prod, log, time.Second)
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("outbox worker: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// logMover stands in for a payment rail adapter. It accepts every movement
// and records it; deployments integrate a real rail behind vault.ValueMover.
type logMover struct {
	log *slog.Logger
}

func (m *logMover) Receive(ctx context.Context, from id.AccountID, amount int64) error {
	m.log.InfoContext(ctx, "external value received", "from", from.String(), "amount", amount)
	return nil
}

func (m *logMover) Payout(ctx context.Context, to id.AccountID, amount int64) error {
	m.log.InfoContext(ctx, "external value paid out", "to", to.String(), "amount", amount)
	return nil
}
