// Package core serializes every state-changing operation behind a single
// lock. The components below it (registry, token, vault, lending) are
// written for one writer at a time; the engine is what provides that.
package core

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"clearledger/internal/authz"
	"clearledger/internal/lending"
	"clearledger/internal/registry"
	"clearledger/internal/token"
	"clearledger/internal/vault"
	"clearledger/pkg/commitment"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	txcontext "clearledger/pkg/platform/tx"
)

const tracerName = "clearledger/core"

// Engine is the single entry point for all operations. Mutations take the
// write lock; reads go straight through to the component services. When a
// database is attached, each mutation runs inside one transaction so the
// state change and its outbox row commit or roll back together.
type Engine struct {
	mu       sync.Mutex
	db       *sql.DB
	registry *registry.Service
	token    *token.Service
	vault    *vault.Service
	lending  *lending.Service
	table    *authz.Table
	tracer   trace.Tracer
}

// NewEngine wires the component services behind the write lock. db may be
// nil when the stores are in-memory.
func NewEngine(db *sql.DB, reg *registry.Service, tok *token.Service, vlt *vault.Service, lnd *lending.Service, table *authz.Table) (*Engine, error) {
	if reg == nil || tok == nil || vlt == nil || lnd == nil || table == nil {
		return nil, errors.New("all engine components are required")
	}
	return &Engine{
		db:       db,
		registry: reg,
		token:    tok,
		vault:    vlt,
		lending:  lnd,
		table:    table,
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}, nil
}

type inflightKey struct{}

// mutate runs fn under the write lock inside a span named for the operation.
// Re-entry from within an operation (a value mover calling back into the
// engine) is rejected rather than left to deadlock on the lock; the context
// marker survives into the callback, the goroutine does not.
func (e *Engine) mutate(ctx context.Context, op string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	if ctx.Value(inflightKey{}) != nil {
		return dErrors.New(dErrors.CodeReentrantCall, "engine operation already in progress")
	}
	ctx = context.WithValue(ctx, inflightKey{}, struct{}{})

	ctx, span := e.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	run := fn
	if e.db != nil {
		run = func(ctx context.Context) error {
			return txcontext.Run(ctx, e.db, fn)
		}
	}
	if err := run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Registry operations.

func (e *Engine) RequestVerification(ctx context.Context, account id.AccountID, c commitment.Commitment) error {
	return e.mutate(ctx, "registry.request_verification", func(ctx context.Context) error {
		return e.registry.RequestVerification(ctx, account, c)
	}, attribute.String("account", account.String()))
}

func (e *Engine) ApproveVerification(ctx context.Context, officer, account id.AccountID, level int, expiresAt int64) error {
	return e.mutate(ctx, "registry.approve", func(ctx context.Context) error {
		return e.registry.Approve(ctx, officer, account, level, expiresAt)
	}, attribute.String("account", account.String()), attribute.Int("level", level))
}

func (e *Engine) RevokeVerification(ctx context.Context, officer, account id.AccountID) error {
	return e.mutate(ctx, "registry.revoke", func(ctx context.Context) error {
		return e.registry.Revoke(ctx, officer, account)
	}, attribute.String("account", account.String()))
}

func (e *Engine) IsCompliant(ctx context.Context, account id.AccountID) (bool, error) {
	return e.registry.IsCompliant(ctx, account)
}

func (e *Engine) ComplianceRecord(ctx context.Context, account id.AccountID) (registry.Record, error) {
	return e.registry.GetRecord(ctx, account)
}

// Token operations.

func (e *Engine) Mint(ctx context.Context, actor, to id.AccountID, amount int64) error {
	return e.mutate(ctx, "token.mint", func(ctx context.Context) error {
		return e.token.Mint(ctx, actor, to, amount)
	}, attribute.String("account", to.String()), attribute.Int64("amount", amount))
}

func (e *Engine) Burn(ctx context.Context, actor, from id.AccountID, amount int64) error {
	return e.mutate(ctx, "token.burn", func(ctx context.Context) error {
		return e.token.Burn(ctx, actor, from, amount)
	}, attribute.String("account", from.String()), attribute.Int64("amount", amount))
}

func (e *Engine) Transfer(ctx context.Context, from, to id.AccountID, amount int64) error {
	return e.mutate(ctx, "token.transfer", func(ctx context.Context) error {
		return e.token.Transfer(ctx, from, to, amount)
	}, attribute.String("from", from.String()), attribute.String("to", to.String()), attribute.Int64("amount", amount))
}

func (e *Engine) SetExempt(ctx context.Context, actor, account id.AccountID, exempt bool) error {
	return e.mutate(ctx, "token.set_exempt", func(ctx context.Context) error {
		return e.token.SetExempt(ctx, actor, account, exempt)
	}, attribute.String("account", account.String()), attribute.Bool("exempt", exempt))
}

func (e *Engine) BalanceOf(ctx context.Context, account id.AccountID) (int64, error) {
	return e.token.BalanceOf(ctx, account)
}

func (e *Engine) TotalSupply(ctx context.Context) (int64, error) {
	return e.token.TotalSupply(ctx)
}

// Vault operations.

func (e *Engine) VaultDeposit(ctx context.Context, caller id.AccountID, amount int64) error {
	return e.mutate(ctx, "vault.deposit", func(ctx context.Context) error {
		return e.vault.Deposit(ctx, caller, amount)
	}, attribute.String("account", caller.String()), attribute.Int64("amount", amount))
}

func (e *Engine) VaultWithdraw(ctx context.Context, caller id.AccountID, amount int64) error {
	return e.mutate(ctx, "vault.withdraw", func(ctx context.Context) error {
		return e.vault.Withdraw(ctx, caller, amount)
	}, attribute.String("account", caller.String()), attribute.Int64("amount", amount))
}

func (e *Engine) VaultTransfer(ctx context.Context, caller, to id.AccountID, amount int64) error {
	return e.mutate(ctx, "vault.transfer", func(ctx context.Context) error {
		return e.vault.TransferCompliant(ctx, caller, to, amount)
	}, attribute.String("from", caller.String()), attribute.String("to", to.String()), attribute.Int64("amount", amount))
}

func (e *Engine) SweepStray(ctx context.Context, actor, to id.AccountID, amount int64) error {
	return e.mutate(ctx, "vault.sweep_stray", func(ctx context.Context) error {
		return e.vault.SweepStray(ctx, actor, to, amount)
	}, attribute.String("to", to.String()), attribute.Int64("amount", amount))
}

func (e *Engine) VaultBacking() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vault.Backing()
}

// Lending operations.

func (e *Engine) DepositCollateral(ctx context.Context, caller id.AccountID, amount int64) error {
	return e.mutate(ctx, "lending.deposit_collateral", func(ctx context.Context) error {
		return e.lending.DepositCollateral(ctx, caller, amount)
	}, attribute.String("account", caller.String()), attribute.Int64("amount", amount))
}

func (e *Engine) WithdrawCollateral(ctx context.Context, caller id.AccountID, amount int64) error {
	return e.mutate(ctx, "lending.withdraw_collateral", func(ctx context.Context) error {
		return e.lending.WithdrawCollateral(ctx, caller, amount)
	}, attribute.String("account", caller.String()), attribute.Int64("amount", amount))
}

func (e *Engine) Borrow(ctx context.Context, caller id.AccountID, amount int64) error {
	return e.mutate(ctx, "lending.borrow", func(ctx context.Context) error {
		return e.lending.Borrow(ctx, caller, amount)
	}, attribute.String("account", caller.String()), attribute.Int64("amount", amount))
}

func (e *Engine) Repay(ctx context.Context, caller id.AccountID, amount int64) error {
	return e.mutate(ctx, "lending.repay", func(ctx context.Context) error {
		return e.lending.Repay(ctx, caller, amount)
	}, attribute.String("account", caller.String()), attribute.Int64("amount", amount))
}

func (e *Engine) SetRiskParameters(ctx context.Context, actor id.AccountID, maxLTV, annualRate int64) error {
	return e.mutate(ctx, "lending.set_risk_parameters", func(ctx context.Context) error {
		return e.lending.SetRiskParameters(ctx, actor, maxLTV, annualRate)
	}, attribute.Int64("max_ltv", maxLTV), attribute.Int64("annual_rate", annualRate))
}

func (e *Engine) LendingAccount(ctx context.Context, account id.AccountID) (lending.Position, error) {
	return e.lending.GetAccount(ctx, account)
}

func (e *Engine) RiskParameters(ctx context.Context) (lending.RiskParameters, error) {
	return e.lending.GetRiskParameters(ctx)
}

// Capability administration.

func (e *Engine) GrantCapability(ctx context.Context, actor, account id.AccountID, capability id.Capability) error {
	return e.mutate(ctx, "authz.grant", func(ctx context.Context) error {
		return e.table.Grant(ctx, actor, account, capability)
	}, attribute.String("account", account.String()), attribute.String("capability", capability.String()))
}

func (e *Engine) RevokeCapability(ctx context.Context, actor, account id.AccountID, capability id.Capability) error {
	return e.mutate(ctx, "authz.revoke", func(ctx context.Context) error {
		return e.table.Revoke(ctx, actor, account, capability)
	}, attribute.String("account", account.String()), attribute.String("capability", capability.String()))
}

func (e *Engine) HoldsCapability(ctx context.Context, account id.AccountID, capability id.Capability) bool {
	return e.table.Holds(ctx, account, capability)
}
