// Package handler exposes the lending facility over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clearledger/internal/lending"
	"clearledger/internal/transport/http/shared"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/requestcontext"
)

// Service is the slice of the engine the lending handler needs.
type Service interface {
	DepositCollateral(ctx context.Context, caller id.AccountID, amount int64) error
	WithdrawCollateral(ctx context.Context, caller id.AccountID, amount int64) error
	Borrow(ctx context.Context, caller id.AccountID, amount int64) error
	Repay(ctx context.Context, caller id.AccountID, amount int64) error
	SetRiskParameters(ctx context.Context, actor id.AccountID, maxLTV, annualRate int64) error
	LendingAccount(ctx context.Context, account id.AccountID) (lending.Position, error)
	RiskParameters(ctx context.Context) (lending.RiskParameters, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the lending routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/lending/collateral", h.handleDepositCollateral)
	r.Post("/lending/collateral/withdraw", h.handleWithdrawCollateral)
	r.Post("/lending/borrow", h.handleBorrow)
	r.Post("/lending/repay", h.handleRepay)
	r.Post("/lending/params", h.handleSetParams)
	r.Get("/lending/params", h.handleGetParams)
	r.Get("/lending/account/{account}", h.handleGetAccount)
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) handleDepositCollateral(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "collateral deposit rejected", h.service.DepositCollateral)
}

func (h *Handler) handleWithdrawCollateral(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "collateral withdrawal rejected", h.service.WithdrawCollateral)
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "borrow rejected", h.service.Borrow)
}

func (h *Handler) handleRepay(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "repayment rejected", h.service.Repay)
}

// mutate runs the shared decode/call/error pattern of the amount endpoints.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, rejectMsg string, op func(context.Context, id.AccountID, int64) error) {
	ctx := r.Context()
	var req amountRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := op(ctx, requestcontext.Actor(ctx), req.Amount); err != nil {
		h.logger.WarnContext(ctx, rejectMsg,
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paramsRequest struct {
	MaxLTV     int64 `json:"max_ltv"`
	AnnualRate int64 `json:"annual_rate"`
}

func (h *Handler) handleSetParams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req paramsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.SetRiskParameters(ctx, requestcontext.Actor(ctx), req.MaxLTV, req.AnnualRate); err != nil {
		h.logger.WarnContext(ctx, "risk parameter change rejected",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paramsResponse struct {
	MaxLTV     int64 `json:"max_ltv"`
	AnnualRate int64 `json:"annual_rate"`
	Version    int64 `json:"version"`
}

func (h *Handler) handleGetParams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, err := h.service.RiskParameters(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "risk parameter read failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "risk parameter read failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, paramsResponse{
		MaxLTV:     params.MaxLTV,
		AnnualRate: params.AnnualRate,
		Version:    params.Version,
	})
}

type accountResponse struct {
	Account    string `json:"account"`
	Collateral int64  `json:"collateral"`
	Debt       int64  `json:"debt"`
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	position, err := h.service.LendingAccount(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "position read failed",
			"error", err.Error(),
			"account", account.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "position read failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, accountResponse{
		Account:    account.String(),
		Collateral: position.Collateral,
		Debt:       position.Debt,
	})
}
