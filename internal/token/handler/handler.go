// Package handler exposes the ledger token over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clearledger/internal/transport/http/shared"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/requestcontext"
)

// Service is the slice of the engine the token handler needs.
type Service interface {
	Mint(ctx context.Context, actor, to id.AccountID, amount int64) error
	Burn(ctx context.Context, actor, from id.AccountID, amount int64) error
	Transfer(ctx context.Context, from, to id.AccountID, amount int64) error
	SetExempt(ctx context.Context, actor, account id.AccountID, exempt bool) error
	BalanceOf(ctx context.Context, account id.AccountID) (int64, error)
	TotalSupply(ctx context.Context) (int64, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the token routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/token/mint", h.handleMint)
	r.Post("/token/burn", h.handleBurn)
	r.Post("/token/transfer", h.handleTransfer)
	r.Post("/token/exempt", h.handleSetExempt)
	r.Get("/token/balance/{account}", h.handleBalance)
	r.Get("/token/supply", h.handleSupply)
}

type amountRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req amountRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	to, err := id.ParseAccountID(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.Mint(ctx, requestcontext.Actor(ctx), to, req.Amount); err != nil {
		h.warn(ctx, "mint rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req amountRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	from, err := id.ParseAccountID(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.Burn(ctx, requestcontext.Actor(ctx), from, req.Amount); err != nil {
		h.warn(ctx, "burn rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req transferRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	to, err := id.ParseAccountID(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.Transfer(ctx, requestcontext.Actor(ctx), to, req.Amount); err != nil {
		h.warn(ctx, "transfer rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exemptRequest struct {
	Account string `json:"account"`
	Exempt  bool   `json:"exempt"`
}

func (h *Handler) handleSetExempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req exemptRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	account, err := id.ParseAccountID(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.SetExempt(ctx, requestcontext.Actor(ctx), account, req.Exempt); err != nil {
		h.warn(ctx, "exempt change rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type balanceResponse struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	balance, err := h.service.BalanceOf(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "balance read failed",
			"error", err.Error(),
			"account", account.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "balance read failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, balanceResponse{Account: account.String(), Balance: balance})
}

type supplyResponse struct {
	TotalSupply int64 `json:"total_supply"`
}

func (h *Handler) handleSupply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	supply, err := h.service.TotalSupply(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "supply read failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "supply read failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, supplyResponse{TotalSupply: supply})
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
