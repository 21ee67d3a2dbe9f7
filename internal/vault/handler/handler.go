// Package handler exposes the vault over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clearledger/internal/transport/http/shared"
	id "clearledger/pkg/domain"
	"clearledger/pkg/requestcontext"
)

// Service is the slice of the engine the vault handler needs.
type Service interface {
	VaultDeposit(ctx context.Context, caller id.AccountID, amount int64) error
	VaultWithdraw(ctx context.Context, caller id.AccountID, amount int64) error
	VaultTransfer(ctx context.Context, caller, to id.AccountID, amount int64) error
	SweepStray(ctx context.Context, actor, to id.AccountID, amount int64) error
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the vault routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/vault/deposit", h.handleDeposit)
	r.Post("/vault/withdraw", h.handleWithdraw)
	r.Post("/vault/transfer", h.handleTransfer)
	r.Post("/vault/sweep", h.handleSweep)
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req amountRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.VaultDeposit(ctx, requestcontext.Actor(ctx), req.Amount); err != nil {
		h.warn(ctx, "deposit rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req amountRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.VaultWithdraw(ctx, requestcontext.Actor(ctx), req.Amount); err != nil {
		h.warn(ctx, "withdraw rejected", err)
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
	if err := h.service.VaultTransfer(ctx, requestcontext.Actor(ctx), to, req.Amount); err != nil {
		h.warn(ctx, "vault transfer rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.SweepStray(ctx, requestcontext.Actor(ctx), to, req.Amount); err != nil {
		h.warn(ctx, "sweep rejected", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
