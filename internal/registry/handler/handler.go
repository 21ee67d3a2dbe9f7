// Package handler exposes the compliance registry over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clearledger/internal/registry"
	"clearledger/internal/registry/cache"
	"clearledger/internal/transport/http/shared"
	"clearledger/pkg/commitment"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/platform/sentinel"
	"clearledger/pkg/requestcontext"
)

// Service is the slice of the engine the registry handler needs.
type Service interface {
	RequestVerification(ctx context.Context, account id.AccountID, c commitment.Commitment) error
	ApproveVerification(ctx context.Context, officer, account id.AccountID, level int, expiresAt int64) error
	RevokeVerification(ctx context.Context, officer, account id.AccountID) error
	ComplianceRecord(ctx context.Context, account id.AccountID) (registry.Record, error)
}

// Handler handles registry endpoints. Status reads go through the TTL cache;
// mutations invalidate it.
type Handler struct {
	logger  *slog.Logger
	service Service
	cache   *cache.Cache
}

func New(service Service, statusCache *cache.Cache, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service, cache: statusCache}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registry/request", h.handleRequest)
	r.Post("/registry/approve", h.handleApprove)
	r.Post("/registry/revoke", h.handleRevoke)
	r.Get("/registry/status/{account}", h.handleStatus)
}

type requestVerification struct {
	Commitment string `json:"commitment"`
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	var req requestVerification
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	c, err := commitment.Parse(req.Commitment)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.RequestVerification(ctx, actor, c); err != nil {
		h.logger.WarnContext(ctx, "verification request rejected",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type approveRequest struct {
	Account   string `json:"account"`
	Level     int    `json:"level"`
	ExpiresAt int64  `json:"expires_at"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	officer := requestcontext.Actor(ctx)

	var req approveRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	account, err := id.ParseAccountID(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.ApproveVerification(ctx, officer, account, req.Level, req.ExpiresAt); err != nil {
		h.logger.WarnContext(ctx, "approval rejected",
			"error", err.Error(),
			"account", account.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	if err := h.cache.Invalidate(ctx, account); err != nil {
		h.logger.ErrorContext(ctx, "status cache invalidation failed",
			"error", err.Error(),
			"account", account.String(),
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

type revokeRequest struct {
	Account string `json:"account"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	officer := requestcontext.Actor(ctx)

	var req revokeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	account, err := id.ParseAccountID(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.RevokeVerification(ctx, officer, account); err != nil {
		h.logger.WarnContext(ctx, "revocation rejected",
			"error", err.Error(),
			"account", account.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	if err := h.cache.Invalidate(ctx, account); err != nil {
		h.logger.ErrorContext(ctx, "status cache invalidation failed",
			"error", err.Error(),
			"account", account.String(),
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if status, err := h.cache.Get(ctx, account); err == nil {
		shared.WriteJSON(w, http.StatusOK, status)
		return
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		h.logger.WarnContext(ctx, "status cache read failed",
			"error", err.Error(),
			"account", account.String(),
		)
	}

	record, err := h.service.ComplianceRecord(ctx, account)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "status read failed",
			"error", err.Error(),
			"account", account.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "status read failed"))
		return
	}

	var expiresAt int64
	if !record.ExpiresAt.IsZero() {
		expiresAt = record.ExpiresAt.Unix()
	}
	status := cache.Status{
		Account:   account.String(),
		Compliant: record.CompliantAt(requestcontext.Now(ctx)),
		Level:     record.Level,
		ExpiresAt: expiresAt,
	}
	if err := h.cache.Set(ctx, account, status); err != nil {
		h.logger.WarnContext(ctx, "status cache write failed",
			"error", err.Error(),
			"account", account.String(),
		)
	}
	shared.WriteJSON(w, http.StatusOK, status)
}
