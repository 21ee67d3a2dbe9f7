// Package handler exposes steward-only administration: capability grants
// and the per-account audit trail.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clearledger/internal/audit"
	"clearledger/internal/transport/http/shared"
	id "clearledger/pkg/domain"
	dErrors "clearledger/pkg/domain-errors"
	"clearledger/pkg/requestcontext"
)

// Service is the slice of the engine the admin handler needs.
type Service interface {
	GrantCapability(ctx context.Context, actor, account id.AccountID, capability id.Capability) error
	RevokeCapability(ctx context.Context, actor, account id.AccountID, capability id.Capability) error
}

// AuditReader lists the materialized audit trail for one account.
type AuditReader interface {
	List(ctx context.Context, account id.AccountID) ([]audit.Event, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
	trail   AuditReader
}

func New(service Service, trail AuditReader, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service, trail: trail}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/capability/grant", h.handleGrant)
	r.Post("/admin/capability/revoke", h.handleRevoke)
	r.Get("/admin/audit/{account}", h.handleAuditTrail)
}

type capabilityRequest struct {
	Account    string `json:"account"`
	Capability string `json:"capability"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	h.changeGrant(w, r, "capability grant rejected", h.service.GrantCapability)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.changeGrant(w, r, "capability revocation rejected", h.service.RevokeCapability)
}

func (h *Handler) changeGrant(w http.ResponseWriter, r *http.Request, rejectMsg string, op func(context.Context, id.AccountID, id.AccountID, id.Capability) error) {
	ctx := r.Context()
	var req capabilityRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	account, err := id.ParseAccountID(req.Account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	capability, err := id.ParseCapability(req.Capability)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := op(ctx, requestcontext.Actor(ctx), account, capability); err != nil {
		h.logger.WarnContext(ctx, rejectMsg,
			"error", err.Error(),
			"account", account.String(),
			"capability", capability.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type auditEvent struct {
	ID           string           `json:"id"`
	Sequence     uint64           `json:"sequence"`
	Kind         string           `json:"kind"`
	Actor        string           `json:"actor"`
	Account      string           `json:"account"`
	Counterparty string           `json:"counterparty,omitempty"`
	Amount       int64            `json:"amount"`
	State        map[string]int64 `json:"state,omitempty"`
	Device       string           `json:"device,omitempty"`
	Timestamp    int64            `json:"timestamp"`
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	events, err := h.trail.List(ctx, account)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail read failed",
			"error", err.Error(),
			"account", account.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "audit trail read failed"))
		return
	}
	out := make([]auditEvent, 0, len(events))
	for _, e := range events {
		out = append(out, auditEvent{
			ID:           e.ID.String(),
			Sequence:     e.Sequence,
			Kind:         string(e.Kind),
			Actor:        e.Actor.String(),
			Account:      e.Account.String(),
			Counterparty: e.Counterparty.String(),
			Amount:       e.Amount,
			State:        e.State,
			Device:       e.Device,
			Timestamp:    e.Timestamp.Unix(),
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
