package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielobanda/treasury-backend/api/responses"
	"github.com/danielobanda/treasury-backend/internal/audit"
	"github.com/danielobanda/treasury-backend/pkg/logger"
	"github.com/danielobanda/treasury-backend/pkg/pagination"
)

type auditPageResponse struct {
	Entries    any    `json:"entries"`
	NextCursor string `json:"nextCursor,omitempty"`
}

func auditParams(r *http.Request) pagination.Params {
	params := pagination.Params{
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			params.Limit = limit
		}
	}
	return params
}

// AuditList pages through the full audit trail, newest first.
func AuditList(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.List(r.Context(), auditParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auditPageResponse{Entries: page.Entries, NextCursor: page.NextCursor})
	}
}

// AuditDetail returns a single audit entry.
func AuditDetail(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// AuditByTreasury pages through a treasury's audit trail, newest first.
func AuditByTreasury(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		treasuryID, err := parseUUIDParam(r, "treasuryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithTreasuryID(ctx, treasuryID.String())
		}

		page, err := svc.ListByTreasury(ctx, treasuryID, auditParams(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, auditPageResponse{Entries: page.Entries, NextCursor: page.NextCursor})
	}
}

// AuditByEntity pages through the audit trail of a single entity.
func AuditByEntity(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, err := parseUUIDParam(r, "entityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByEntity(r.Context(), entityID, auditParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, auditPageResponse{Entries: page.Entries, NextCursor: page.NextCursor})
	}
}
