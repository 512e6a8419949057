package handlers

import (
	"log/slog"
	"net/http"

	"github.com/crucial707/userdir/internal/middleware"
	"github.com/crucial707/userdir/internal/models"
	"github.com/crucial707/userdir/internal/repo"
)

// AuditHandler serves the audit log. Staff only.
type AuditHandler struct {
	Repo *repo.AuditRepo
}

// ListAudit returns recent audit log entries, newest first.
// Query: limit (default 50, max 200), offset (default 0).
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r.Context())
	if principal == nil {
		JSONError(w, middleware.MsgCredentialsNotProvided, http.StatusForbidden)
		return
	}
	if !principal.Elevated() {
		JSONError(w, MsgPermissionDenied, http.StatusForbidden)
		return
	}

	limit, offset := pageParams(r)
	entries, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list audit", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}
