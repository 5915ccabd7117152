package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"slices"
	"strings"

	"bankledger/internal/apperrors"
	"bankledger/internal/models"
	"bankledger/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

var grantableRoles = []string{store.RoleManageLoans, store.RoleManageUsers, store.RoleViewAudit}

type promoteRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

// PromoteAdmin makes a user (by email or username) a regular admin. Super
// admins only.
func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireSuper(w, r)
	if !ok {
		return
	}
	var req promoteRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	target, err := h.resolveUser(r.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("resolve user failed", "identifier", req.Identifier, "error", err)
		respondError(w, http.StatusInternalServerError, "unable to resolve user")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admins.CreateAdmin(r.Context(), tx, target.ID, false, &userID); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "admin.promote", "admin", target.ID, map[string]string{
			"target_user_id": target.ID,
		})
	})
	if err != nil {
		h.logger.Error("promote admin failed", "target_user_id", target.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "unable to promote admin")
		return
	}
	h.logger.Info("admin promoted", "actor_id", userID, "target_user_id", target.ID)
	respondJSON(w, http.StatusCreated, map[string]string{"status": "promoted", "user_id": target.ID})
}

type grantRoleRequest struct {
	AdminUserID string `json:"admin_user_id" validate:"required"`
	Role        string `json:"role" validate:"required"`
}

// GrantRole gives a role to a regular admin. Super admins only.
func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireSuper(w, r)
	if !ok {
		return
	}
	var req grantRoleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !slices.Contains(grantableRoles, req.Role) {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}
	target, isAdmin, err := h.admins.Lookup(r.Context(), req.AdminUserID)
	if err != nil {
		h.logger.Error("admin lookup failed", "user_id", req.AdminUserID, "error", err)
		respondError(w, http.StatusInternalServerError, "unable to verify target admin")
		return
	}
	if !isAdmin {
		respondError(w, http.StatusBadRequest, "target is not an admin")
		return
	}
	if target.IsSuper {
		respondError(w, http.StatusBadRequest, "cannot assign roles to super admin")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admins.GrantRole(r.Context(), tx, req.AdminUserID, req.Role); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, userID, "admin.grant_role", "admin_role", req.AdminUserID, map[string]string{
			"role": req.Role,
		})
	})
	if err != nil {
		h.logger.Error("grant role failed", "admin_user_id", req.AdminUserID, "error", err)
		respondError(w, http.StatusInternalServerError, "unable to grant role")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "role_granted"})
}

// ListAuditLogs pages through the audit trail, optionally filtered by
// ?entity_type= and ?entity_id=.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rows, err := h.audit.List(r.Context(), query.Get("entity_type"), query.Get("entity_id"), pageFromQuery(r))
	if err != nil {
		h.logger.Error("list audit logs failed", "error", err)
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// AdminUpdateLoanStatus moves any owner's loan through its lifecycle.
func (h *Handler) AdminUpdateLoanStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	loan, err := h.loans.UpdateStatus(r.Context(), chi.URLParam(r, "id"), userID, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, loan)
}

type userActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AdminSetUserActive enables or disables a user. Disabled users fail token
// validation, which blocks card and loan origination.
func (h *Handler) AdminSetUserActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req userActiveRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	targetID := chi.URLParam(r, "id")
	active := *req.Active
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		found, err := h.users.SetActive(r.Context(), tx, targetID, active)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.Wrap(apperrors.ErrNotFound, "user %s not found", targetID)
		}
		return h.audit.Log(r.Context(), tx, userID, "user.set_active", "user", targetID, map[string]bool{
			"active": active,
		})
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user_id": targetID, "active": active})
}

func (h *Handler) requireSuper(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := caller(w, r)
	if !ok {
		return "", false
	}
	admin, isAdmin, err := h.admins.Lookup(r.Context(), userID)
	if err != nil {
		h.logger.Error("admin lookup failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "unable to verify admin")
		return "", false
	}
	if !isAdmin || !admin.IsSuper {
		respondError(w, http.StatusForbidden, "super_admin_required")
		return "", false
	}
	return userID, true
}

func (h *Handler) resolveUser(ctx context.Context, identifier string) (models.User, error) {
	if strings.Contains(identifier, "@") {
		return h.users.GetByEmail(ctx, identifier)
	}
	return h.users.GetByUsername(ctx, identifier)
}
