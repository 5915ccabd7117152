package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"bankledger/internal/auth"
	"bankledger/internal/middleware"
	"bankledger/internal/models"
	"bankledger/internal/userclient"
	"bankledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Register creates an active user. The first user to register becomes the
// super admin.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to secure password")
		return
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Active:       true,
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.users.Create(r.Context(), tx, user); err != nil {
			return err
		}
		hasAdmin, err := h.admins.HasAnyAdmin(r.Context(), tx)
		if err != nil {
			return err
		}
		if !hasAdmin {
			if err := h.admins.CreateAdmin(r.Context(), tx, user.ID, true, nil); err != nil {
				return err
			}
		}
		return h.audit.Log(r.Context(), tx, user.ID, "user.register", "user", user.ID, map[string]string{
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		})
	})
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			respondError(w, http.StatusConflict, "username or email already exists")
			return
		}
		h.logger.Error("registration failed", "error", err)
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	h.logger.Info("user registered", "user_id", user.ID)
	respondJSON(w, http.StatusCreated, map[string]string{"token": token, "user_id": user.ID})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("login lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.Active {
		respondError(w, http.StatusForbidden, "account disabled")
		return
	}
	if err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.audit.Log(r.Context(), tx, user.ID, "user.login", "user", user.ID, map[string]string{
			"ip":         r.RemoteAddr,
			"user_agent": r.UserAgent(),
		})
	}); err != nil {
		h.logger.Error("login audit failed", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout revokes the presented token until it would have expired.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.revocations != nil {
		h.revocations.Revoke(claims.ID)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ValidateToken answers the services' token checks. Any bearer token is
// accepted as input; invalid ones get {"valid": false} rather than an error
// status.
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		respondJSON(w, http.StatusOK, userclient.Validation{})
		return
	}
	claims, err := middleware.Authenticate(h.cfg.JWTSecret, h.revocations, token)
	if err != nil {
		respondJSON(w, http.StatusOK, userclient.Validation{})
		return
	}
	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSON(w, http.StatusOK, userclient.Validation{})
			return
		}
		h.logger.Error("token validation lookup failed", "user_id", claims.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "unable to validate token")
		return
	}
	respondJSON(w, http.StatusOK, userclient.Validation{
		Valid:    true,
		OwnerID:  user.ID,
		Username: user.Username,
		Active:   user.Active,
	})
}

// WSBalances upgrades to a websocket streaming the caller's balance changes.
// Browsers cannot set headers on upgrade requests, so ?token= is accepted.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := middleware.Authenticate(h.cfg.JWTSecret, h.revocations, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, claims.UserID)
}
