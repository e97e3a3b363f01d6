package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"medeasy/pharmacy/domain"
	"medeasy/pharmacy/internal/policy"
)

// Authentication helpers

type authClaims struct {
	UserID int64       `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(u *domain.User) (string, error) {
	now := h.now()
	claims := authClaims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		}, jwt.WithTimeFunc(h.now))
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok || claims.UserID <= 0 || !claims.Role.Valid() {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) (int64, domain.Role) {
	id, _ := r.Context().Value(ctxUserID).(int64)
	role, _ := r.Context().Value(ctxRole).(domain.Role)
	return id, role
}

// requireCapability writes 403 and returns false when the caller lacks c.
func (h *Handler) requireCapability(w http.ResponseWriter, r *http.Request, c policy.Capability) bool {
	_, role := currentUser(r)
	if err := policy.Authorize(role, c); err != nil {
		respondError(w, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}

// Auth Handlers

type loginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.store.UserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.writeError(w, r, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

type registerRequest struct {
	Username string      `json:"username" validate:"notblank,max=64"`
	Password string      `json:"password" validate:"min=6"`
	Name     string      `json:"name" validate:"notblank"`
	Role     domain.Role `json:"role" validate:"oneof=admin pharmacist staff"`
	Initials string      `json:"initials" validate:"omitempty,max=3"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ManageUsers) {
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user := &domain.User{
		Username: req.Username,
		Password: string(hashed),
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
		Initials: strings.ToUpper(strings.TrimSpace(req.Initials)),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			respondError(w, http.StatusConflict, "username already exists")
			return
		}
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]*domain.User{"user": user})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	uid, _ := currentUser(r)
	user, err := h.store.UserByID(r.Context(), uid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type resetPasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"min=6,nefield=CurrentPassword"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	uid, _ := currentUser(r)
	user, err := h.store.UserByID(r.Context(), uid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
		h.writeError(w, r, domain.Invalid("currentPassword", "mismatch"))
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.store.UpdatePassword(r.Context(), uid, string(hashed)); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireCapability(w, r, policy.ManageUsers) {
		return
	}
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}
