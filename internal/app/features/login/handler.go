// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"net/http"

	userstore "github.com/dalemusser/hackhub/internal/app/store/users"
	"github.com/dalemusser/hackhub/internal/app/system/auth"
	"github.com/dalemusser/hackhub/internal/app/system/credentials"
	"github.com/dalemusser/hackhub/internal/app/system/render"
	"github.com/dalemusser/hackhub/internal/app/system/timeouts"
	"github.com/dalemusser/hackhub/internal/domain/workflow"
	"go.uber.org/zap"
)

// Handler exchanges email/password for a bearer token.
type Handler struct {
	users  *userstore.Store
	issuer *credentials.Issuer
	tokens *auth.Manager
	log    *zap.Logger
}

func NewHandler(users *userstore.Store, issuer *credentials.Issuer, tokens *auth.Manager, logger *zap.Logger) *Handler {
	return &Handler{users: users, issuer: issuer, tokens: tokens, log: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token         string `json:"token"`
	UserID        string `json:"user_id"`
	FullName      string `json:"full_name"`
	Role          string `json:"role"`
	InstituteCode string `json:"institute_code"`
}

// ServeLogin handles POST /login. A bad email and a bad password get
// the same answer.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Error(w, workflow.ErrValidation)
		return
	}
	if req.Email == "" || req.Password == "" {
		render.Error(w, workflow.ErrValidation)
		return
	}

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		render.Error(w, err)
		return
	}
	if user == nil || !h.issuer.Verify(user.PasswordHash, req.Password) {
		render.Error(w, workflow.ErrNotAuthorized)
		return
	}

	token, err := h.tokens.Mint(auth.Identity{
		UserID:        user.ID,
		Role:          user.Role,
		InstituteCode: user.InstituteCode,
	})
	if err != nil {
		render.Error(w, err)
		return
	}
	h.log.Info("signed in",
		zap.String("user_id", user.ID.Hex()),
		zap.String("role", user.Role))
	render.JSON(w, http.StatusOK, loginResponse{
		Token:         token,
		UserID:        user.ID.Hex(),
		FullName:      user.FullName,
		Role:          user.Role,
		InstituteCode: user.InstituteCode,
	})
}
