package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rthakur/expenso/internal/auth"
	"github.com/rthakur/expenso/internal/models"
)

// Gateway serves the authentication endpoints. It is the only component
// that authenticates identity; everything behind it receives an asserted
// user ID and performs authorization only.
type Gateway struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
}

// NewGateway creates the auth gateway.
func NewGateway(authenticator auth.Authenticator, jwtManager *auth.JWTManager) *Gateway {
	return &Gateway{authenticator: authenticator, jwtManager: jwtManager}
}

// Routes registers the gateway endpoints on the mux.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", g.handleRegister)
	mux.HandleFunc("POST /auth/login", g.handleLogin)
}

type userDoc struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

type sessionResponse struct {
	Status string  `json:"status"`
	User   userDoc `json:"user"`
	Token  string  `json:"token"`
}

func (g *Gateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.DisplayName == "" {
		writeAuthError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	user, err := g.authenticator.Register(r.Context(), in.Email, in.DisplayName, in.Password)
	if err != nil {
		slog.Warn("registration failed", "email", in.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			writeAuthError(w, http.StatusConflict, err.Error())
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
			writeAuthError(w, http.StatusBadRequest, err.Error())
		default:
			writeAuthError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	g.writeSession(w, user)
	slog.Info("user registered", "user_id", user.ID, "email", user.Email)
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := g.authenticator.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		slog.Warn("login failed", "email", in.Email)
		writeAuthError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	g.writeSession(w, user)
	slog.Info("user logged in", "user_id", user.ID)
}

func (g *Gateway) writeSession(w http.ResponseWriter, user *models.User) {
	token, err := g.jwtManager.Generate(user)
	if err != nil {
		slog.Error("failed to generate token", "user_id", user.ID, "error", err)
		writeAuthError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Status: "success",
		User: userDoc{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			CreatedAt:   user.CreatedAt,
		},
		Token: token,
	})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}
