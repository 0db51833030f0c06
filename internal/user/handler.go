package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-crud-api/internal/auth"
	itementity "github.com/ovaphlow/pitchfork/service-crud-api/internal/item/entity"
	"github.com/ovaphlow/pitchfork/service-crud-api/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-crud-api/pkg/utilities"
)

// ItemLister is the slice of the item service needed to embed a user's items.
type ItemLister interface {
	ListForOwner(ctx context.Context, ownerID int64, skip, limit int) ([]itementity.Item, error)
}

// Handler exposes HTTP endpoints for login and user management.
type Handler struct {
	svc    *UserService
	items  ItemLister
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, items ItemLister, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, items: items, logger: logger}
}

// UserResponse is a user together with the items they own.
type UserResponse struct {
	entity.User
	Items []itementity.Item `json:"items"`
}

// TokenResponse is returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token exchanges form-encoded username and password for a bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		utilities.WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	tok, err := h.svc.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.logger.Debugw("login failed", "username", username)
			w.Header().Set("WWW-Authenticate", "Bearer")
			utilities.WriteError(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.internal(w, "login", err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: tok, TokenType: "bearer"})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := utilities.ParsePage(r)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	users, err := h.svc.List(r.Context(), skip, limit)
	if err != nil {
		h.internal(w, "list users", err)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp, err := h.withItems(r.Context(), u)
		if err != nil {
			h.internal(w, "list users", err)
			return
		}
		out = append(out, resp)
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	h.respond(w, r, http.StatusOK, *u)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utilities.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		h.internal(w, "get user", err)
		return
	}
	h.respond(w, r, http.StatusOK, *u)
}

// Create registers a new user from a JSON body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req entity.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			utilities.WriteError(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, ErrUsernameTaken):
			utilities.WriteError(w, http.StatusBadRequest, "Username already registered")
		case errors.Is(err, ErrInvalidUser):
			utilities.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.internal(w, "signup", err)
		}
		return
	}
	h.logger.Infow("user registered", "id", u.ID, "username", u.Username)
	h.respond(w, r, http.StatusCreated, *u)
}

// Update changes the caller's password. Other fields in the body are ignored.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	current, ok := auth.CurrentUser(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var req entity.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == nil {
		utilities.WriteError(w, http.StatusBadRequest, "password is required")
		return
	}
	u, err := h.svc.ChangePassword(r.Context(), *current, *req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUser):
			utilities.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrUserNotFound):
			utilities.WriteError(w, http.StatusNotFound, "Not found")
		default:
			h.internal(w, "change password", err)
		}
		return
	}
	h.respond(w, r, http.StatusOK, *u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utilities.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		h.internal(w, "delete user", err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{
		"detail": fmt.Sprintf("User with id %d successfully deleted", u.ID),
	})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, u entity.User) {
	resp, err := h.withItems(r.Context(), u)
	if err != nil {
		h.internal(w, "load items", err)
		return
	}
	utilities.WriteJSON(w, status, resp)
}

func (h *Handler) withItems(ctx context.Context, u entity.User) (UserResponse, error) {
	items, err := h.items.ListForOwner(ctx, u.ID, 0, math.MaxInt32)
	if err != nil {
		return UserResponse{}, err
	}
	return UserResponse{User: u, Items: items}, nil
}

func (h *Handler) internal(w http.ResponseWriter, op string, err error) {
	h.logger.Errorw(op+" failed", "err", err)
	utilities.WriteError(w, http.StatusInternalServerError, "internal error")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
