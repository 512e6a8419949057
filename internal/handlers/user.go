package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"

	"github.com/crucial707/userdir/internal/metrics"
	"github.com/crucial707/userdir/internal/middleware"
	"github.com/crucial707/userdir/internal/models"
	"github.com/crucial707/userdir/internal/repo"
)

// validate reports field errors under their JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// userInput is the write payload for create and update. The password is
// write-only; it is hashed at rest and never echoed back.
type userInput struct {
	Username  string `json:"username" validate:"required,max=150"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"required"`
}

// userResponse is the public shape of an account: exactly the writable
// fields minus the password.
type userResponse struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func toResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Repo      *repo.UserRepo
	AuditRepo *repo.AuditRepo
}

// ==========================
// Create User (open to anonymous callers; this is self-registration)
// ==========================
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input userInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if !validInput(w, input) {
		return
	}

	user, err := h.Repo.Create(r.Context(), input.Username, input.FirstName, input.LastName, input.Email, input.Password)
	if err != nil {
		if e, ok := err.(*pq.Error); ok && e.Code == "23505" {
			JSONError(w, MsgDuplicateUsername, http.StatusConflict)
			return
		}
		slog.Error("create user", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	h.audit(r, "create", user.ID, user.Username, "")
	metrics.IncUserOperation("create")

	writeJSON(w, http.StatusCreated, toResponse(user))
}

// ==========================
// List Users (staff only)
// ==========================
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
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
	users, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list users", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	total, err := h.Repo.Count(r.Context())
	if err != nil {
		slog.Error("count users", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	items := make([]userResponse, 0, len(users))
	for i := range users {
		items = append(items, toResponse(&users[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ==========================
// Get User (self or staff)
// ==========================
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		respondFetchErr(w, err)
		return
	}

	if !h.canAct(w, r, user) {
		return
	}

	writeJSON(w, http.StatusOK, toResponse(user))
}

// ==========================
// Update User (self or staff; full replace, password included)
// ==========================
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	target, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		respondFetchErr(w, err)
		return
	}

	if !h.canAct(w, r, target) {
		return
	}

	var input userInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if !validInput(w, input) {
		return
	}

	user, err := h.Repo.Update(r.Context(), id, input.Username, input.FirstName, input.LastName, input.Email, input.Password)
	if err != nil {
		if e, ok := err.(*pq.Error); ok && e.Code == "23505" {
			JSONError(w, MsgDuplicateUsername, http.StatusConflict)
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			// Row vanished between the fetch and the update.
			JSONError(w, MsgNotFound, http.StatusNotFound)
			return
		}
		slog.Error("update user", "id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	h.audit(r, "update", user.ID, user.Username, "")
	metrics.IncUserOperation("update")

	writeJSON(w, http.StatusOK, toResponse(user))
}

// ==========================
// Delete User (self or staff)
// ==========================
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	target, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		respondFetchErr(w, err)
		return
	}

	if !h.canAct(w, r, target) {
		return
	}

	if err := h.Repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			JSONError(w, MsgNotFound, http.StatusNotFound)
			return
		}
		slog.Error("delete user", "id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	h.audit(r, "delete", target.ID, target.Username, "")
	metrics.IncUserOperation("delete")

	// 204 with a completely empty body.
	w.WriteHeader(http.StatusNoContent)
}

// userID parses the {id} route parameter.
func userID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// canAct enforces the object rule: a user acts on their own account, staff
// and superusers act on any. Callers fetch the target first so a missing
// account reads as 404 no matter who asks.
func (h *UserHandler) canAct(w http.ResponseWriter, r *http.Request, target *models.User) bool {
	principal := middleware.PrincipalFrom(r.Context())
	if principal == nil {
		JSONError(w, middleware.MsgCredentialsNotProvided, http.StatusForbidden)
		return false
	}
	if principal.ID == target.ID || principal.Elevated() {
		return true
	}
	JSONError(w, MsgPermissionDenied, http.StatusForbidden)
	return false
}

// validInput runs struct validation and reports field errors under their
// JSON names. Returns false after writing the 400 response.
func validInput(w http.ResponseWriter, input userInput) bool {
	err := validate.Struct(input)
	if err == nil {
		return true
	}
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
	return false
}

// respondFetchErr maps a GetByID failure: a missing row is 404, anything
// else is a 500.
func respondFetchErr(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		JSONError(w, MsgNotFound, http.StatusNotFound)
		return
	}
	slog.Error("fetch user", "error", err)
	JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
}

// audit records a mutation. Failures are logged, never surfaced; the
// mutation already happened.
func (h *UserHandler) audit(r *http.Request, action string, targetID int, targetName, details string) {
	if h.AuditRepo == nil {
		return
	}
	actor := models.ActorAnonymous
	if p := middleware.PrincipalFrom(r.Context()); p != nil {
		actor = p.Username
	}
	if err := h.AuditRepo.Log(r.Context(), actor, action, targetID, targetName, details); err != nil {
		slog.Error("audit log", "action", action, "error", err)
	}
}

// pageParams reads limit (default 50, max 200) and offset (default 0).
func pageParams(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 200 {
			limit = val
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if val, err := strconv.Atoi(o); err == nil && val >= 0 {
			offset = val
		}
	}
	return limit, offset
}
