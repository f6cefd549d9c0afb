package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/todoweb/server/internal/auth"
	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/types"
)

const (
	maxFormBytes = 1 << 20

	maxUsernameLen = 50
	maxEmailLen    = 100

	formFieldUsername = "username"
	formFieldEmail    = "email"
	formFieldPassword = "password"
	formFieldTitle    = "title"
	formFieldDesc     = "description"

	msgTodoNotFound = "Todo not found"
	msgInternal     = "Internal Server Error"
)

var errInvalidTodoID = errors.New("invalid todo id")

// Healthz reports that the process is serving.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}

// writeInternal logs err and answers with a generic 500.
func writeInternal(w http.ResponseWriter, r *http.Request, log logging.Logger, msg string, err error) {
	log.Error(r.Context(), msg, "error", err, "path", r.URL.Path, "method", r.Method)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}

// parseTodoID accepts only ids that fit the int4 todos.id column; anything
// larger cannot name a row.
func parseTodoID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "todoID")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id < 1 {
		return 0, errInvalidTodoID
	}
	return int(id), nil
}

// requireUserID reads the id stored by auth.RequireAuthenticated. Routes
// using it must be mounted behind that middleware.
func requireUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return 0, false
	}
	return userID, true
}

func validateTodo(title, description string) string {
	if utf8.RuneCountInString(title) > types.MaxTodoTitleLen {
		return "Title must be at most 200 characters"
	}
	if utf8.RuneCountInString(description) > types.MaxTodoDescriptionLen {
		return "Description must be at most 500 characters"
	}
	return ""
}
