package handlers

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/todoweb/server/internal/auth"
	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/services"
)

const msgInvalidCredentials = "Invalid email or password"

// AuthHandler serves registration, login and logout pages.
type AuthHandler struct {
	userService *services.UserService
	sessions    *auth.Manager
	views       *Views
	log         logging.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessions *auth.Manager, views *Views, log logging.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		views:       views,
		log:         log,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Get("/register", handler.RegisterForm)
	r.Post("/register", handler.Register)
	r.Get("/login", handler.LoginForm)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageRegister, pageData{})
}

// Register creates the account and sends the browser to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	username := r.PostForm.Get(formFieldUsername)
	email := r.PostForm.Get(formFieldEmail)
	password := r.PostForm.Get(formFieldPassword)
	data := pageData{Username: username, Email: email}

	if utf8.RuneCountInString(username) > maxUsernameLen || utf8.RuneCountInString(email) > maxEmailLen {
		data.Error = "Username must be at most 50 characters and email at most 100"
		h.renderPage(w, r, http.StatusBadRequest, pageRegister, data)
		return
	}

	user, err := h.userService.Register(r.Context(), username, email, password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateCredential):
			data.Error = "Username or email already registered"
			h.renderPage(w, r, http.StatusConflict, pageRegister, data)
		case errors.Is(err, services.ErrPasswordTooLong):
			data.Error = "Password must be at most 72 bytes"
			h.renderPage(w, r, http.StatusBadRequest, pageRegister, data)
		default:
			writeInternal(w, r, h.log, "register failed", err)
		}
		return
	}

	h.log.Info(r.Context(), "user registered", "user_id", user.ID)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, pageLogin, pageData{})
}

// Login starts a session and sends the browser home. Unknown email and wrong
// password produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	email := r.PostForm.Get(formFieldEmail)
	password := r.PostForm.Get(formFieldPassword)

	if _, err := h.sessions.Login(w, r, email, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.renderPage(w, r, http.StatusUnauthorized, pageLogin, pageData{Email: email, Error: msgInvalidCredentials})
			return
		}
		writeInternal(w, r, h.log, "login failed", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the session, if any, and sends the browser home.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.log.Warn(r.Context(), "logout failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if err := h.views.render(w, status, page, data); err != nil {
		writeInternal(w, r, h.log, "render failed", err)
	}
}
