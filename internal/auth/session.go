// Package auth implements the browser session boundary: login, logout and
// the guard that resolves the current user for protected routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/store"
	"github.com/todoweb/server/types"
	"golang.org/x/crypto/bcrypt"
)

// LoginPath is where anonymous requests to protected routes are sent.
const LoginPath = "/login"

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated means the request carries no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Credentials is the slice of the user service the session layer needs.
type Credentials interface {
	FindByEmail(ctx context.Context, email string) (types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	VerifyPassword(user types.User, password string) bool
}

// Options configures a Manager.
type Options struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
	// HashCost is used for the decoy hash checked when an email is unknown.
	HashCost int
}

// Manager tracks which user, if any, a browser session belongs to.
type Manager struct {
	creds        Credentials
	sessions     SessionStore
	log          logging.Logger
	secret       []byte
	ttl          time.Duration
	cookieName   string
	cookieSecure bool
	decoy        types.User
	now          func() time.Time
}

func NewManager(creds Credentials, sessions SessionStore, opts Options, log logging.Logger) (*Manager, error) {
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if opts.CookieName == "" {
		opts.CookieName = "todo_session"
	}

	decoyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("decoy hash: %w", err)
	}

	return &Manager{
		creds:        creds,
		sessions:     sessions,
		log:          log,
		secret:       []byte(opts.Secret),
		ttl:          opts.TTL,
		cookieName:   opts.CookieName,
		cookieSecure: opts.CookieSecure,
		decoy:        types.User{PasswordHash: string(decoyHash)},
		now:          time.Now,
	}, nil
}

// Login checks the credentials and, on success, starts a new session and
// sets its cookie on w. Any session the request already had is dropped.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, email, password string) (types.User, error) {
	ctx := r.Context()

	user, err := m.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.creds.VerifyPassword(m.decoy, password)
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("find user: %w", err)
	}
	if !m.creds.VerifyPassword(user, password) {
		return types.User{}, ErrInvalidCredentials
	}

	if sid, ok := m.sessionID(r); ok {
		m.dropSession(ctx, sid, "drop previous session failed")
	}

	now := m.now()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(m.ttl),
	}
	token, err := m.sign(session.ID, now, session.ExpiresAt)
	if err != nil {
		return types.User{}, fmt.Errorf("sign session: %w", err)
	}
	if err := m.sessions.Save(ctx, session); err != nil {
		return types.User{}, fmt.Errorf("save session: %w", err)
	}

	m.setCookie(w, token, session.ExpiresAt)
	m.log.Info(ctx, "user logged in", "user_id", user.ID)
	return user, nil
}

// Logout forgets the request's session and expires the cookie. It is a
// no-op for anonymous requests.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	sid, ok := m.sessionID(r)
	if _, err := r.Cookie(m.cookieName); err == nil {
		m.clearCookie(w)
	}
	if !ok {
		return nil
	}
	if err := m.sessions.Delete(r.Context(), sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentUserID resolves the authenticated user for r. It returns
// ErrUnauthenticated for a missing, forged or expired session and for a
// session whose user no longer exists.
func (m *Manager) CurrentUserID(r *http.Request) (int, error) {
	ctx := r.Context()

	sid, ok := m.sessionID(r)
	if !ok {
		return 0, ErrUnauthenticated
	}

	session, err := m.sessions.Load(ctx, sid)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return 0, ErrUnauthenticated
		}
		return 0, fmt.Errorf("load session: %w", err)
	}
	if !m.now().Before(session.ExpiresAt) {
		m.dropSession(ctx, sid, "drop expired session failed")
		return 0, ErrUnauthenticated
	}

	if _, err := m.creds.GetByID(ctx, session.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.dropSession(ctx, sid, "drop orphaned session failed")
			return 0, ErrUnauthenticated
		}
		return 0, fmt.Errorf("load user: %w", err)
	}
	return session.UserID, nil
}

// RequireAuthenticated redirects anonymous requests to LoginPath and stores
// the user id of authenticated ones in the request context.
func (m *Manager) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.CurrentUserID(r)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				if _, cerr := r.Cookie(m.cookieName); cerr == nil {
					m.clearCookie(w)
				}
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}
			m.log.Error(r.Context(), "session lookup failed", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *Manager) dropSession(ctx context.Context, sid, msg string) {
	if err := m.sessions.Delete(ctx, sid); err != nil {
		m.log.Warn(ctx, msg, "error", err)
	}
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	sid, err := m.parse(cookie.Value)
	if err != nil {
		return "", false
	}
	return sid, true
}

func (m *Manager) sign(sid string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sid,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenString string) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.ID == "" {
		return "", errors.New("invalid session token")
	}
	return claims.ID, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
