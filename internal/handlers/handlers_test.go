package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/todoweb/server/internal/auth"
	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/mq"
	"github.com/todoweb/server/internal/services"
	"github.com/todoweb/server/internal/storage"
	"github.com/todoweb/server/internal/store"
	"github.com/todoweb/server/types"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu    sync.Mutex
	users []types.User
}

func (m *memUsers) find(match func(types.User) bool) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	return m.find(func(u types.User) bool { return u.ID == id })
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	return m.find(func(u types.User) bool { return u.Username == username })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	return m.find(func(u types.User) bool { return u.Email == email })
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = len(m.users) + 1
	user.CreatedAt = time.Now().UTC()
	m.users = append(m.users, user)
	return user, nil
}

type memTodos struct {
	mu     sync.Mutex
	todos  []types.Todo
	nextID int
}

func (m *memTodos) ListByOwner(_ context.Context, ownerID int) ([]types.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Todo, 0)
	for _, t := range m.todos {
		if t.UserID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTodos) Get(_ context.Context, ownerID, id int) (types.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.todos {
		if t.ID == id && t.UserID == ownerID {
			return t, nil
		}
	}
	return types.Todo{}, store.ErrNotFound
}

func (m *memTodos) Create(_ context.Context, todo types.Todo) (types.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	todo.ID = m.nextID
	todo.CreatedAt = time.Now().UTC()
	m.todos = append(m.todos, todo)
	return todo, nil
}

func (m *memTodos) Update(_ context.Context, todo types.Todo) (types.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.todos {
		if t.ID == todo.ID && t.UserID == todo.UserID {
			m.todos[i].Title = todo.Title
			m.todos[i].Description = todo.Description
			return m.todos[i], nil
		}
	}
	return types.Todo{}, store.ErrNotFound
}

func (m *memTodos) Delete(_ context.Context, ownerID, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.todos {
		if t.ID == id && t.UserID == ownerID {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) EnsureBucket(context.Context) error { return nil }

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Bucket() string { return "test" }

type testApp struct {
	server *httptest.Server
	users  *memUsers
	todos  *memTodos
}

func newTestApp(t *testing.T, objects storage.ObjectStorage) *testApp {
	t.Helper()
	log := logging.Nop()
	users := &memUsers{}
	todos := &memTodos{}
	events := mq.New(mq.NopBackend{}, "test")

	userService := services.NewUserService(users, bcrypt.MinCost, events, log)
	todoService := services.NewTodoService(todos, events, log)
	exportService := services.NewExportService(todos, objects)

	sessions, err := auth.NewManager(userService, auth.NewMemoryStore(), auth.Options{
		Secret:   "test-secret",
		TTL:      time.Hour,
		HashCost: bcrypt.MinCost,
	}, log)
	require.NoError(t, err)

	views, err := NewViews()
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRouter(router, NewAuthHandler(userService, sessions, views, log))
	TodoRouter(router, NewTodoHandler(todoService, views, log), sessions.RequireAuthenticated)
	ExportRouter(router, NewExportHandler(exportService, log), sessions.RequireAuthenticated)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testApp{server: srv, users: users, todos: todos}
}

func (a *testApp) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type result struct {
	status   int
	location string
	body     string
}

func do(t *testing.T, c *http.Client, method, rawURL string, form url.Values) result {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, rawURL, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(data)}
}

func (a *testApp) register(t *testing.T, c *http.Client, username, email, password string) result {
	t.Helper()
	return do(t, c, http.MethodPost, a.server.URL+"/register", url.Values{
		"username": {username}, "email": {email}, "password": {password},
	})
}

func (a *testApp) login(t *testing.T, c *http.Client, email, password string) result {
	t.Helper()
	return do(t, c, http.MethodPost, a.server.URL+"/login", url.Values{
		"email": {email}, "password": {password},
	})
}

func (a *testApp) createTodo(t *testing.T, c *http.Client, title, desc string) result {
	t.Helper()
	return do(t, c, http.MethodPost, a.server.URL+"/", url.Values{
		"title": {title}, "description": {desc},
	})
}

func (a *testApp) signedIn(t *testing.T, username, email string) *http.Client {
	t.Helper()
	c := a.client(t)
	require.Equal(t, http.StatusSeeOther, a.register(t, c, username, email, "pw").status)
	require.Equal(t, http.StatusSeeOther, a.login(t, c, email, "pw").status)
	return c
}
