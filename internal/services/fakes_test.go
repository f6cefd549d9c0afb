package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/todoweb/server/internal/mq"
	"github.com/todoweb/server/internal/storage"
	"github.com/todoweb/server/internal/store"
	"github.com/todoweb/server/types"
)

type fakeUsersRepo struct {
	mu        sync.Mutex
	users     []types.User
	createErr error
	getErr    error
}

func (f *fakeUsersRepo) find(match func(types.User) bool) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return types.User{}, f.getErr
	}
	for _, u := range f.users {
		if match(u) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id int) (types.User, error) {
	return f.find(func(u types.User) bool { return u.ID == id })
}

func (f *fakeUsersRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	return f.find(func(u types.User) bool { return u.Username == username })
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	return f.find(func(u types.User) bool { return u.Email == email })
}

func (f *fakeUsersRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.User{}, f.createErr
	}
	user.ID = len(f.users) + 1
	user.CreatedAt = time.Now().UTC()
	f.users = append(f.users, user)
	return user, nil
}

type fakeTodoRepo struct {
	mu      sync.Mutex
	todos   []types.Todo
	nextID  int
	listErr error
}

func (f *fakeTodoRepo) ListByOwner(_ context.Context, ownerID int) ([]types.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]types.Todo, 0)
	for _, t := range f.todos {
		if t.UserID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTodoRepo) Get(_ context.Context, ownerID, id int) (types.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.todos {
		if t.ID == id && t.UserID == ownerID {
			return t, nil
		}
	}
	return types.Todo{}, store.ErrNotFound
}

func (f *fakeTodoRepo) Create(_ context.Context, todo types.Todo) (types.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	todo.ID = f.nextID
	todo.CreatedAt = time.Now().UTC()
	f.todos = append(f.todos, todo)
	return todo, nil
}

func (f *fakeTodoRepo) Update(_ context.Context, todo types.Todo) (types.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.todos {
		if t.ID == todo.ID && t.UserID == todo.UserID {
			f.todos[i].Title = todo.Title
			f.todos[i].Description = todo.Description
			return f.todos[i], nil
		}
	}
	return types.Todo{}, store.ErrNotFound
}

func (f *fakeTodoRepo) Delete(_ context.Context, ownerID, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.todos {
		if t.ID == id && t.UserID == ownerID {
			f.todos = append(f.todos[:i], f.todos[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakePublisher struct {
	mu     sync.Mutex
	events []mq.Event
	err    error
}

func (f *fakePublisher) PublishEvent(_ context.Context, ev mq.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeObjects struct {
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) EnsureBucket(context.Context) error { return nil }

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) Bucket() string { return "test" }

var errDBDown = errors.New("db down")
