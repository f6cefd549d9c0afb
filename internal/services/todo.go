package services

import (
	"context"
	"fmt"

	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/mq"
	"github.com/todoweb/server/types"
)

// TodoRepository defines persistence operations for todos. All lookups are
// scoped by owner; a todo held by someone else reads as store.ErrNotFound.
type TodoRepository interface {
	ListByOwner(ctx context.Context, ownerID int) ([]types.Todo, error)
	Get(ctx context.Context, ownerID, id int) (types.Todo, error)
	Create(ctx context.Context, todo types.Todo) (types.Todo, error)
	Update(ctx context.Context, todo types.Todo) (types.Todo, error)
	Delete(ctx context.Context, ownerID, id int) error
}

// TodoService encapsulates todo use-cases for an authenticated owner.
type TodoService struct {
	repo     TodoRepository
	notifier notifier
}

func NewTodoService(repo TodoRepository, events EventPublisher, log logging.Logger) *TodoService {
	return &TodoService{
		repo:     repo,
		notifier: notifier{events: events, log: log},
	}
}

func (s *TodoService) List(ctx context.Context, ownerID int) ([]types.Todo, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *TodoService) Get(ctx context.Context, ownerID, id int) (types.Todo, error) {
	return s.repo.Get(ctx, ownerID, id)
}

func (s *TodoService) Create(ctx context.Context, ownerID int, title, description string) (types.Todo, error) {
	todo, err := s.repo.Create(ctx, types.Todo{
		Title:       title,
		Description: description,
		UserID:      ownerID,
	})
	if err != nil {
		return types.Todo{}, fmt.Errorf("create todo: %w", err)
	}

	s.notifier.publish(ctx, mq.Event{Type: mq.EventTodoCreated, UserID: ownerID, TodoID: todo.ID})
	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, ownerID, id int, title, description string) (types.Todo, error) {
	todo, err := s.repo.Update(ctx, types.Todo{
		ID:          id,
		Title:       title,
		Description: description,
		UserID:      ownerID,
	})
	if err != nil {
		return types.Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}

	s.notifier.publish(ctx, mq.Event{Type: mq.EventTodoUpdated, UserID: ownerID, TodoID: id})
	return todo, nil
}

func (s *TodoService) Delete(ctx context.Context, ownerID, id int) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}

	s.notifier.publish(ctx, mq.Event{Type: mq.EventTodoDeleted, UserID: ownerID, TodoID: id})
	return nil
}
