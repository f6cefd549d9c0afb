package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/todoweb/server/types"
)

// TodoRepository handles persistence for todos. Every query is scoped by
// the owning user's id.
type TodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

// ListByOwner returns the owner's todos in insertion order.
func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Todo, error) {
	const query = `
		SELECT id, title, description, created_at, user_id
		FROM todos
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]types.Todo, 0)
	for rows.Next() {
		var todo types.Todo
		if err := rows.Scan(
			&todo.ID,
			&todo.Title,
			&todo.Description,
			&todo.CreatedAt,
			&todo.UserID,
		); err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return todos, nil
}

func (r *TodoRepository) Get(ctx context.Context, ownerID, id int) (types.Todo, error) {
	const query = `
		SELECT id, title, description, created_at, user_id
		FROM todos
		WHERE id = $1 AND user_id = $2`
	var todo types.Todo
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&todo.ID,
		&todo.Title,
		&todo.Description,
		&todo.CreatedAt,
		&todo.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Todo{}, ErrNotFound
		}
		return types.Todo{}, err
	}
	return todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, todo types.Todo) (types.Todo, error) {
	todo.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO todos (title, description, created_at, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		todo.Title,
		todo.Description,
		todo.CreatedAt,
		todo.UserID,
	).Scan(&todo.ID); err != nil {
		return types.Todo{}, err
	}
	return todo, nil
}

// Update rewrites title and description of a todo the owner holds.
func (r *TodoRepository) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	const query = `
		UPDATE todos
		SET title = $1,
			description = $2
		WHERE id = $3 AND user_id = $4
		RETURNING created_at`
	err := r.db.QueryRowContext(
		ctx,
		query,
		todo.Title,
		todo.Description,
		todo.ID,
		todo.UserID,
	).Scan(&todo.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Todo{}, ErrNotFound
		}
		return types.Todo{}, err
	}
	return todo, nil
}

func (r *TodoRepository) Delete(ctx context.Context, ownerID, id int) error {
	const query = `DELETE FROM todos WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
