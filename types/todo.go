package types

import "time"

const (
	// MaxTodoTitleLen is the column width of todos.title.
	MaxTodoTitleLen = 200
	// MaxTodoDescriptionLen is the column width of todos.description.
	MaxTodoDescriptionLen = 500
)

// Todo is a task item owned by exactly one user.
type Todo struct {
	ID int `json:"id" db:"id"`

	Title string `json:"title" db:"title"`

	Description string `json:"description" db:"description"`

	// CreatedAt is set once by the server when the todo is created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UserID references the owning user. Ownership never changes.
	UserID int `json:"user_id" db:"user_id"`
}
