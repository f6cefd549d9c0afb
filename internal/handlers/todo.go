package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/services"
	"github.com/todoweb/server/internal/store"
)

// TodoHandler serves the todo pages of the signed-in user.
type TodoHandler struct {
	todoService *services.TodoService
	views       *Views
	log         logging.Logger
}

// NewTodoHandler constructs a handler with the provided service.
func NewTodoHandler(todoService *services.TodoService, views *Views, log logging.Logger) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
		views:       views,
		log:         log,
	}
}

// TodoRouter registers todo routes behind authMiddleware.
func TodoRouter(r chi.Router, handler *TodoHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", handler.Home)
		r.Post("/", handler.CreateTodo)
		r.Get("/index", handler.Home)
		r.Get("/update/{todoID}", handler.EditTodo)
		r.Post("/update/{todoID}", handler.UpdateTodo)
		r.Get("/delete/{todoID}", handler.DeleteTodo)
	})
}

// Home lists the user's todos.
func (h *TodoHandler) Home(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	todos, err := h.todoService.List(r.Context(), userID)
	if err != nil {
		writeInternal(w, r, h.log, "list todos failed", err)
		return
	}

	h.renderPage(w, r, http.StatusOK, pageIndex, pageData{Authenticated: true, Todos: todos})
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	title := r.PostForm.Get(formFieldTitle)
	description := r.PostForm.Get(formFieldDesc)
	if msg := validateTodo(title, description); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.todoService.Create(r.Context(), userID, title, description); err != nil {
		writeInternal(w, r, h.log, "create todo failed", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *TodoHandler) EditTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, msgTodoNotFound)
		return
	}

	todo, err := h.todoService.Get(r.Context(), userID, id)
	if err != nil {
		h.writeTodoError(w, r, "load todo failed", err)
		return
	}

	h.renderPage(w, r, http.StatusOK, pageUpdate, pageData{Authenticated: true, Todo: todo})
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, msgTodoNotFound)
		return
	}
	if err := parseForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	title := r.PostForm.Get(formFieldTitle)
	description := r.PostForm.Get(formFieldDesc)
	if msg := validateTodo(title, description); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := h.todoService.Update(r.Context(), userID, id, title, description); err != nil {
		h.writeTodoError(w, r, "update todo failed", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, msgTodoNotFound)
		return
	}

	if err := h.todoService.Delete(r.Context(), userID, id); err != nil {
		h.writeTodoError(w, r, "delete todo failed", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *TodoHandler) writeTodoError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgTodoNotFound)
		return
	}
	writeInternal(w, r, h.log, msg, err)
}

func (h *TodoHandler) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if err := h.views.render(w, status, page, data); err != nil {
		writeInternal(w, r, h.log, "render failed", err)
	}
}
