package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"todo-api/domain"
)

// envelope is the uniform body of every API response.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Count   *int                `json:"count,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
	Stack   string              `json:"stack,omitempty"`
}

type sessionView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newSessionView(s domain.Session) sessionView {
	return sessionView{ID: s.User.ID, Name: s.User.Name, Email: s.User.Email, Token: s.Token}
}

func newUserView(u domain.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email}
}

func respond(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondList(c echo.Context, tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	count := len(tasks)
	return c.JSON(http.StatusOK, envelope{Success: true, Count: &count, Data: tasks})
}
