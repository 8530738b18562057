package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// DefaultMaxBodyBytes caps decoded request bodies when no limit is configured.
const DefaultMaxBodyBytes = 64 << 10

// Routes holds everything Register needs to serve the API.
type Routes struct {
	Accounts      Accounts
	Tasks         Tasks
	Authenticator *Authenticator
	Health        HealthCheck
	MaxBodyBytes  int64
	Logger        *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, r Routes) {
	maxBody := r.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	e.GET("/", welcome())
	e.GET("/healthz", healthz(r.Health, r.Logger))

	protect := r.Authenticator.Middleware()

	authGroup := e.Group("/api/auth")
	authGroup.POST("/register", register(r.Accounts, maxBody))
	authGroup.POST("/login", login(r.Accounts, maxBody))
	authGroup.GET("/me", me(), protect)

	tasks := e.Group("/api/tasks", protect)
	tasks.GET("", listTasks(r.Tasks))
	tasks.GET("/:id", getTask(r.Tasks))
	tasks.POST("", createTask(r.Tasks, maxBody))
	tasks.PUT("/:id", updateTask(r.Tasks, maxBody))
	tasks.DELETE("/:id", deleteTask(r.Tasks))
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// taskRequest ignores any owner field; the owner is always the caller.
type taskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

var endpoints = map[string]string{
	"POST /api/auth/register": "Register a new user",
	"POST /api/auth/login":    "Log in and receive a token",
	"GET /api/auth/me":        "Get the current user",
	"GET /api/tasks":          "Get all tasks",
	"GET /api/tasks/:id":      "Get one task",
	"POST /api/tasks":         "Create new task",
	"PUT /api/tasks/:id":      "Update task",
	"DELETE /api/tasks/:id":   "Delete task",
}

func welcome() echo.HandlerFunc {
	return func(c echo.Context) error {
		return respond(c, http.StatusOK, "Welcome to Task API!", map[string]any{"endpoints": endpoints})
	}
}

func healthz(check HealthCheck, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check != nil {
			if err := check(c.Request().Context()); err != nil {
				if logger != nil {
					logger.WithError(err).Warn("health check failed")
				}
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	}
}

// decodeBody reads at most maxBody bytes of JSON into dst. An empty body
// leaves dst untouched.
func decodeBody(c echo.Context, maxBody int64, dst any) error {
	data, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
		}
		return errInvalidBody
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, dst); err != nil {
		return errInvalidBody
	}
	return nil
}

func register(accounts Accounts, maxBody int64) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := decodeBody(c, maxBody, &req); err != nil {
			return err
		}
		session, err := accounts.Register(c.Request().Context(), domain.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return err
		}
		return respond(c, http.StatusCreated, "User registered successfully", newSessionView(session))
	}
}

func login(accounts Accounts, maxBody int64) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, maxBody, &req); err != nil {
			return err
		}
		session, err := accounts.Login(c.Request().Context(), domain.LoginInput{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, "Login successful", newSessionView(session))
	}
}

func me() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, "", newUserView(user))
	}
}

func listTasks(tasks Tasks) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		list, err := tasks.List(c.Request().Context(), user.ID)
		if err != nil {
			return err
		}
		return respondList(c, list)
	}
}

func getTask(tasks Tasks) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		task, err := tasks.Get(c.Request().Context(), user.ID, c.Param("id"))
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, "", task)
	}
}

func createTask(tasks Tasks, maxBody int64) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		var req taskRequest
		if err := decodeBody(c, maxBody, &req); err != nil {
			return err
		}
		task, err := tasks.Create(c.Request().Context(), user.ID, domain.CreateTaskInput{
			Title:     req.Title,
			Completed: req.Completed,
		})
		if err != nil {
			return err
		}
		return respond(c, http.StatusCreated, "Task created successfully", task)
	}
}

func updateTask(tasks Tasks, maxBody int64) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		var req taskRequest
		if err := decodeBody(c, maxBody, &req); err != nil {
			return err
		}
		task, err := tasks.Update(c.Request().Context(), user.ID, c.Param("id"), domain.UpdateTaskInput{
			Title:     req.Title,
			Completed: req.Completed,
		})
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, "Task updated successfully", task)
	}
}

func deleteTask(tasks Tasks) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		task, err := tasks.Delete(c.Request().Context(), user.ID, c.Param("id"))
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, "Task deleted successfully", task)
	}
}
