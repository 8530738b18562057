package domain

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinTitleLength    = 3
	MaxTitleLength    = 100
	MinPasswordLength = 6
)

type violations []FieldError

func (v *violations) add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether s is a bare address with a dotted domain.
func ValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}

// ValidateRegister checks a registration request and returns the cleaned input.
func ValidateRegister(in RegisterInput) (RegisterInput, error) {
	var v violations
	out := RegisterInput{
		Name:     strings.TrimSpace(in.Name),
		Email:    NormalizeEmail(in.Email),
		Password: in.Password,
	}
	if out.Name == "" {
		v.add("name", "Name is required")
	}
	if !ValidEmail(out.Email) {
		v.add("email", "Please provide a valid email")
	}
	if utf8.RuneCountInString(out.Password) < MinPasswordLength {
		v.add("password", "Password must be at least 6 characters")
	}
	return out, v.err()
}

// ValidateLogin checks a login request and returns the cleaned input.
func ValidateLogin(in LoginInput) (LoginInput, error) {
	var v violations
	out := LoginInput{Email: NormalizeEmail(in.Email), Password: in.Password}
	if !ValidEmail(out.Email) {
		v.add("email", "Please provide a valid email")
	}
	if out.Password == "" {
		v.add("password", "Password is required")
	}
	return out, v.err()
}

// ValidateTaskID rejects ids that were not minted by this service.
func ValidateTaskID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "id", Message: "Invalid task ID"}}}
	}
	return nil
}

func checkTitle(v *violations, title string) {
	n := utf8.RuneCountInString(title)
	switch {
	case n < MinTitleLength:
		v.add("title", "Title must be at least 3 characters")
	case n > MaxTitleLength:
		v.add("title", "Title must be at most 100 characters")
	}
}

// ValidateCreateTask checks a new task and returns it with the title trimmed
// and completed defaulted to false.
func ValidateCreateTask(in CreateTaskInput) (title string, completed bool, err error) {
	var v violations
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		v.add("title", "Title is required")
	} else {
		title = strings.TrimSpace(*in.Title)
		checkTitle(&v, title)
	}
	if in.Completed != nil {
		completed = *in.Completed
	}
	return title, completed, v.err()
}

// ValidateUpdateTask checks the id and any supplied title of a partial update.
func ValidateUpdateTask(id string, in UpdateTaskInput) (UpdateTaskInput, error) {
	var v violations
	if _, err := uuid.Parse(id); err != nil {
		v.add("id", "Invalid task ID")
	}
	out := in
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		out.Title = &title
		checkTitle(&v, title)
	}
	return out, v.err()
}
