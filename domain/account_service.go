package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// UserStorage persists user records.
type UserStorage interface {
	// CreateUser returns ErrDuplicateEmail when the email is already taken.
	CreateUser(ctx context.Context, u User) error
	// UserByEmail and UserByID return nil, nil when no user matches.
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
}

// PasswordHasher derives and checks password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// TokenIssuer mints bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AccountService implements registration, login and identity lookup.
type AccountService struct {
	users  UserStorage
	hasher PasswordHasher
	tokens TokenIssuer
	events EventPublisher
	now    func() time.Time
	newID  func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(users UserStorage, hasher PasswordHasher, tokens TokenIssuer, events EventPublisher) *AccountService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AccountService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		events: events,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Register creates an account and returns a session for it.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in, err := ValidateRegister(in)
	if err != nil {
		return Session{}, err
	}
	existing, err := s.users.UserByEmail(ctx, in.Email)
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return Session{}, ErrDuplicateEmail
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           s.newID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return Session{}, ErrDuplicateEmail
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	s.publish(ctx, UserRegistered, u)
	return Session{User: u, Token: token}, nil
}

// Login checks credentials and returns a session. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (Session, error) {
	in, err := ValidateLogin(in)
	if err != nil {
		return Session{}, err
	}
	u, err := s.users.UserByEmail(ctx, in.Email)
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		// Spend the same hashing work as a real comparison.
		if hash := s.dummy(); hash != "" {
			_, _ = s.hasher.Verify(in.Password, hash)
		}
		return Session{}, ErrInvalidCredentials
	}
	ok, err := s.hasher.Verify(in.Password, u.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	s.publish(ctx, UserLoggedIn, *u)
	return Session{User: *u, Token: token}, nil
}

// Identify resolves the user behind a verified token subject.
func (s *AccountService) Identify(ctx context.Context, userID string) (User, error) {
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return User{}, Unauthorized("user not found", nil)
	}
	return *u, nil
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			log.WithError(err).Warn("dummy password hash failed")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *AccountService) publish(ctx context.Context, typ string, u User) {
	ev := Event{
		Type:       typ,
		EntityType: EntityUser,
		EntityID:   u.ID,
		UserID:     u.ID,
		Timestamp:  s.now().UnixNano(),
		Data:       map[string]string{"name": u.Name, "email": u.Email},
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.WithFields(log.Fields{"event": typ, "user": u.ID}).WithError(err).Warn("publish event failed")
	}
}
