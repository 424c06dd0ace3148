package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/signalscope/signalscope/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrMissingFields      = errors.New("name, email, and password are required")
	ErrUnauthorized       = errors.New("missing or expired session")
)

const sessionTTL = 30 * 24 * time.Hour

type Service struct {
	store *store.Store
	now   func() time.Time
}

func New(st *store.Store) *Service {
	return &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates an account and opens a session in one step, mirroring the
// client's expectation of receiving a token straight from the register call.
func (s *Service) Register(name, email, password string) (*store.User, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, "", ErrMissingFields
	}
	if len(password) < 6 {
		return nil, "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	var user *store.User
	token := uuid.NewString()
	err = s.store.Update(func(st *store.State) error {
		for _, u := range st.Users {
			if normalizeEmail(u.Email) == email {
				return ErrEmailTaken
			}
		}
		u := &store.User{
			ID:           st.NextID(),
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			CreatedAt:    s.now(),
		}
		st.Users = append(st.Users, u)
		st.Sessions = append(st.Sessions, s.newSession(token, u.ID))
		c := *u
		user = &c
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) Login(email, password string) (*store.User, string, error) {
	email = normalizeEmail(email)
	var user *store.User
	token := uuid.NewString()
	err := s.store.Update(func(st *store.State) error {
		var found *store.User
		for _, u := range st.Users {
			if normalizeEmail(u.Email) == email {
				found = u
				break
			}
		}
		if found == nil {
			return ErrInvalidCredentials
		}
		if bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)) != nil {
			return ErrInvalidCredentials
		}
		st.Sessions = append(st.Sessions, s.newSession(token, found.ID))
		c := *found
		user = &c
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) Logout(token string) {
	_ = s.store.Update(func(st *store.State) error {
		for i, sess := range st.Sessions {
			if sess.Token == token {
				st.Sessions = append(st.Sessions[:i], st.Sessions[i+1:]...)
				return nil
			}
		}
		return errNoSession
	})
}

var errNoSession = errors.New("no such session")

// UserForToken resolves a bearer token, pruning it when expired.
func (s *Service) UserForToken(token string) (*store.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	var user *store.User
	var expired bool
	s.store.View(func(st *store.State) {
		for _, sess := range st.Sessions {
			if sess.Token != token {
				continue
			}
			if s.now().After(sess.ExpiresAt) {
				expired = true
				return
			}
			if u := st.FindUser(sess.UserID); u != nil {
				c := *u
				user = &c
			}
			return
		}
	})
	if expired {
		s.Logout(token)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (s *Service) newSession(token string, userID int64) *store.Session {
	now := s.now()
	return &store.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
