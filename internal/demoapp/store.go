package demoapp

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Errors
var (
	ErrUsernameTaken      = errors.New("Username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid input")
)

// User is an account created through the register form.
type User struct {
	ID           int       `json:"id"`
	OpenID       string    `json:"openId"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastSignedIn time.Time `json:"lastSignedIn"`

	passwordHash []byte
}

// Row is one line of the managed CSV data.
type Row struct {
	ID        int       `json:"id"`
	Product   string    `json:"product"`
	Quantity  int       `json:"quantity"`
	Price     string    `json:"price"` // decimal with two places, e.g. "2500.00"
	UpdatedAt time.Time `json:"updatedAt"`
}

// SampleRows is the data a fresh store is seeded with on first read.
var SampleRows = []Row{
	{Product: "Laptop", Quantity: 10, Price: "120000.00"},
	{Product: "Mouse", Quantity: 50, Price: "2500.00"},
	{Product: "Keyboard", Quantity: 30, Price: "7500.00"},
	{Product: "Monitor", Quantity: 15, Price: "30000.00"},
	{Product: "USB Cable", Quantity: 100, Price: "500.00"},
}

// Store keeps users and CSV rows in memory.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*User // by username
	rows       []Row
	nextUser   int
	nextRow    int
	bcryptCost int
	now        func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]*User),
		nextUser:   1,
		nextRow:    1,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// CreateUser registers a new account. name defaults to the username.
func (s *Store) CreateUser(username, password, name, email string) (*User, error) {
	if n := len(username); n < 3 || n > 64 {
		return nil, fmt.Errorf("%w: username must be 3-64 characters", ErrInvalidInput)
	}
	if n := len(password); n < 6 || n > 128 {
		return nil, fmt.Errorf("%w: password must be 6-128 characters", ErrInvalidInput)
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return nil, ErrUsernameTaken
	}
	if name == "" {
		name = username
	}

	now := s.now()
	u := &User{
		ID:           s.nextUser,
		OpenID:       "local_" + uuid.NewString(),
		Username:     username,
		Name:         name,
		Email:        email,
		passwordHash: hash,
		CreatedAt:    now,
		LastSignedIn: now,
	}
	s.nextUser++
	s.users[username] = u

	out := *u
	return &out, nil
}

// VerifyPassword returns the user when username and password match.
func (s *Store) VerifyPassword(username, password string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	u.LastSignedIn = s.now()
	out := *u
	return &out, nil
}

// UserByOpenID looks up a user from a session subject.
func (s *Store) UserByOpenID(openID string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.OpenID == openID {
			out := *u
			return &out, true
		}
	}
	return nil, false
}

// Rows returns all rows ordered by ID, seeding the sample data when empty.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rows) == 0 {
		s.insertLocked(SampleRows)
	}

	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Replace swaps every row for rows. IDs keep counting up.
func (s *Store) Replace(rows []Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = nil
	s.insertLocked(rows)
}

func (s *Store) insertLocked(rows []Row) {
	now := s.now()
	for _, r := range rows {
		r.ID = s.nextRow
		r.UpdatedAt = now
		s.nextRow++
		s.rows = append(s.rows, r)
	}
}
