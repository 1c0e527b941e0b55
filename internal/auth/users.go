package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username already taken")
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	passwordHash []byte
}

type NewUser struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Service authenticates users against an in-memory directory seeded at
// startup, and issues session tokens.
type Service struct {
	keys *Keys
	ttl  time.Duration

	mu    sync.RWMutex
	users map[string]*User
}

func NewService(keys *Keys, ttl time.Duration) *Service {
	return &Service{keys: keys, ttl: ttl, users: make(map[string]*User)}
}

// seedNamespace derives the ids of seeded accounts.
var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("storefront/seeded-users"))

// SeededUserID is the id a seeded account gets on every boot, so orders
// stored under it stay reachable after a restart.
func SeededUserID(username string) string {
	return uuid.NewSHA1(seedNamespace, []byte(strings.ToLower(strings.TrimSpace(username)))).String()
}

// AddUser registers a user with the given role and a random id.
func (s *Service) AddUser(nu NewUser, role string) (User, error) {
	return s.addUser(nu, role, uuid.NewString())
}

// SeedUser registers a configured account under SeededUserID.
func (s *Service) SeedUser(nu NewUser, role string) (User, error) {
	return s.addUser(nu, role, SeededUserID(nu.Username))
}

func (s *Service) addUser(nu NewUser, role, id string) (User, error) {
	username := strings.TrimSpace(nu.Username)
	if username == "" || nu.Password == "" {
		return User{}, fmt.Errorf("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(username)
	if _, ok := s.users[key]; ok {
		return User{}, fmt.Errorf("%s: %w", username, ErrUserExists)
	}
	u := &User{
		ID:           id,
		Username:     username,
		Email:        nu.Email,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
		passwordHash: hash,
	}
	s.users[key] = u
	return *u, nil
}

// Login checks the password and returns the user with a fresh token.
func (s *Service) Login(username, password string) (User, string, error) {
	s.mu.RLock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	s.mu.RUnlock()
	if !ok {
		// Spend the same time as a real comparison.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return User{}, "", ErrInvalidCredentials
	}
	token, _, err := s.keys.GenerateToken(u.ID, u.Username, u.Role, s.ttl)
	if err != nil {
		return User{}, "", err
	}
	return *u, token, nil
}

func (s *Service) Logout(claims Claims) {
	s.keys.Revoke(claims)
}

// Users lists every user, sorted by username.
func (s *Service) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b User) int { return strings.Compare(a.Username, b.Username) })
	return out
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-dummy"), bcrypt.DefaultCost)
