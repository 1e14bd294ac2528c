// Package auth hashes passwords, registers users and issues tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already in use")
	ErrMissingFields      = errors.New("all fields are required")
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

type Service struct {
	store  UserStore
	tokens *TokenService
}

func NewService(store UserStore, tokens *TokenService) *Service {
	return &Service{store: store, tokens: tokens}
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	existing, err := s.store.FindUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailInUse
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login returns a signed token. An unknown email yields ErrUserNotFound and
// a wrong password ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (string, error) {
	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			slog.Warn("Login attempt with non-existent email", "email", req.Email)
		}
		return "", err
	}

	if err := CheckPassword(user.PasswordHash, req.Password); err != nil {
		slog.Warn("Invalid password attempt", "email", req.Email, "user_id", user.ID)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	slog.Info("User logged in successfully", "user_id", user.ID)
	return token, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return s.store.FindUserByID(ctx, claims.UserID)
}

// SeedUser creates an account unless the email is already registered.
func (s *Service) SeedUser(ctx context.Context, name, email, password string) error {
	_, err := s.Signup(ctx, SignupRequest{Name: name, Email: email, Password: password})
	if errors.Is(err, ErrEmailInUse) {
		return nil
	}
	return err
}
