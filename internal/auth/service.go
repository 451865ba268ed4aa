package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/models"
)

const minPasswordLength = 8

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRegistration is returned for a malformed email or short password.
	ErrInvalidRegistration = errors.New("a valid email and a password of at least 8 characters are required")
)

// UserStore is the account persistence used by Service.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.User, error)
}

// Service registers and authenticates dashboard operators.
type Service struct {
	store           UserStore
	tokens          *TokenManager
	requireApproval bool
	cost            int
	logger          zerolog.Logger
}

// NewService creates the service. With requireApproval, accounts cannot log
// in until an admin approves them.
func NewService(store UserStore, tokens *TokenManager, requireApproval bool, logger zerolog.Logger) *Service {
	return &Service{
		store:           store,
		tokens:          tokens,
		requireApproval: requireApproval,
		cost:            bcrypt.DefaultCost,
		logger:          logger.With().Str("component", "auth").Logger(),
	}
}

// RegisterRequest represents the register request body
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates a staff account. The first account ever registered
// becomes an approved admin.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || len(req.Password) < minPasswordLength {
		return nil, ErrInvalidRegistration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         models.RoleStaff,
		Approved:     !s.requireApproval,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user", u.ID.String()).Str("role", u.Role).Bool("approved", u.Approved).Msg("account registered")
	return u, nil
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login checks the password and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Debug().Str("user", u.ID.String()).Msg("password mismatch")
		return nil, ErrInvalidCredentials
	}
	if s.requireApproval && !u.Approved {
		return nil, ErrNotApproved
	}

	token, err := s.tokens.GenerateToken(u)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: u}, nil
}

// Authorize resolves claims to the current account, rejecting accounts
// whose approval was revoked after the token was issued.
func (s *Service) Authorize(ctx context.Context, claims *Claims) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if s.requireApproval && !u.Approved {
		return nil, ErrNotApproved
	}
	return u, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// SetApproval approves or revokes an account.
func (s *Service) SetApproval(ctx context.Context, id uuid.UUID, approved bool) (*models.User, error) {
	u, err := s.store.SetUserApproval(ctx, id, approved)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user", id.String()).Bool("approved", approved).Msg("approval changed")
	return u, nil
}

// Tokens exposes the token manager for the middleware.
func (s *Service) Tokens() *TokenManager { return s.tokens }
