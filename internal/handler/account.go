package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goevery/rendezvous/internal/auth"
	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/goevery/rendezvous/internal/persistence"
	"go.uber.org/zap"
)

var errInvalidCredentials = errors.New("invalid username or password")

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,alphanum,min=3,max=32"`
	DisplayName string `json:"displayName" validate:"required,max=64"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

type RegisterResponse struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RegisterHandler struct {
	logger   *zap.Logger
	validate *validator.Validate
	users    persistence.UserStore
}

func NewRegisterHandler(logger *zap.Logger, users persistence.UserStore) *RegisterHandler {
	return &RegisterHandler{
		logger:   logger,
		validate: newValidator(),
		users:    users,
	}
}

func (h *RegisterHandler) Handle(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	if err := h.validate.Struct(req); err != nil {
		return RegisterResponse{}, invalidArgument(err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := chat.User{
		Username:     chat.NormalizeUsername(req.Username),
		DisplayName:  req.DisplayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	err = h.users.Create(ctx, user)
	if errors.Is(err, persistence.ErrAlreadyExists) {
		return RegisterResponse{}, ierr.New(ierr.ErrorCodeAlreadyExists, errors.New("username is taken"))
	}
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("failed to create user: %w", err)
	}

	h.logger.Info("user registered", zap.String("username", user.Username))

	return RegisterResponse{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}, nil
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type LoginHandler struct {
	validate      *validator.Validate
	users         persistence.UserStore
	authenticator *auth.Authenticator
}

func NewLoginHandler(users persistence.UserStore, authenticator *auth.Authenticator) *LoginHandler {
	return &LoginHandler{
		validate:      newValidator(),
		users:         users,
		authenticator: authenticator,
	}
}

func (h *LoginHandler) Handle(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	if err := h.validate.Struct(req); err != nil {
		return LoginResponse{}, invalidArgument(err)
	}

	user, err := h.users.GetByUsername(ctx, chat.NormalizeUsername(req.Username))
	if errors.Is(err, persistence.ErrNotFound) {
		return LoginResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errInvalidCredentials)
	}
	if err != nil {
		return LoginResponse{}, fmt.Errorf("failed to get user: %w", err)
	}

	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("failed to compare password: %w", err)
	}
	if !match {
		return LoginResponse{}, ierr.New(ierr.ErrorCodeUnauthenticated, errInvalidCredentials)
	}

	token, expiresAt, err := h.authenticator.IssueToken(user)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("failed to issue token: %w", err)
	}

	return LoginResponse{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Token:       token,
		ExpiresAt:   expiresAt,
	}, nil
}
