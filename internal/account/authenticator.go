package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"echoscribe/internal/database"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrEmailAlreadyInUse = errors.New("email already in use")
)

type Authenticator struct {
	logger *slog.Logger
	db     *database.Database
}

func NewAuthenticator(logger *slog.Logger, db *database.Database) Authenticator {
	return Authenticator{logger: logger, db: db}
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

func (a *Authenticator) Register(ctx context.Context, params RegisterParams) (uuid.UUID, error) {
	var userID uuid.UUID

	// Check if user already exists
	_, err := a.db.GetUserByEmail(ctx, params.Email)
	if err == nil {
		return userID, ErrEmailAlreadyInUse
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return userID, fmt.Errorf("failed to check if user exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return userID, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.db.CreateUser(ctx, database.CreateUserParams{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		return userID, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.InfoContext(ctx, "User registered", "user_id", user.ID)

	return user.ID, nil
}

type LoginParams struct {
	Email    string
	Password string
}

func (a *Authenticator) Login(ctx context.Context, params LoginParams) (uuid.UUID, error) {
	var userID uuid.UUID

	user, err := a.db.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return userID, ErrUserNotFound
		}
		return userID, fmt.Errorf("failed to get user by email: %w", err)
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		return userID, ErrInvalidPassword
	}

	a.logger.InfoContext(ctx, "User logged in", "user_id", user.ID)

	return user.ID, nil
}

func (a *Authenticator) GetUser(ctx context.Context, userID uuid.UUID) (database.User, error) {
	return a.db.GetUserByID(ctx, userID)
}
