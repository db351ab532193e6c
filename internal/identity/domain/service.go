package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Provider validates a bearer credential and yields the user behind it.
// The kernel treats credential issuance as external; the default
// implementation looks the key up in the users table.
type Provider interface {
	Authenticate(ctx context.Context, credential string) (*User, error)
}

type Service interface {
	Provider
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	Register(ctx context.Context, req RegisterRequest) (*User, error)
}

type RegisterRequest struct {
	IdentityKey string `json:"identity_key"`
	DisplayName string `json:"display_name"`
}

var (
	ErrInvalidCredential = errors.New("invalid_credential")
	ErrInvalidRequest    = errors.New("invalid_request")
	ErrUserExists        = errors.New("user_exists")
	ErrNotFound          = errors.New("not_found")
)
