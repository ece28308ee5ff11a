package identity

import (
	"context"
	"time"
)

// User is the canonical security principal.
type User struct {
	ID           string
	Username     string
	UsernameNorm string
	Email        string
	EmailNorm    string

	// PasswordHash is the encoded Argon2id hash. It is never serialized to clients.
	PasswordHash string

	EmailVerified   bool
	EmailVerifiedAt *time.Time

	CreatedAt time.Time
}

// CreateUserInput describes a registration. The password is already hashed.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Now          time.Time
}

// Store abstracts the user directory.
type Store interface {
	// CreateUser inserts a user. Email/username collisions return ConflictError.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetUserByEmail looks a user up by normalized email.
	GetUserByEmail(ctx context.Context, email string) (User, error)

	// GetUserByID loads a user by id.
	GetUserByID(ctx context.Context, id string) (User, error)

	// MarkEmailVerified flips the verified flag. Repeated calls are no-ops.
	MarkEmailVerified(ctx context.Context, id string, now time.Time) error
}

func validateCreate(op string, in CreateUserInput) (CreateUserInput, error) {
	if err := ValidateEmail(in.Email); err != nil {
		return in, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}
	if err := ValidateUsername(in.Username); err != nil {
		return in, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username too short"}
	}
	if in.PasswordHash == "" {
		return in, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing password hash"}
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	in.Email = trim(in.Email)
	in.Username = trim(in.Username)
	return in, nil
}
