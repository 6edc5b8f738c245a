package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/docstore"
)

func userFromDocument(d docstore.Document) core.User {
	return core.User{
		ID:           d.ID(),
		Username:     d.String(fUsername),
		PasswordHash: d.String(fPasswordHash),
	}
}

// CreateUser stores a new user. A taken username yields core.ErrConstraintViolation.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string) (string, error) {
	u := core.User{Username: username, PasswordHash: passwordHash}
	if err := u.Validate(); err != nil {
		return "", err
	}
	id, err := r.users().Insert(ctx, docstore.Document{
		fUsername:     username,
		fPasswordHash: passwordHash,
	})
	if err != nil {
		return "", mapErr("create user", err)
	}
	r.logger.InfoContext(ctx, "User created", "user_id", id)
	return id, nil
}

// FindUserByUsername matches the username exactly, case included.
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (core.User, error) {
	d, err := r.users().FindOne(ctx, docstore.Where(docstore.Eq(fUsername, username)))
	if err != nil {
		return core.User{}, mapErr("find user", err)
	}
	return userFromDocument(d), nil
}

// FindUserByID returns the user without its password hash.
func (r *Repository) FindUserByID(ctx context.Context, id string) (core.User, error) {
	f, ok := r.byID(id)
	if !ok {
		return core.User{}, fmt.Errorf("find user: %w", core.ErrNotFound)
	}
	d, err := r.users().FindOne(ctx, f)
	if err != nil {
		return core.User{}, mapErr("find user", err)
	}
	u := userFromDocument(d)
	u.PasswordHash = ""
	return u, nil
}

// UpdateUserPassword replaces the password hash and nothing else.
func (r *Repository) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	if passwordHash == "" {
		return core.ErrEmptyPassword
	}
	f, ok := r.byID(id)
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	n, err := r.users().UpdateFields(ctx, f, docstore.Document{fPasswordHash: passwordHash})
	if err != nil {
		return mapErr("update password", err)
	}
	if n == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	r.logger.InfoContext(ctx, "User password updated", "user_id", id)
	return nil
}
