package adminusers

import (
	"context"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"costdesk/frontend/login"
	"costdesk/infrastructure/argon"
	"costdesk/infrastructure/rbac"
	"costdesk/infrastructure/sqlite"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrInvalidRole      = errors.New("role must be admin, buyer or viewer")
	ErrUsernameExists   = errors.New("username already exists")
)

func LoadUsersPageData(ctx context.Context, db *sqlite.DB) (PageData, error) {
	users := make([]UserView, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw("SELECT id, username, role FROM users ORDER BY id ASC").Scan(ctx, &users)
	})
	return PageData{Users: users}, err
}

func CreateUser(ctx context.Context, db *sqlite.DB, username, password, role string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrUsernameRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}
	switch role {
	case rbac.RoleAdmin, rbac.RoleBuyer, rbac.RoleViewer:
	default:
		return ErrInvalidRole
	}
	if err := login.ValidatePasswordPolicy(password); err != nil {
		return err
	}

	hash, err := argon.CreateHash(password, argon.DefaultParams)
	if err != nil {
		return err
	}

	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var count int64
		if err := tx.NewRaw(`SELECT COUNT(*) FROM users WHERE lower(username) = lower(?)`, username).Scan(ctx, &count); err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameExists
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
			username, hash, role)
		return err
	})
}
