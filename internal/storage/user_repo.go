package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type UserRepo struct {
	store *Store
}

func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) GetByName(ctx context.Context, username string) (*User, error) {
	row := r.store.QueryRowContext(ctx, `
		SELECT id, username, level, coins, growth, attributes, created_at
		FROM users WHERE username = ?
	`, username)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Level, &u.Coins, &u.Growth, &u.Attributes, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("user get: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) Insert(ctx context.Context, u User) (int64, error) {
	res, err := r.store.ExecContext(ctx, `
		INSERT INTO users (username, level, coins, growth, attributes)
		VALUES (?, ?, ?, ?, ?)
	`, u.Username, u.Level, u.Coins, u.Growth, u.Attributes)
	if err != nil {
		return 0, fmt.Errorf("user insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	return id, nil
}

func (r *UserRepo) Update(ctx context.Context, u *User) error {
	_, err := r.store.ExecContext(ctx, `
		UPDATE users
		SET level = ?, coins = ?, growth = ?, attributes = ?
		WHERE username = ?
	`, u.Level, u.Coins, u.Growth, u.Attributes, u.Username)
	if err != nil {
		return fmt.Errorf("user update: %w", err)
	}
	return nil
}
