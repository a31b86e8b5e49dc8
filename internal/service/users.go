package service

import (
	"attendance-backend/internal/db"
	"context"
	"errors"
	"fmt"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AddUser stores the portal credentials and email of a student to reconcile, an
// existing user is replaced.
func (s *Service) AddUser(ctx context.Context, username, password, email string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	sealed, err := s.sealer.Seal(password)
	if err != nil {
		return fmt.Errorf("seal password: %w", err)
	}
	return s.qry.CreateUser(ctx, db.CreateUserParams{
		Username: username,
		Password: sealed,
		Email:    email,
	})
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.qry.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, len(rows))
	for i, row := range rows {
		out[i] = User{Username: row.Username, Email: row.Email}
	}
	return out, nil
}

// RemoveUser deletes a user along with their attendance snapshots and notifications.
func (s *Service) RemoveUser(ctx context.Context, username string) error {
	tx, discard, commit, err := s.makeTx()
	if err != nil {
		return err
	}
	defer discard()

	affected, err := tx.DeleteUser(ctx, username)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	err = tx.DeleteUserSnapshots(ctx, username)
	if err != nil {
		return err
	}
	err = tx.DeleteUserNotifications(ctx, username)
	if err != nil {
		return err
	}
	return commit()
}
