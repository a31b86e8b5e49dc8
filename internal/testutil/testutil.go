package testutil

import (
	"attendance-backend/internal/db"
	"attendance-backend/pkg/migrations"
	"context"
	"database/sql"
	"testing"
)

// OpenDB returns an in-memory database with the schema applied, closed when the test
// ends.
func OpenDB(t testing.TB) *sql.DB {
	sqlite, err := migrations.OpenAndMigrateDB(db.Schema, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		sqlite.Close()
	})
	return sqlite
}

// CreateUser inserts a user, failing the test on error.
func CreateUser(t testing.TB, qry *db.Queries, username, password, email string) {
	err := qry.CreateUser(context.Background(), db.CreateUserParams{
		Username: username,
		Password: password,
		Email:    email,
	})
	if err != nil {
		t.Fatal(err)
	}
}
