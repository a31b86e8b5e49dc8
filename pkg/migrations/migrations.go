package migrations

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// IsRemote reports whether dsn names a libsql server rather than a sqlite file.
func IsRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// OpenDB opens a sqlite file (":memory:" for a throwaway database) or a libsql url.
func OpenDB(dsn string) (*sql.DB, error) {
	if IsRemote(dsn) {
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return db, nil
	}

	if dsn != ":memory:" {
		err := os.MkdirAll(filepath.Dir(dsn), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	return db, nil
}

func wrapOpenAndMigrate(err error) error {
	return fmt.Errorf("open and migrate db: %w", err)
}

// OpenAndMigrateDB opens the database and applies schema, which must only contain
// idempotent statements (create ... if not exists).
func OpenAndMigrateDB(schema, dsn string) (*sql.DB, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, wrapOpenAndMigrate(err)
	}
	err = Apply(db, schema)
	if err != nil {
		db.Close()
		return nil, wrapOpenAndMigrate(err)
	}
	return db, nil
}

// Apply executes schema one statement at a time, libsql does not accept multiple
// statements in one call.
func Apply(db *sql.DB, schema string) error {
	for _, stmt := range SplitStatements(schema) {
		_, err := db.Exec(stmt)
		if err != nil {
			return fmt.Errorf("apply '%s': %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	return line
}

// SplitStatements splits a schema on semicolons, dropping comment lines and empty
// statements. It does not understand semicolons inside string literals.
func SplitStatements(schema string) []string {
	var cleaned strings.Builder
	for _, line := range strings.Split(schema, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteString("\n")
	}

	var out []string
	for _, stmt := range strings.Split(cleaned.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Database configures where state is kept, either a local sqlite file or a libsql
// server.
type Database struct {
	File      string `json:"file" envconfig:"FILE"`
	Url       string `json:"url" envconfig:"URL"`
	AuthToken string `json:"auth_token" envconfig:"AUTH_TOKEN"`
}

// DSN returns the data source name OpenDB understands.
func (d Database) DSN() string {
	if d.Url == "" {
		return d.File
	}
	if d.AuthToken == "" {
		return d.Url
	}
	separator := "?"
	if strings.Contains(d.Url, "?") {
		separator = "&"
	}
	return d.Url + separator + "authToken=" + d.AuthToken
}
