package migrations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	schema := `
-- users
create table a (x int);

create table b (
    y int -- trailing
);
;
`
	require.Equal(t, []string{
		"create table a (x int)",
		"create table b (\n    y int -- trailing\n)",
	}, SplitStatements(schema))
}

func TestIsRemote(t *testing.T) {
	testCases := []struct {
		dsn      string
		expected bool
	}{
		{dsn: "libsql://attendance.turso.io?authToken=x", expected: true},
		{dsn: "https://127.0.0.1:8080", expected: true},
		{dsn: "state/attendance.db", expected: false},
		{dsn: ":memory:", expected: false},
	}
	for _, testCase := range testCases {
		require.Equal(t, testCase.expected, IsRemote(testCase.dsn), testCase.dsn)
	}
}

func TestOpenAndMigrateDB(t *testing.T) {
	schema := "create table if not exists t (x int);\ncreate index if not exists t_idx on t(x);"

	db, err := OpenAndMigrateDB(schema, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Apply(db, schema))
	_, err = db.Exec("insert into t (x) values (1)")
	require.NoError(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	require.Equal(t, "state/attendance.db", Database{File: "state/attendance.db"}.DSN())
	require.Equal(t, "libsql://db.turso.io", Database{File: "x.db", Url: "libsql://db.turso.io"}.DSN())
	require.Equal(t, "libsql://db.turso.io?authToken=t", Database{Url: "libsql://db.turso.io", AuthToken: "t"}.DSN())
	require.Equal(t, "libsql://db.turso.io?tls=0&authToken=t", Database{Url: "libsql://db.turso.io?tls=0", AuthToken: "t"}.DSN())
}
