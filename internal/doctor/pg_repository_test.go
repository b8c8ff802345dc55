package doctor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carelink/clinic-booking/migrations"
)

// usersTableColumns pulls the column names out of the users CREATE TABLE
// statement in the embedded migrations.
func usersTableColumns(t *testing.T) map[string]bool {
	t.Helper()

	raw, err := migrations.FS.ReadFile("0001_init.up.sql")
	require.NoError(t, err)

	ddl := string(raw)
	start := strings.Index(ddl, "CREATE TABLE users (")
	require.NotEqual(t, -1, start, "users table DDL not found")
	body := ddl[start+len("CREATE TABLE users ("):]
	end := strings.Index(body, ");")
	require.NotEqual(t, -1, end)

	cols := make(map[string]bool)
	for _, line := range strings.Split(body[:end], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "CONSTRAINT") {
			continue
		}
		cols[fields[0]] = true
	}
	return cols
}

func TestUserColumnsMatchSchema(t *testing.T) {
	cols := usersTableColumns(t)
	require.NotEmpty(t, cols)

	for _, col := range strings.Split(userColumns, ",") {
		col = strings.TrimSpace(col)
		require.True(t, cols[col], "repository selects column %q which does not exist in the users table", col)
	}
}
