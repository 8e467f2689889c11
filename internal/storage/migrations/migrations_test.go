package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Equal(t, "001_artifacts.sql", pg[0].Name)

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)
	for _, m := range ch {
		assert.Len(t, splitStatements(m.SQL), 1, m.Name)
	}
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_b.sql":   {Data: []byte("SELECT 2;")},
		"pg/001_a.sql":   {Data: []byte("SELECT 1;")},
		"pg/003_c.sql":   {Data: []byte("  \n")},
		"pg/README.md":   {Data: []byte("notes")},
		"pg/sub/004.sql": {Data: []byte("SELECT 4;")},
	}

	files, err := load(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_a.sql", files[0].Name)
	assert.Equal(t, "002_b.sql", files[1].Name)

	_, err = load(fsys, "missing")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

CREATE TABLE b (y UInt8) ENGINE = Memory; -- trailing
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y UInt8) ENGINE = Memory", stmts[1])
}

func TestSplitStatements_QuotedLiterals(t *testing.T) {
	stmts := splitStatements(`SELECT 'a;b -- c'; SELECT 'it''s;'`)
	require.Len(t, stmts, 2)
	assert.Equal(t, `SELECT 'a;b -- c'`, stmts[0])
	assert.Equal(t, `SELECT 'it''s;'`, stmts[1])
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://localhost:9000/studio")
	require.NoError(t, err)
	assert.Equal(t, "studio", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
