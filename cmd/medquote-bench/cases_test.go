package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQL(t *testing.T) {
	stmts := splitSQL(`-- comment
CREATE TABLE IF NOT EXISTS a (id INT);

CREATE TABLE IF NOT EXISTS b (id INT);
`)
	assert.Equal(t, []string{
		"CREATE TABLE IF NOT EXISTS a (id INT)",
		"CREATE TABLE IF NOT EXISTS b (id INT)",
	}, stmts)
}

func TestExtractTables(t *testing.T) {
	tables, err := extractTables(filepath.Join("..", "..", "migrations", "0001_rate_items.sql"))
	require.NoError(t, err)
	assert.Equal(t, []string{"rate_items"}, tables)

	_, err = extractTables(filepath.Join(t.TempDir(), "missing.sql"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSummarize(t *testing.T) {
	s := summarize([]Result{{Status: statusPass}, {Status: statusFail}, {Status: statusSkip}, {Status: statusPass}})
	assert.Equal(t, summary{pass: 2, fail: 1, skipped: 1}, s)
}
