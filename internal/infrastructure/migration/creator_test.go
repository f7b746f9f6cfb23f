package migration

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "Add Invoice Status")
	require.NoError(t, err)
	require.NotNil(t, mf)

	assert.True(t, strings.HasSuffix(mf.UpPath, "_add_invoice_status.up.sql"))
	assert.True(t, strings.HasSuffix(mf.DownPath, "_add_invoice_status.down.sql"))

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "Add Invoice Status")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "rollback")
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"create users", "create_users"},
		{"Create-Users", "create_users"},
		{"add  column   v2", "add_column_v2"},
		{"trailing space ", "trailing_space"},
		{"weird!@#chars", "weirdchars"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}
