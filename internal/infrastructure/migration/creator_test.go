package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/flowstart/douyin-web/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add sku image", "add_sku_image"},
		{"Add-Sku-Image", "add_sku_image"},
		{"ADD__SKU__IMAGE", "add_sku_image"},
		{"index pay time 2", "index_pay_time_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading_and_trailing_", "leading_and_trailing"},
		{"订单", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"000001_init_schema.up.sql", "000001_init_schema.down.sql", "000002_add_index.up.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0o644))
	}

	mf, err := CreateMigration(dir, "add sku image", "Store the product image per SKU")
	require.NoError(t, err)
	assert.Equal(t, "000003", mf.Version)
	assert.Equal(t, filepath.Join(dir, "000003_add_sku_image.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000003_add_sku_image.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add sku image")
	assert.Contains(t, string(up), "Store the product image per SKU")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback of add sku image")
}

func TestCreateMigration_EmptyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsUnusableName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_add_index.up.sql":     {Data: []byte("--")},
		"000002_add_index.down.sql":   {Data: []byte("--")},
		"000001_init_schema.up.sql":   {Data: []byte("--")},
		"000001_init_schema.down.sql": {Data: []byte("--")},
		"README.md":                   {Data: []byte("notes")},
		"archive/000000_old.up.sql":   {Data: []byte("--")},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init_schema", "000002_add_index"}, names)
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	names, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListMigrations_Embedded(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_init_schema", names[0])
}
