package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := "log:\n  level: error\n" +
		"storage:\n  driver: sqlite\n  sqlite_path: " + filepath.Join(dir, "room.db") + "\n" +
		"blob:\n  driver: fs\n  fs_root: " + filepath.Join(dir, "blobs") + "\n  public_base_url: https://cdn.example.com\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEntitiesListsCatalog(t *testing.T) {
	cfgPath := writeConfig(t)
	out, err := execute(t, "", "--config", cfgPath, "entities")
	require.NoError(t, err)
	assert.Contains(t, out, "books")
	assert.Contains(t, out, "timeline")
	assert.Contains(t, out, "sort_order:int")
}

func TestAddListDelete(t *testing.T) {
	cfgPath := writeConfig(t)
	out, err := execute(t, "", "--config", cfgPath, "add", "books", "--set", "title=Dune", "--set", "author=Frank Herbert")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "created books "), out)
	id := strings.Fields(out)[2]

	out, err = execute(t, "", "--config", cfgPath, "list", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "1 books")

	_, err = execute(t, "no\n", "--config", cfgPath, "delete", "books", id)
	require.Error(t, err)

	out, err = execute(t, "", "--config", cfgPath, "delete", "books", id, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted books "+id)

	out, err = execute(t, "", "--config", cfgPath, "list", "books")
	require.NoError(t, err)
	assert.Contains(t, out, "0 books")
}

func TestAddRejectsInvalidRecord(t *testing.T) {
	cfgPath := writeConfig(t)
	_, err := execute(t, "", "--config", cfgPath, "add", "books", "--set", "author=Nobody")
	require.Error(t, err)
	_, err = execute(t, "", "--config", cfgPath, "add", "books", "--set", "=x")
	require.Error(t, err)
	_, err = execute(t, "", "--config", cfgPath, "add", "nope")
	require.Error(t, err)
}

func TestUploadAttachesImage(t *testing.T) {
	cfgPath := writeConfig(t)
	out, err := execute(t, "", "--config", cfgPath, "add", "books", "--set", "title=Dune")
	require.NoError(t, err)
	id := strings.Fields(out)[2]

	img := filepath.Join(t.TempDir(), "Cover.PNG")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o600))
	out, err = execute(t, "", "--config", cfgPath, "upload", "books", id, "cover", img)
	require.NoError(t, err)
	assert.Regexp(t, `^https://cdn\.example\.com/images/books/[0-9a-f]{8}-\d+\.png\n$`, out)
}

func TestSeedAndExport(t *testing.T) {
	cfgPath := writeConfig(t)
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte("tools:\n  - name: Neovim\n  - name: Figma\nquotes:\n  - text: Less is more\n"), 0o600))
	out, err := execute(t, "", "--config", cfgPath, "seed", seedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "created 3 record(s)")

	xlsx := filepath.Join(t.TempDir(), "room.xlsx")
	_, err = execute(t, "", "--config", cfgPath, "export", "tools", "quotes", "--out", xlsx)
	require.NoError(t, err)

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"tools", "quotes"}, f.GetSheetList())
	rows, err := f.GetRows("tools")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Neovim", rows[1][1])
}

func TestHashPassword(t *testing.T) {
	cfgPath := writeConfig(t)
	out, err := execute(t, "", "--config", cfgPath, "hash-password", "s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "$2"), out)
}
