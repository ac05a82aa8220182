package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ksdme/cursorkeep/internal/store"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	uri := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	s, err := store.Open(context.Background(), store.Options{
		URI:            uri,
		MinConns:       1,
		MaxConns:       1,
		ConnectRetries: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.CreateTables(context.Background()))
	return s
}

func TestBackup(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	id, err := s.AddAccount(ctx, &store.Account{
		Domain:   "example.com",
		Email:    "backup@example.com",
		Password: "secret",
		Quota:    "10 / 100",
	})
	require.NoError(t, err)

	path, err := Backup(ctx, s, dir, "backup@example.com")
	require.NoError(t, err)
	require.True(t, Matches(path))
	require.Equal(t, dir, filepath.Dir(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), store.FlatFileHeader)
	require.Contains(t, string(contents), "EMAIL,backup@example.com")
	require.Contains(t, string(contents), "QUOTA,10 / 100")

	// A durable record was appended alongside the file.
	records, err := s.ListBackupRecords(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "manual", records[0].BackupType)
	require.Equal(t, string(contents), records[0].Payload)
}

func TestBackupMissingAccount(t *testing.T) {
	s := testStore(t)
	dir := t.TempDir()

	_, err := Backup(context.Background(), s, dir, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = Backup(context.Background(), s, dir, "")
	require.ErrorIs(t, err, store.ErrValidation)

	// Nothing was written.
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestUpdateFlatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor_account_update.csv")
	contents := strings.Join([]string{
		"variable,value",
		"EMAIL,update@example.com",
		"PASSWORD,secret",
		"CUSTOM_ROW,kept as is",
		"QUOTA,1 / 100",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	err := UpdateFlatFile(path, map[string]string{
		"QUOTA": "50 / 100",
		"DAYS":  "2",
	})
	require.NoError(t, err)

	updated, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(updated)

	// Known rows are rewritten, unknown rows survive, new keys are
	// appended.
	require.Contains(t, text, "QUOTA,50 / 100")
	require.NotContains(t, text, "1 / 100")
	require.Contains(t, text, "CUSTOM_ROW,kept as is")
	require.Contains(t, text, "DAYS,2")
	require.Contains(t, text, "PASSWORD,secret")
}

func TestUpdateFlatFileNoFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor_account_noop.csv")
	require.NoError(t, os.WriteFile(path, []byte("variable,value\n"), 0o600))

	require.NoError(t, UpdateFlatFile(path, nil))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "variable,value\n", string(contents))
}

func TestListSnapshots(t *testing.T) {
	dir := t.TempDir()

	for index, email := range []string{"a@example.com", "b@example.com"} {
		account := &store.Account{Email: email, Password: "secret"}
		path := filepath.Join(dir, fmt.Sprintf("cursor_account_%d.csv", index))
		require.NoError(t, os.WriteFile(path, []byte(store.RenderFlatFile(account)), 0o600))
	}

	// Files outside the naming convention are not picked up.
	other := filepath.Join(dir, "notes.csv")
	require.NoError(t, os.WriteFile(other, []byte("variable,value\n"), 0o600))

	snapshots, err := ListSnapshots(dir)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	require.Equal(t, "a@example.com", snapshots[0].Account.Email)
	require.Equal(t, "b@example.com", snapshots[1].Account.Email)
	require.False(t, snapshots[0].ModTime.IsZero())
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "cursor_account_remove.csv")
	require.NoError(t, os.WriteFile(path, []byte("variable,value\n"), 0o600))

	require.NoError(t, Remove(path))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// Only files following the naming convention can be removed.
	other := filepath.Join(dir, "notes.csv")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	require.ErrorIs(t, Remove(other), store.ErrValidation)
	_, err = os.Stat(other)
	require.NoError(t, err)
}

func TestMatches(t *testing.T) {
	require.True(t, Matches("cursor_account_20240101_120000.csv"))
	require.True(t, Matches("/some/dir/cursor_account_1.csv"))
	require.False(t, Matches("account.csv"))
	require.False(t, Matches("cursor_account_1.txt"))
}
