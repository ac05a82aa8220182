package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFlatFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor_account_test.csv")
	contents := strings.Join([]string{
		"variable,value",
		"DOMAIN,example.com",
		"EMAIL,csv@example.com",
		"PASSWORD,secret",
		"COOKIES_STR,cookie material",
		"QUOTA,10 / 100",
		"DAYS,5",
		"SOMETHING_ELSE,ignored",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	account, err := ParseFlatFile(path)
	require.NoError(t, err)
	require.Equal(t, "example.com", account.Domain)
	require.Equal(t, "csv@example.com", account.Email)
	require.Equal(t, "secret", account.Password)
	require.Equal(t, "cookie material", account.Cookie)
	require.Equal(t, "10 / 100", account.Quota)
	require.Equal(t, "5", account.DaysRemaining)
}

func TestParseFlatFileEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	contents := strings.Join([]string{
		"# account credentials",
		"",
		"DOMAIN=example.com",
		"EMAIL=env@example.com",
		"PASSWORD='secret'",
		`COOKIES_STR="cookie material"`,
		"not a pair",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	account, err := ParseFlatFile(path)
	require.NoError(t, err)
	require.Equal(t, "example.com", account.Domain)
	require.Equal(t, "env@example.com", account.Email)
	require.Equal(t, "secret", account.Password)
	require.Equal(t, "cookie material", account.Cookie)
}

func TestRenderFlatFileOmitsEmptyFields(t *testing.T) {
	rendered := RenderFlatFile(&Account{
		Email:    "render@example.com",
		Password: "secret",
	})

	require.True(t, strings.HasPrefix(rendered, FlatFileHeader))
	require.Contains(t, rendered, "EMAIL,render@example.com")
	require.Contains(t, rendered, "PASSWORD,secret")
	require.NotContains(t, rendered, "DOMAIN")
	require.NotContains(t, rendered, "QUOTA")
}

func TestImportFlatFile(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "cursor_account_import.csv")
	account := &Account{
		Domain:   "example.com",
		Email:    "import@example.com",
		Password: "secret",
		Quota:    "1 / 100",
	}
	require.NoError(t, os.WriteFile(path, []byte(RenderFlatFile(account)), 0o600))

	imported, err := s.ImportFlatFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, "import@example.com", imported.Email)

	stored, err := s.GetAccountByEmail(ctx, "import@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "1 / 100", stored.Quota)

	// Every import leaves a durable record behind.
	records, err := s.ListBackupRecords(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "import", records[0].BackupType)

	// Importing the same file again updates in place instead of
	// duplicating.
	_, err = s.ImportFlatFile(ctx, path)
	require.NoError(t, err)
	accounts, err := s.ListAccounts(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestImportFlatFileValidation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// A file without a password fails validation and writes nothing.
	path := filepath.Join(t.TempDir(), "cursor_account_invalid.csv")
	contents := "variable,value\nEMAIL,invalid@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, err := s.ImportFlatFile(ctx, path)
	require.ErrorIs(t, err, ErrValidation)

	accounts, err := s.ListAccounts(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Empty(t, accounts)
}

func TestExportFlatFilesRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	originals := []Account{
		{
			Domain: "example.com", Email: "first@example.com", Password: "one",
			Cookie: "cookie one", Quota: "1 / 100", DaysRemaining: "3",
		},
		{
			Domain: "other.com", Email: "second@other.com", Password: "two",
			APIKey: "key", MailURL: "https://mail.other.com",
		},
	}
	for index := range originals {
		_, err := s.AddAccount(ctx, &originals[index])
		require.NoError(t, err)
	}

	dir := t.TempDir()
	count, err := s.ExportFlatFiles(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	matches, err := filepath.Glob(filepath.Join(dir, "cursor_account_*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Importing the exported files reproduces every populated field.
	imported := map[string]*Account{}
	for _, path := range matches {
		account, err := ParseFlatFile(path)
		require.NoError(t, err)
		imported[account.Email] = account
	}

	for index := range originals {
		original := &originals[index]
		account := imported[original.Email]
		require.NotNil(t, account)
		require.Equal(t, original.Domain, account.Domain)
		require.Equal(t, original.Password, account.Password)
		require.Equal(t, original.Cookie, account.Cookie)
		require.Equal(t, original.APIKey, account.APIKey)
		require.Equal(t, original.MailURL, account.MailURL)
		require.Equal(t, original.Quota, account.Quota)
		require.Equal(t, original.DaysRemaining, account.DaysRemaining)
	}
}
