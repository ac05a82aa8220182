package store

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// The keys a flat file can carry, in the order they are written out.
// The same convention is shared by the csv and the env form.
var FlatFileKeys = []string{
	"DOMAIN",
	"EMAIL",
	"PASSWORD",
	"COOKIES_STR",
	"API_KEY",
	"MOE_MAIL_URL",
	"QUOTA",
	"DAYS",
}

// FlatFileHeader is the first line of the csv form.
const FlatFileHeader = "variable,value"

// ParseFlatFile reads a backup file into an account. Files ending in
// .env are read as KEY=value lines, everything else as two column csv
// with a variable,value header.
func ParseFlatFile(path string) (*Account, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	defer file.Close()

	var pairs map[string]string
	if strings.HasSuffix(path, ".env") {
		pairs, err = parseEnvPairs(file)
	} else {
		pairs, err = parseCSVPairs(file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", path)
	}

	return accountFromPairs(pairs), nil
}

func parseEnvPairs(r io.Reader) (map[string]string, error) {
	pairs := map[string]string{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		value = strings.TrimSpace(value)
		value = strings.Trim(value, `'"`)
		pairs[strings.TrimSpace(key)] = value
	}

	return pairs, scanner.Err()
}

func parseCSVPairs(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	pairs := map[string]string{}
	for index, row := range rows {
		if len(row) < 2 {
			continue
		}
		// Skip the variable,value header.
		if index == 0 && row[0] == "variable" {
			continue
		}
		pairs[row[0]] = row[1]
	}

	return pairs, nil
}

func accountFromPairs(pairs map[string]string) *Account {
	return &Account{
		Domain:        pairs["DOMAIN"],
		Email:         pairs["EMAIL"],
		Password:      pairs["PASSWORD"],
		Cookie:        pairs["COOKIES_STR"],
		APIKey:        pairs["API_KEY"],
		MailURL:       pairs["MOE_MAIL_URL"],
		Quota:         pairs["QUOTA"],
		DaysRemaining: pairs["DAYS"],
	}
}

// FlatFilePairs returns the populated fields of the account as key value
// pairs in the canonical order. Empty fields are omitted so they round
// trip back to their zero value.
func FlatFilePairs(account *Account) [][2]string {
	values := map[string]string{
		"DOMAIN":       account.Domain,
		"EMAIL":        account.Email,
		"PASSWORD":     account.Password,
		"COOKIES_STR":  account.Cookie,
		"API_KEY":      account.APIKey,
		"MOE_MAIL_URL": account.MailURL,
		"QUOTA":        account.Quota,
		"DAYS":         account.DaysRemaining,
	}

	var pairs [][2]string
	for _, key := range FlatFileKeys {
		if value := values[key]; value != "" {
			pairs = append(pairs, [2]string{key, value})
		}
	}
	return pairs
}

// RenderFlatFile serializes the account to the csv form.
func RenderFlatFile(account *Account) string {
	var builder strings.Builder

	writer := csv.NewWriter(&builder)
	writer.Write([]string{"variable", "value"})
	for _, pair := range FlatFilePairs(account) {
		writer.Write([]string{pair[0], pair[1]})
	}
	writer.Flush()

	return builder.String()
}

// ImportFlatFile parses a backup file and upserts it into storage by
// email. Files without an email or a password fail validation and
// nothing is written.
func (s *Store) ImportFlatFile(ctx context.Context, path string) (*Account, error) {
	account, err := ParseFlatFile(path)
	if err != nil {
		return nil, err
	}

	if account.Email == "" || account.Password == "" {
		return nil, errors.Wrapf(ErrValidation, "%s is missing an email or a password", path)
	}

	if _, err := s.UpsertByEmail(ctx, account); err != nil {
		return nil, err
	}

	record := &BackupRecord{
		AccountID:  account.ID,
		Payload:    RenderFlatFile(account),
		BackupType: "import",
		Notes:      "imported from " + path,
	}
	if err := s.AppendBackupRecord(ctx, record); err != nil {
		return nil, err
	}

	return account, nil
}

// ExportFlatFiles writes one flat file per stored account into dir and
// returns how many were written. Importing the written files reproduces
// every populated field.
func (s *Store) ExportFlatFiles(ctx context.Context, dir string) (int, error) {
	accounts, err := s.ListAccounts(ctx, "", 0, 0)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "could not create %s", dir)
	}

	timestamp := time.Now().Format("20060102_150405")
	for index, account := range accounts {
		name := fmt.Sprintf("cursor_account_%s_%d.csv", timestamp, index+1)
		path := filepath.Join(dir, name)

		err := os.WriteFile(path, []byte(RenderFlatFile(&account)), 0o600)
		if err != nil {
			return index, errors.Wrapf(err, "could not write %s", path)
		}
	}

	return len(accounts), nil
}
