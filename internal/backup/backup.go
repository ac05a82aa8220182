// Package backup writes and maintains the flat file snapshots of
// accounts, and watches the backup folder for changes made outside the
// program.
package backup

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ksdme/cursorkeep/internal/store"
	"github.com/pkg/errors"
)

// The naming convention backup files follow. Only files matching it
// are picked up by the watcher and the list loaders.
const filePattern = "cursor_account_*.csv"

// A flat file backup on disk along with the account state parsed out
// of it.
type Snapshot struct {
	Path    string
	ModTime time.Time
	Account store.Account
}

// Backup snapshots the stored account with the email to a timestamped
// flat file in dir and appends a durable backup record. A failure never
// mutates an existing backup file.
func Backup(ctx context.Context, s *store.Store, dir string, email string) (string, error) {
	if email == "" {
		return "", errors.Wrap(store.ErrValidation, "no account to back up")
	}

	account, err := s.GetAccountByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if account == nil {
		return "", errors.Wrapf(store.ErrValidation, "no account with email %s", email)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create %s", dir)
	}

	timestamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("cursor_account_%s.csv", timestamp))
	payload := store.RenderFlatFile(account)

	if err := writeAtomically(path, []byte(payload)); err != nil {
		return "", err
	}

	record := &store.BackupRecord{
		AccountID:  account.ID,
		Payload:    payload,
		BackupType: "manual",
		Notes:      "manual backup " + timestamp,
	}
	if err := s.AppendBackupRecord(ctx, record); err != nil {
		return path, err
	}

	return path, nil
}

// UpdateFlatFile rewrites fields of an existing backup file in place.
// Rows it does not know about are preserved, new keys are appended.
func UpdateFlatFile(path string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "could not open %s", path)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	file.Close()
	if err != nil {
		return errors.Wrapf(err, "could not parse %s", path)
	}

	pending := make(map[string]string, len(fields))
	for key, value := range fields {
		pending[key] = value
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if value, ok := pending[row[0]]; ok {
			row[1] = value
			delete(pending, row[0])
		}
	}
	// Append fields the file did not carry yet, in the canonical order.
	for _, key := range store.FlatFileKeys {
		if value, ok := pending[key]; ok {
			rows = append(rows, []string{key, value})
		}
	}

	var builder strings.Builder
	writer := csv.NewWriter(&builder)
	if err := writer.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "could not serialize %s", path)
	}

	return writeAtomically(path, []byte(builder.String()))
}

// ListSnapshots parses every backup file in dir, newest name last.
// Files that cannot be parsed are skipped.
func ListSnapshots(dir string) ([]Snapshot, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePattern))
	if err != nil {
		return nil, errors.Wrapf(err, "could not list %s", dir)
	}
	sort.Strings(matches)

	var snapshots []Snapshot
	for _, path := range matches {
		account, err := store.ParseFlatFile(path)
		if err != nil {
			continue
		}

		snapshot := Snapshot{
			Path:    path,
			Account: *account,
		}
		if info, err := os.Stat(path); err == nil {
			snapshot.ModTime = info.ModTime()
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

// Remove deletes a single backup file. Only files that follow the
// backup naming convention can be removed through here.
func Remove(path string) error {
	if !Matches(path) {
		return errors.Wrapf(store.ErrValidation, "%s is not a backup file", path)
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, "could not remove %s", path)
	}
	return nil
}

// Matches reports whether the path follows the backup file naming
// convention.
func Matches(path string) bool {
	matched, err := filepath.Match(filePattern, filepath.Base(path))
	return err == nil && matched
}

// Writes through a temporary file and renames it over the target, so a
// failed write cannot leave a partial or corrupted backup behind.
func writeAtomically(path string, contents []byte) error {
	temp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrapf(err, "could not stage %s", path)
	}

	if _, err := temp.Write(contents); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return errors.Wrapf(err, "could not write %s", path)
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return errors.Wrapf(err, "could not write %s", path)
	}

	if err := os.Rename(temp.Name(), path); err != nil {
		os.Remove(temp.Name())
		return errors.Wrapf(err, "could not replace %s", path)
	}
	return nil
}
