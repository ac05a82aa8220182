package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// A point in time snapshot of an account. Records are append only and
// never pruned automatically.
type BackupRecord struct {
	ID int64 `bun:",pk,autoincrement"`

	// TODO: We need to setup cascade relationship.
	AccountID int64    `bun:",notnull"`
	Account   *Account `bun:"rel:belongs-to,join:account_id=id"`

	// The serialized flat file contents of the snapshot.
	Payload string `bun:",notnull"`

	BackupType string `bun:"backup_type,notnull"`
	Notes      string

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// AppendBackupRecord stores a snapshot row for an account.
func (s *Store) AppendBackupRecord(ctx context.Context, record *BackupRecord) error {
	if record.AccountID == 0 {
		return errors.Wrap(ErrValidation, "a backup record needs an account")
	}

	if _, err := s.DB.NewInsert().Model(record).Exec(ctx); err != nil {
		return errors.Wrapf(ErrStorage, "could not insert backup record: %v", err)
	}
	return nil
}

// ListBackupRecords returns the snapshots of an account, oldest first.
func (s *Store) ListBackupRecords(ctx context.Context, accountID int64) ([]BackupRecord, error) {
	var records []BackupRecord

	err := s.DB.NewSelect().
		Model(&records).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "could not query backup records: %v", err)
	}

	return records, nil
}
