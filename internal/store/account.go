package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/ksdme/cursorkeep/internal/utils"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Represents a managed account on the upstream service.
type Account struct {
	ID int64 `bun:",pk,autoincrement"`

	Domain   string `bun:",notnull"`
	Email    string `bun:",notnull,unique"`
	Password string `bun:",notnull"`

	// The raw session cookie material. Its payload encodes the user id
	// on the upstream service.
	Cookie string

	APIKey  string `bun:"api_key"`
	MailURL string `bun:"mail_url"`

	// Free form strings, the upstream reports these as "10 / 100" style
	// counters and we don't interpret them beyond display.
	Quota         string
	DaysRemaining string `bun:"days_remaining"`

	Status string `bun:",nullzero,notnull,default:'active'"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// AddAccount inserts a new account and returns its generated id.
// Domain, email and password are mandatory.
func (s *Store) AddAccount(ctx context.Context, account *Account) (int64, error) {
	if account.Domain == "" || account.Email == "" || account.Password == "" {
		return 0, errors.Wrap(ErrValidation, "domain, email and password are required")
	}

	account.UpdatedAt = time.Now()
	if _, err := s.DB.NewInsert().Model(account).Exec(ctx); err != nil {
		if utils.IsUniqueConstraintErr(err) {
			return 0, errors.Wrap(ErrValidation, "an account with this email already exists")
		}
		return 0, errors.Wrapf(ErrStorage, "could not insert account: %v", err)
	}

	return account.ID, nil
}

// ListAccounts returns stored accounts, optionally filtered by status,
// most recently created first.
func (s *Store) ListAccounts(ctx context.Context, status string, limit, offset int) ([]Account, error) {
	var accounts []Account

	query := s.DB.NewSelect().Model(&accounts).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, errors.Wrapf(ErrStorage, "could not query accounts: %v", err)
	}
	return accounts, nil
}

// GetAccountByEmail returns the account with the email, or nil when no
// such account exists.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account

	err := s.DB.NewSelect().Model(&account).Where("email = ?", email).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "could not query accounts: %v", err)
	}

	return &account, nil
}

// UpdateAccount applies the column to value mapping to the account and
// returns the affected row count. Zero affected rows is not an error.
// The updated timestamp is bumped on every call.
func (s *Store) UpdateAccount(ctx context.Context, id int64, fields map[string]any) (int64, error) {
	query := s.DB.NewUpdate().
		Model((*Account)(nil)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id)
	for _, column := range accountColumns {
		if value, ok := fields[column]; ok {
			query = query.Set("? = ?", bun.Ident(column), value)
		}
	}

	result, err := query.Exec(ctx)
	if err != nil {
		return 0, errors.Wrapf(ErrStorage, "could not update account: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrapf(ErrStorage, "could not read affected rows: %v", err)
	}
	return affected, nil
}

// The mutable columns UpdateAccount accepts. Iterated in a fixed order
// so the generated statement is deterministic.
var accountColumns = []string{
	"domain",
	"email",
	"password",
	"cookie",
	"api_key",
	"mail_url",
	"quota",
	"days_remaining",
	"status",
}

// DeleteAccount removes the account row. Zero affected rows is not an
// error.
func (s *Store) DeleteAccount(ctx context.Context, id int64) (int64, error) {
	result, err := s.DB.NewDelete().Model((*Account)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return 0, errors.Wrapf(ErrStorage, "could not delete account: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrapf(ErrStorage, "could not read affected rows: %v", err)
	}
	return affected, nil
}

// UpsertByEmail inserts the account, or, when an account with the same
// email already exists, updates it in place. Email is the conflict key.
// Returns true when a new row was created.
func (s *Store) UpsertByEmail(ctx context.Context, account *Account) (bool, error) {
	if account.Email == "" || account.Password == "" {
		return false, errors.Wrap(ErrValidation, "email and password are required")
	}

	var created bool
	err := s.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var existing Account
		err := tx.NewSelect().Model(&existing).Where("email = ?", account.Email).Scan(ctx)
		if err == sql.ErrNoRows {
			account.UpdatedAt = time.Now()
			if _, err := tx.NewInsert().Model(account).Exec(ctx); err != nil {
				return errors.Wrapf(ErrStorage, "could not insert account: %v", err)
			}
			created = true
			return nil
		}
		if err != nil {
			return errors.Wrapf(ErrStorage, "could not query accounts: %v", err)
		}

		account.ID = existing.ID
		account.CreatedAt = existing.CreatedAt
		account.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(account).
			Column(
				"domain", "password", "cookie", "api_key", "mail_url",
				"quota", "days_remaining", "updated_at",
			).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.Wrapf(ErrStorage, "could not update account: %v", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}
