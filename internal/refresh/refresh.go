// Package refresh reconciles quota and trial counters from the
// upstream service back into storage and into any flat file backup the
// account came from.
package refresh

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ksdme/cursorkeep/internal/backup"
	"github.com/ksdme/cursorkeep/internal/session"
	"github.com/ksdme/cursorkeep/internal/store"
	"github.com/pkg/errors"
)

type Worker struct {
	store  *store.Store
	client *Client

	// Serializes refreshes of the same account, keyed by email. Two
	// concurrent refreshes of one account would otherwise race on the
	// write back. Refreshes of distinct accounts stay independent and
	// unordered.
	lock  sync.Mutex
	locks map[string]*sync.Mutex
}

func NewWorker(s *store.Store, client *Client) *Worker {
	return &Worker{
		store:  s,
		client: client,
		locks:  make(map[string]*sync.Mutex),
	}
}

// The outcome of refreshing one account in a batch.
type Outcome struct {
	Email string
	Err   error
}

// The aggregate result of a batch refresh. A failed account never
// aborts the batch or rolls back earlier successes.
type BatchResult struct {
	Succeeded int
	Failed    int
	Outcomes  []Outcome
}

// Messages returns the per account error messages of the batch.
func (r BatchResult) Messages() []string {
	var messages []string
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			messages = append(messages, outcome.Email+": "+outcome.Err.Error())
		}
	}
	return messages
}

// RefreshAccount fetches the current identity, trial and usage state of
// the account and writes it back through the gateway. The passed
// account is updated in place on success. No field is written unless
// all three lookups succeeded.
func (w *Worker) RefreshAccount(ctx context.Context, account *store.Account) error {
	if account.Cookie == "" {
		return errors.Wrapf(session.ErrMalformedToken, "account %s has no session cookie", account.Email)
	}

	unlock := w.acquire(account.Email)
	defer unlock()

	userID, err := session.UserID(account.Cookie)
	if err != nil {
		return err
	}

	cookie, err := session.Normalize(account.Cookie)
	if err != nil {
		return err
	}

	usage, err := w.client.FetchUsage(ctx, cookie, userID)
	if err != nil {
		return err
	}

	fields := map[string]any{
		"domain":         usage.Domain,
		"quota":          usage.Quota,
		"days_remaining": usage.DaysRemaining,
		"cookie":         cookie,
	}
	if usage.Email != Unknown {
		fields["email"] = usage.Email
	}
	if _, err := w.store.UpdateAccount(ctx, account.ID, fields); err != nil {
		return err
	}

	account.Domain = usage.Domain
	account.Quota = usage.Quota
	account.DaysRemaining = usage.DaysRemaining
	account.Cookie = cookie
	if usage.Email != Unknown {
		account.Email = usage.Email
	}
	return nil
}

// RefreshAll refreshes every stored account. Each account succeeds or
// fails on its own.
func (w *Worker) RefreshAll(ctx context.Context) (BatchResult, error) {
	accounts, err := w.store.ListAccounts(ctx, "", 0, 0)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for index := range accounts {
		account := &accounts[index]

		if err := w.RefreshAccount(ctx, account); err != nil {
			slog.Error("could not refresh account", "email", account.Email, "err", err)
			result.Failed++
			result.Outcomes = append(result.Outcomes, Outcome{account.Email, err})
			continue
		}

		result.Succeeded++
		result.Outcomes = append(result.Outcomes, Outcome{account.Email, nil})
	}

	return result, nil
}

// RefreshSnapshot refreshes a file backed account. The database row is
// created when missing, the fetched state is written back both to the
// row and, in place, to the backup file.
func (w *Worker) RefreshSnapshot(ctx context.Context, snapshot *backup.Snapshot) error {
	account, err := w.store.GetAccountByEmail(ctx, snapshot.Account.Email)
	if err != nil {
		return err
	}
	if account == nil {
		account = &snapshot.Account
		if _, err := w.store.UpsertByEmail(ctx, account); err != nil {
			return err
		}
	}

	// The file may carry fresher cookie material than the row.
	if snapshot.Account.Cookie != "" {
		account.Cookie = snapshot.Account.Cookie
	}

	if err := w.RefreshAccount(ctx, account); err != nil {
		return err
	}

	fields := map[string]string{
		"DOMAIN":      account.Domain,
		"EMAIL":       account.Email,
		"QUOTA":       account.Quota,
		"DAYS":        account.DaysRemaining,
		"COOKIES_STR": account.Cookie,
	}
	if err := backup.UpdateFlatFile(snapshot.Path, fields); err != nil {
		return err
	}

	snapshot.Account = *account
	return nil
}

// RefreshSnapshots refreshes a set of file backed accounts with batch
// semantics, reporting success and failure counts per account.
func (w *Worker) RefreshSnapshots(ctx context.Context, snapshots []backup.Snapshot) BatchResult {
	var result BatchResult
	for index := range snapshots {
		snapshot := &snapshots[index]

		if err := w.RefreshSnapshot(ctx, snapshot); err != nil {
			slog.Error(
				"could not refresh account",
				"email", snapshot.Account.Email,
				"file", snapshot.Path,
				"err", err,
			)
			result.Failed++
			result.Outcomes = append(result.Outcomes, Outcome{snapshot.Account.Email, err})
			continue
		}

		result.Succeeded++
		result.Outcomes = append(result.Outcomes, Outcome{snapshot.Account.Email, nil})
	}

	return result
}

func (w *Worker) acquire(email string) func() {
	w.lock.Lock()
	lock, ok := w.locks[email]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[email] = lock
	}
	w.lock.Unlock()

	lock.Lock()
	return lock.Unlock
}
