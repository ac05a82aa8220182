package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/ksdme/cursorkeep/internal/backup"
	"github.com/ksdme/cursorkeep/internal/config"
	"github.com/ksdme/cursorkeep/internal/refresh"
	"github.com/ksdme/cursorkeep/internal/register"
	"github.com/ksdme/cursorkeep/internal/store"
	"github.com/ksdme/cursorkeep/internal/utils"
)

// For the sake of presenting a global help command, we aggregate all the
// supported subcommands here.
type cliArgs struct {
	List *struct{} `arg:"subcommand:list" help:"list stored accounts"`

	Import *struct {
		Path string `arg:"positional,required" help:"a .env or csv flat file to import"`
	} `arg:"subcommand:import" help:"import an account from a flat file"`

	Export *struct {
		Dir string `arg:"positional" help:"folder to export to, defaults to the backup folder"`
	} `arg:"subcommand:export" help:"export every account to flat files"`

	Refresh *struct {
		Email string `arg:"--email" help:"only refresh the account with this email"`
	} `arg:"subcommand:refresh" help:"refresh quota and trial state from the service"`

	Backup *struct {
		Email string `arg:"positional,required" help:"email of the account to back up"`
	} `arg:"subcommand:backup" help:"write a timestamped backup of an account"`

	Delete *struct {
		Path     string `arg:"positional,required" help:"the backup file to delete"`
		PurgeRow bool   `arg:"--purge-row" help:"also delete the account row from the database"`
	} `arg:"subcommand:delete" help:"delete a backup file"`

	Reset *struct{} `arg:"subcommand:reset" help:"reset the editor telemetry machine ids"`
}

func main() {
	var args cliArgs
	parser := arg.MustParse(&args)

	ctx := context.Background()

	s, err := store.Open(ctx, store.Options{
		URI:            config.Core.DBURI,
		MinConns:       config.Core.DBMinConns,
		MaxConns:       config.Core.DBMaxConns,
		ConnectRetries: config.Core.DBConnectRetries,
	})
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	defer s.Close()

	if err := s.CreateTables(ctx); err != nil {
		log.Fatalf("could not create tables: %v", err)
	}

	switch {
	case args.List != nil:
		err = list(ctx, s)

	case args.Import != nil:
		var account *store.Account
		account, err = s.ImportFlatFile(ctx, args.Import.Path)
		if err == nil {
			fmt.Println("imported", account.Email)
		}

	case args.Export != nil:
		dir := args.Export.Dir
		if dir == "" {
			dir = config.Backup.Dir
		}
		var count int
		count, err = s.ExportFlatFiles(ctx, dir)
		if err == nil {
			fmt.Printf("exported %d accounts to %s\n", count, dir)
		}

	case args.Refresh != nil:
		err = refreshAccounts(ctx, s, args.Refresh.Email)

	case args.Backup != nil:
		var path string
		path, err = backup.Backup(ctx, s, config.Backup.Dir, args.Backup.Email)
		if err == nil {
			fmt.Println("backed up to", path)
		}

	case args.Delete != nil:
		err = deleteBackup(ctx, s, args.Delete.Path, args.Delete.PurgeRow)

	case args.Reset != nil:
		err = register.ResetMachineIDs(config.Service.MachineStatePath)
		if err == nil {
			fmt.Println("reset machine ids in", config.Service.MachineStatePath)
		}

	default:
		parser.WriteHelp(os.Stdout)
	}

	if err != nil {
		log.Fatalf("%v", err)
	}
}

func list(ctx context.Context, s *store.Store) error {
	accounts, err := s.ListAccounts(ctx, "", 0, 0)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		fmt.Printf(
			"%s\t%s\t%s\t%s\n",
			account.Email,
			account.Domain,
			account.Quota,
			account.DaysRemaining,
		)
	}
	return nil
}

func refreshAccounts(ctx context.Context, s *store.Store, email string) error {
	client := refresh.NewClient(
		config.Service.APIBaseURL,
		time.Duration(config.Service.RequestTimeoutSeconds)*time.Second,
	)
	worker := refresh.NewWorker(s, client)

	if email != "" {
		account, err := s.GetAccountByEmail(ctx, email)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("no account with email %s", email)
		}

		if err := worker.RefreshAccount(ctx, account); err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\n", account.Email, account.Quota, account.DaysRemaining)
		return nil
	}

	result, err := worker.RefreshAll(ctx)
	if err != nil {
		return err
	}
	for _, message := range result.Messages() {
		fmt.Fprintln(os.Stderr, message)
	}
	fmt.Printf("refreshed %d accounts, %d failed\n", result.Succeeded, result.Failed)
	return nil
}

func deleteBackup(ctx context.Context, s *store.Store, path string, purgeRow bool) error {
	snapshot, err := store.ParseFlatFile(path)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("delete %s? only \"yes\" deletes it: ", path)
	if !utils.AskConsent(os.Stdin, os.Stdout, prompt) {
		fmt.Println("not deleting")
		return nil
	}

	if err := backup.Remove(path); err != nil {
		return err
	}
	fmt.Println("deleted", path)

	if purgeRow && snapshot.Email != "" {
		account, err := s.GetAccountByEmail(ctx, snapshot.Email)
		if err != nil {
			return err
		}
		if account != nil {
			if _, err := s.DeleteAccount(ctx, account.ID); err != nil {
				return err
			}
			fmt.Println("purged account row for", snapshot.Email)
		}
	}
	return nil
}
