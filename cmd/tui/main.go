package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ksdme/cursorkeep/internal/backup"
	"github.com/ksdme/cursorkeep/internal/config"
	"github.com/ksdme/cursorkeep/internal/events"
	"github.com/ksdme/cursorkeep/internal/refresh"
	"github.com/ksdme/cursorkeep/internal/register"
	"github.com/ksdme/cursorkeep/internal/store"
	"github.com/ksdme/cursorkeep/internal/tui"
)

func main() {
	// The terminal belongs to the interface, logs go to a file.
	logs, err := os.OpenFile(config.Core.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Panicf("could not open log file: %v", err)
	}
	defer logs.Close()

	level := slog.LevelInfo
	if config.Core.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: level})))

	ctx := context.Background()

	s, err := store.Open(ctx, store.Options{
		URI:            config.Core.DBURI,
		MinConns:       config.Core.DBMinConns,
		MaxConns:       config.Core.DBMaxConns,
		ConnectRetries: config.Core.DBConnectRetries,
	})
	if err != nil {
		log.Panicf("could not open database: %v", err)
	}
	defer s.Close()

	if err := s.CreateTables(ctx); err != nil {
		log.Panicf("could not create tables: %v", err)
	}

	// Pull existing flat files into the database before the interface
	// comes up. A file that cannot be imported is logged and skipped.
	syncFlatFiles(ctx, s)

	watcher, err := backup.Watch(config.Backup.Dir)
	if err != nil {
		log.Panicf("could not watch backup folder: %v", err)
	}
	defer watcher.Stop()

	client := refresh.NewClient(
		config.Service.APIBaseURL,
		time.Duration(config.Service.RequestTimeoutSeconds)*time.Second,
	)
	worker := refresh.NewWorker(s, client)

	// Refresh everything once in the background so the listing starts
	// out current without blocking startup.
	go func() {
		snapshots, err := backup.ListSnapshots(config.Backup.Dir)
		if err != nil {
			slog.Error("could not list backups for background refresh", "err", err)
			return
		}
		if len(snapshots) == 0 {
			return
		}

		result := worker.RefreshSnapshots(ctx, snapshots)
		slog.Info(
			"background refresh finished",
			"succeeded", result.Succeeded,
			"failed", result.Failed,
		)
		events.AccountsRefreshedSignal.Emit(events.AccountsTopic, result.Succeeded)
	}()

	registrar := register.CommandRegistrar{Command: config.Service.RegisterCommand}
	model := tui.NewModel(s, worker, registrar, config.Backup.Dir, config.Service.Domain)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Panicf("could not run program: %v", err)
	}
}

func syncFlatFiles(ctx context.Context, s *store.Store) {
	if _, err := os.Stat(config.Backup.EnvFile); err == nil {
		if _, err := s.ImportFlatFile(ctx, config.Backup.EnvFile); err != nil {
			slog.Error("could not import env file", "path", config.Backup.EnvFile, "err", err)
		}
	}

	snapshots, err := backup.ListSnapshots(config.Backup.Dir)
	if err != nil {
		slog.Error("could not list backup folder", "dir", config.Backup.Dir, "err", err)
		return
	}
	for _, snapshot := range snapshots {
		if _, err := s.ImportFlatFile(ctx, snapshot.Path); err != nil {
			slog.Error("could not import backup", "path", snapshot.Path, "err", err)
		}
	}
}
