package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/ksdme/cursorkeep/internal/config"
	"github.com/ksdme/cursorkeep/internal/store"
)

func main() {
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

	// TODO: This creates tables with the latest schema. We need actual
	// incremental migrations once the schema starts changing.
	// https://bun.uptrace.dev/guide/migrations.html
	if err := s.CreateTables(ctx); err != nil {
		log.Panicf("could not create tables: %v", err)
	}
	slog.Info("created tables")
}
