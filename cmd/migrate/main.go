// Command migrate applies or rolls back the shop schema.
//
//	migrate up
//	migrate down [N]
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/example/clothing-shop/internal/config"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"github.com/example/clothing-shop/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "[Migrate] %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate up | down [N]")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := store.ConnectPostgres(context.Background(), store.PostgresConfig{URL: cfg.DatabaseURL, MaxOpenConns: 1}, log)
	if err != nil {
		return err
	}
	defer st.Close()

	switch args[0] {
	case "up":
		return store.MigrateUp(st.DB(), log)
	case "down":
		steps := 1
		if len(args) > 1 {
			steps, err = strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[1])
			}
		}
		return store.MigrateDown(st.DB(), steps, log)
	default:
		return fmt.Errorf("unknown command %q, expected up or down", args[0])
	}
}
