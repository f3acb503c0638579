package main

import (
	"fmt"

	"xquest/internal/repository"
	"xquest/pkg/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver != storagePostgres {
			return fmt.Errorf("migrate needs storage.driver=%s, got %q", storagePostgres, cfg.Storage.Driver)
		}

		repo, err := repository.New(cfg.Storage.Database)
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.Migrate(cmd.Context()); err != nil {
			return err
		}

		logger.Logger().Info("Schema is up to date")
		return nil
	},
}
