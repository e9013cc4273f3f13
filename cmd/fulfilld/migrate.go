package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the delivery, phone index and settings tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			log, err := newZap(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			db, store, err := openMySQL(ctx, cfg.MySQL, newLogger(log))
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			tables := store.Tables()
			log.Info("migration done",
				zap.String("deliveries", tables.Deliveries),
				zap.String("phone_owners", tables.PhoneOwners),
				zap.String("settings", tables.Settings),
			)
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")

			return nil
		},
	}
}
