package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kinger55555/thenailcasino/internal/domain"
	"github.com/kinger55555/thenailcasino/internal/economy"
	"github.com/kinger55555/thenailcasino/internal/game"
)

var grantAdmins []string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema, seed the nail catalog and grant admin roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store != "postgres" {
			return errors.New("migrate needs STORE=postgres")
		}
		ctx := cmd.Context()
		store, closeStore, err := openStore(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer closeStore()

		rules, err := game.NewProvider(game.NewLoader(cfg.RulesDir), cfg.RulesProfile, log)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
		if err := economy.NewService(store, rules, economy.Options{Log: log}).SeedCatalog(ctx); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		for _, id := range grantAdmins {
			if err := store.GrantRole(ctx, id, domain.RoleAdmin); err != nil {
				return fmt.Errorf("grant admin to %s: %w", id, err)
			}
			log.Info("admin granted", "user", id)
		}
		log.Info("migration complete", "nails", len(rules.Current().Catalog))
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringSliceVar(&grantAdmins, "admin", nil, "user ids to grant the admin role")
	rootCmd.AddCommand(migrateCmd)
}
