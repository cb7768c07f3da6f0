package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/database"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/service"
	"github.com/iliyamo/event-ticket-booking/internal/utils"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending MySQL schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.Store != config.StoreMySQL {
				return errors.New("migrate requires STORE=mysql")
			}
			db, err := database.Open(cmd.Context(), cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			return database.Migrate(cmd.Context(), db)
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire timed-out holds once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			be, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer be.Close()
			pub, closePub := publisherFor(cfg)
			defer closePub()

			res, err := service.NewSweeper(be.store, serviceOptions(cfg, pub)...).SweepExpiredHolds(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		userID string
		role   string
		ttl    int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if !cfg.AuthEnabled() {
				return errors.New("JWT_SECRET is not set")
			}
			if ttl <= 0 {
				ttl = cfg.AccessTTLMin
			}
			tok, err := utils.NewAccessToken(cfg.JWTSecret, userID, role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "subject (user id) of the token")
	cmd.Flags().StringVar(&role, "role", middleware.RoleCustomer, "role claim: ADMIN or CUSTOMER")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "lifetime in minutes (default ACCESS_TOKEN_TTL_MIN)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
