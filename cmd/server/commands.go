package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"competency/internal/app/server"
	"competency/internal/domain/reminders"
	"competency/internal/platform/auth"
	"competency/internal/platform/config"
	"competency/internal/platform/db"
	"competency/internal/platform/jobs"
	"competency/internal/transport/http/shared"
	"competency/migrations"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "competency",
		Short:         "Competency assessment lifecycle and escalation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(
		newServeCmd(),
		newTickCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newTokenCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(ctx)
		},
	}
}

func newTickCmd() *cobra.Command {
	var tenantID, at string
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one reminder pass, optionally replaying a past day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.RunSeed = false
			loc, err := cfg.Engine.Location()
			if err != nil {
				return err
			}
			when, err := shared.ParseInstant(at, loc)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}

			ctx := cmd.Context()
			app, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			tenants := []string{tenantID}
			if tenantID == "" {
				if tenants, err = jobs.NewStore(app.DB).ListTenants(ctx); err != nil {
					return fmt.Errorf("listing tenants: %w", err)
				}
			}

			reports := make([]reminders.Report, 0, len(tenants))
			var firstErr error
			for _, tenant := range tenants {
				report, err := app.Jobs.RunReminders(ctx, tenant, when)
				if err != nil && firstErr == nil {
					firstErr = fmt.Errorf("tenant %s: %w", tenant, err)
				}
				reports = append(reports, report)
			}
			if err := printJSON(cmd, reports); err != nil {
				return err
			}
			return firstErr
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (default: every tenant)")
	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this day (YYYY-MM-DD) or instant (RFC3339)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if cfg.MigrationsDir != "" {
				return db.Migrate(ctx, pool, os.DirFS(cfg.MigrationsDir))
			}
			return db.Migrate(ctx, pool, migrations.FS)
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create a demo tenant, reporting line and active cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
				return err
			}
			result, err := db.Seed(ctx, pool, cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var userID, tenantID, role string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local API calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: userID, TenantID: tenantID, RoleName: role}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&role, "role", auth.RoleHR, "role name")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
