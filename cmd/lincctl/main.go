package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/audit"
	"github.com/xela07ax/linc-gateway/internal/infra"
	"github.com/xela07ax/linc-gateway/internal/infra/auth"
	"github.com/xela07ax/linc-gateway/internal/repository/postgres"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lincctl",
		Short:         "Admin tool for the Linc gateway: audit retention, logs, tokens, correlations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(correlationCmd())
	return rootCmd
}

// env: конфиг и логгер, общие для всех команд
func env() (*infra.Config, *zap.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete audit log partitions older than the retention window (for cron)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("retention-days")
			if days <= 0 {
				days = cfg.Audit.RetentionDays
			}

			rdb, err := infra.ConnectRedis(cmd.Context(), cfg.Redis, logger)
			if err != nil {
				return err
			}
			defer rdb.Close()

			store := audit.NewRedisStore(rdb, cfg.Audit.Retention(), logger)
			n, err := audit.NewSweeper(store, days, cfg.Audit.SweepInterval, nil, logger).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit entries older than %d days\n", n, days)
			return nil
		},
	}
	cmd.Flags().Int("retention-days", 0, "Retention window in days (default: audit.retention_days)")
	return cmd
}

func logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <YYYY-MM-DD>",
		Short: "Print audit entries of one day partition as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			rdb, err := infra.ConnectRedis(cmd.Context(), cfg.Redis, logger)
			if err != nil {
				return err
			}
			defer rdb.Close()

			entries, err := audit.NewRedisStore(rdb, cfg.Audit.Retention(), logger).QueryByDate(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 1000, "Maximum number of entries")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens in the token store (local environments)",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Store a bearer token; a random one is generated when --token is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}
			token, _ := cmd.Flags().GetString("token")
			client, _ := cmd.Flags().GetString("client")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if token == "" {
				token = uuid.NewString()
			}

			rdb, err := infra.ConnectRedis(cmd.Context(), cfg.Redis, logger)
			if err != nil {
				return err
			}
			defer rdb.Close()

			if err := auth.NewRedisTokenStore(rdb).Put(cmd.Context(), token, client, ttl); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	addCmd.Flags().String("token", "", "Token value")
	addCmd.Flags().String("client", "local", "Client identifier stored with the token")
	addCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	cmd.AddCommand(addCmd)

	revokeCmd := &cobra.Command{
		Use:   "revoke <token>",
		Short: "Remove a token before it expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}
			rdb, err := infra.ConnectRedis(cmd.Context(), cfg.Redis, logger)
			if err != nil {
				return err
			}
			defer rdb.Close()
			return auth.NewRedisTokenStore(rdb).Revoke(cmd.Context(), args[0])
		},
	}
	cmd.AddCommand(revokeCmd)
	return cmd
}

func correlationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correlation",
		Short: "Inspect orchestrator correlation records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <correlation-id>",
		Short: "List correlation records under one correlation id, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCorrelations(cmd.Context(), func(repo *postgres.CorrelationRepo) (any, error) {
				return repo.ListByCorrelation(cmd.Context(), args[0])
			}, cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "bundle <bundle-id>",
		Short: "List correlation records of a bundle, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCorrelations(cmd.Context(), func(repo *postgres.CorrelationRepo) (any, error) {
				return repo.ListByBundle(cmd.Context(), args[0])
			}, cmd)
		},
	})
	return cmd
}

func withCorrelations(ctx context.Context, fn func(*postgres.CorrelationRepo) (any, error), cmd *cobra.Command) error {
	cfg, logger, err := env()
	if err != nil {
		return err
	}
	pool, err := infra.ConnectPostgres(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	out, err := fn(postgres.NewCorrelationRepo(pool))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
