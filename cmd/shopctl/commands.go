package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/app"
	"github.com/mamadbah2/cycleshop/internal/auth"
	"github.com/mamadbah2/cycleshop/internal/config"
	"github.com/mamadbah2/cycleshop/internal/export"
	"github.com/mamadbah2/cycleshop/internal/service/reporting"
	"github.com/mamadbah2/cycleshop/pkg/logger"
)

const dateLayout = "2006-01-02"

var errAuditFindings = errors.New("audit reported findings")

type opener func(ctx context.Context, envFile string) (*app.App, error)

func openApp(ctx context.Context, envFile string) (*app.App, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	base, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, base)
}

type cli struct {
	envFile string
	open    opener
	app     *app.App
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Operator tooling for the cycle shop backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context(), c.envFile)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close(context.Background())
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env", "", "path to an env file (defaults to ./.env)")

	root.AddCommand(c.auditCmd(), c.reportCmd(), c.exportCmd(), c.tokenCmd())
	return root
}

func (c *cli) auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check stock, ledger, invoice and party consistency",
		Long: `Runs the consistency audit once and prints the result as JSON.
Exits non-zero when any finding is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.Audit.Run(cmd.Context())
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Clean() {
				return errAuditFindings
			}
			return nil
		},
	}
}

func (c *cli) reportCmd() *cobra.Command {
	var (
		date   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the daily report",
		Example: `  # Generate and publish today's report
  shopctl report

  # Print the report for a past day without saving or sending it
  shopctl report --date 2026-03-14 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := c.app.Reports.Today()
			if date != "" {
				parsed, err := time.ParseInLocation(dateLayout, date, day.Location())
				if err != nil {
					return fmt.Errorf("invalid --date, use YYYY-MM-DD: %w", err)
				}
				day = parsed
			}

			build := c.app.Reports.Generate
			if dryRun {
				build = c.app.Reports.Build
			}
			report, err := build(cmd.Context(), day)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reporting.FormatMessage(*report))
			return err
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "report day as YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the report without saving or publishing it")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger summary workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := c.app.Ledger.Summary(cmd.Context())
			if err != nil {
				return err
			}
			if out == "-" {
				return export.WriteLedgerSummary(cmd.OutOrStdout(), summary)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.WriteLedgerSummary(f, summary); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			zap.L().Info("ledger summary exported", zap.String("path", out))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "ledger-summary.xlsx", "output file, - for stdout")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var (
		userID   string
		username string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				username = userID
			}
			token, expiresAt, err := c.app.JWT.Issue(auth.Principal{
				UserID:   userID,
				Username: username,
				Role:     auth.Role(role),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"token":     token,
				"expiresAt": expiresAt,
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed in the token")
	cmd.Flags().StringVar(&username, "name", "", "display name (default: the user id)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleSales), "sales, manager or admin")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
