package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/internal/scenario"
)

func newRunCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Play a scenario file and print events and balances",
		Example: `  balancer run dinner.yaml
  balancer run --json --currency usdt trip.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runScenario(ctx, cmd, args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print settlement receipts as JSON")

	return cmd
}

func runScenario(ctx context.Context, cmd *cobra.Command, path string, asJSON bool) error {
	cfg, err := loadEnv()
	if err != nil {
		return err
	}

	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	// Precedence: flags, then env, then the scenario file.
	switch {
	case currencyFlag != "":
		sc.Currency = currencyFlag
	case cfg.Currency != "":
		sc.Currency = cfg.Currency
	}
	switch {
	case idModeFlag != "":
		sc.IDMode = idModeFlag
	case cfg.IDMode != "":
		sc.IDMode = cfg.IDMode
	}

	level := cfg.level()
	if verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	opts := []balancer.Option{
		balancer.WithLogger(logger),
		balancer.WithHookTimeout(cfg.HookTimeout),
	}
	if cfg.CurrencyReference != "" {
		opts = append(opts, balancer.WithCurrencyReference(cfg.CurrencyReference))
	}

	out := cmd.OutOrStdout()
	report, runErr := scenario.Run(ctx, sc, out, opts...)
	if report == nil {
		return runErr
	}

	for _, res := range report.Sessions {
		if res.Settlement == nil {
			continue
		}
		fmt.Fprintln(out)
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res.Settlement); err != nil {
				return err
			}
			continue
		}
		if err := scenario.WriteSettlement(out, sc, res.Label, res.Settlement); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(out, "\nsessions: %s\n", report.Summary())
	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d sessions failed", n, len(report.Sessions))
	}
	return nil
}
