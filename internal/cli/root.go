package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilancio/internal/backend"
	"bilancio/internal/log"
	"bilancio/internal/services"
)

var (
	appLedger  *services.Ledger
	appCleanup backend.CleanupFunc
)

var rootCmd = &cobra.Command{
	Use:   "bilancio",
	Short: "Personal finance ledger with temporal projections",
	Long: `bilancio keeps a month-bucketed personal ledger: manual entries,
recurring rules, salary projections and installment plans. Credit-card
charges are attributed to the billing month derived from the statement
closing day.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupBackend,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardownBackend()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setupBackend(cmd *cobra.Command, args []string) error {
	LoadEnvFile()
	logger := SetupLogger(log.ComponentCLI)
	cfg := LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if err := backendCfg.Validate(); err != nil {
		return err
	}

	result, err := backend.NewFactory(logger.Logger).CreateBackend(cmd.Context(), backendCfg)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	appLedger = result.Ledger
	appCleanup = result.Cleanup
	return nil
}

func teardownBackend() error {
	if appCleanup != nil {
		return appCleanup()
	}
	return nil
}
