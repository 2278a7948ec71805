package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"GrowthLens/pkg/config"
	applogger "GrowthLens/pkg/logger"
)

var (
	configPath string
	logLevel   string
	outDir     string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "growthlens",
	Short:         "LTV and MAU growth projections from cohort tables",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (defaults used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "", "write an xlsx workbook into this directory")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(ltvCmd, mauCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config with environment overrides, or returns the
// defaults when no file is given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Parse([]byte("{}"))
	}
	return config.LoadWithEnv(configPath)
}

func newLogger() (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{Level: logLevel, Format: "console", Output: "stderr"})
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
}

func fmtOpt(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}
