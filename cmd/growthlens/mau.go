package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"GrowthLens/internal/domain/models"
	"GrowthLens/internal/export"
	"GrowthLens/internal/repository"
	"GrowthLens/internal/services/analytics"
)

var mauCmd = &cobra.Command{
	Use:   "mau",
	Short: "Project monthly active users from a monthly history file",
	Long:  `Reads a .csv or .xlsx file with data_date, nuu, ouu, ruu and the retention-rate columns, then appends projected months.`,
	Args:  cobra.NoArgs,
	RunE:  runMAU,
}

var (
	mauFile   string
	mauMonths int
	mauGrowth float64
)

func init() {
	mauCmd.Flags().StringVarP(&mauFile, "file", "f", "", "input file, optionally path#sheet for xlsx")
	mauCmd.Flags().IntVar(&mauMonths, "months", -1, "months to predict (config default when negative)")
	mauCmd.Flags().Float64Var(&mauGrowth, "growth", -1, "growth factor for new users (config default when negative)")
	_ = mauCmd.MarkFlagRequired("file")
}

func runMAU(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := newLogger()
	if err != nil {
		return err
	}
	months := cfg.Analytics.MAU.MonthsToPredict
	if mauMonths >= 0 {
		months = mauMonths
	}
	growth := cfg.Analytics.MAU.GrowthFactor
	if mauGrowth >= 0 {
		growth = mauGrowth
	}

	table, err := repository.NewFileTableSource("", l).Fetch(cmd.Context(), mauFile)
	if err != nil {
		return err
	}
	rows, err := analytics.NewDataValidator(l, nil).CleanMAUData(table)
	if err != nil {
		return err
	}
	results := analytics.NewMAUService(rows,
		analytics.WithBaselineMonths(cfg.Analytics.MAU.BaselineMonths),
		analytics.WithMAULogger(l),
	).Predict(months, growth)
	if results == nil {
		return fmt.Errorf("no usable months in %s", mauFile)
	}

	if outDir != "" {
		path, err := export.NewXLSXWriter(outDir).WriteMAU("cli", results)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models.MAUPredictResponse{Rows: results})
	}

	w := newTable(cmd)
	fmt.Fprintln(w, "month\tnuu\touu\truu\tmau\t\t")
	for _, r := range results {
		mark := ""
		if r.IsPredicted {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%.0f\t%.0f\t%.0f\t%.0f\t%s\t\n", r.DataDate.Format("2006-01"), r.NUU, r.OUU, r.RUU, r.MAU, mark)
	}
	return w.Flush()
}
