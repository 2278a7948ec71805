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

var ltvCmd = &cobra.Command{
	Use:   "ltv",
	Short: "Predict retention, ARPU and LTV from a cohort file",
	Long:  `Reads a .csv or .xlsx file with num_day, actual_rr and actual_arpu columns and prints the predicted table and milestone benchmarks.`,
	Args:  cobra.NoArgs,
	RunE:  runLTV,
}

var (
	ltvFile string
	ltvCPI  float64
	ltvNRS  float64
)

func init() {
	ltvCmd.Flags().StringVarP(&ltvFile, "file", "f", "", "input file, optionally path#sheet for xlsx")
	ltvCmd.Flags().Float64Var(&ltvCPI, "target-cpi", 0, "target cost per install (config default when 0)")
	ltvCmd.Flags().Float64Var(&ltvNRS, "net-revenue-share", 0, "net revenue share in (0,1] (config default when 0)")
	_ = ltvCmd.MarkFlagRequired("file")
}

func runLTV(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := newLogger()
	if err != nil {
		return err
	}
	cpi := cfg.Analytics.LTV.TargetCostPerInstall
	if ltvCPI != 0 {
		cpi = ltvCPI
	}
	nrs := cfg.Analytics.LTV.NetRevenueShare
	if ltvNRS != 0 {
		nrs = ltvNRS
	}
	if cpi <= 0 || nrs <= 0 || nrs > 1 {
		return fmt.Errorf("target cpi must be > 0 and net revenue share in (0,1]")
	}

	table, err := repository.NewFileTableSource("", l).Fetch(cmd.Context(), ltvFile)
	if err != nil {
		return err
	}
	rows, err := analytics.NewDataValidator(l, nil).CleanLTVData(table)
	if err != nil {
		return err
	}
	svc := analytics.NewLTVService(rows,
		analytics.WithFitter(analytics.NewPowerLawFitter(cfg.Analytics.LTV.FitMaxEvaluations)),
		analytics.WithLogger(l),
	)
	results := svc.Predict(cpi, nrs)
	bench := svc.SummaryBenchmarks()

	if outDir != "" {
		path, err := export.NewXLSXWriter(outDir).WriteLTV("cli", results, bench, svc.FitParams())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "wrote", path)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models.LTVPredictResponse{Rows: results, Fit: svc.FitParams(), Benchmarks: bench})
	}

	if fit := svc.FitParams(); fit != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "retention fit: rr = %.6f * (day-1)^%.6f\n\n", fit.A, fit.B)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "retention fit unavailable, observed retention used")
		fmt.Fprintln(cmd.OutOrStdout())
	}
	w := newTable(cmd)
	fmt.Fprintln(w, "day\tactual_rr\tactual_arpu\tpred_rr\tpred_arpu\tpred_ltv\trequired_ltv\t")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%.4f\t%.4f\t%s\t\n",
			r.NumDay, fmtOpt(r.ActualRR), fmtOpt(r.ActualARPU), r.PredictedRR, r.PredictedARPU, r.PredictedLTV, fmtOpt(r.RequiredLTV))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(bench) > 0 {
		fmt.Fprintln(cmd.OutOrStdout())
		w = newTable(cmd)
		fmt.Fprintln(w, "milestone\tday\tpred_ltv\trequired_ltv\t")
		for _, b := range bench {
			fmt.Fprintf(w, "D%d\t%d\t%.4f\t%s\t\n", b.Milestone, b.NumDay, b.PredictedLTV, fmtOpt(b.RequiredLTV))
		}
		return w.Flush()
	}
	return nil
}
