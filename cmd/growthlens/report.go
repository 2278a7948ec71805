package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"GrowthLens/internal/di"
	"GrowthLens/internal/domain/models"
)

var reportCmd = &cobra.Command{
	Use:   "report [name...]",
	Short: "Run configured reports once",
	Long:  `Runs the named reports from the config file, or all of them when no name is given. Results go to the configured export, Kafka and mail sinks.`,
	RunE:  runReports,
}

func runReports(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return errors.New("report needs --config")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner, cleanup, err := di.InitializeReportRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var selected []models.Report
	if len(args) == 0 {
		selected = runner.Reports()
	} else {
		byName := make(map[string]models.Report)
		for _, r := range runner.Reports() {
			byName[r.Name] = r
		}
		for _, n := range args {
			r, ok := byName[n]
			if !ok {
				return fmt.Errorf("unknown report %q", n)
			}
			selected = append(selected, r)
		}
	}
	if len(selected) == 0 {
		return errors.New("no reports configured")
	}

	bar := progressbar.NewOptions(len(selected),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("reports"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	var failed []error
	outcomes := make([]*models.ReportOutcome, 0, len(selected))
	for _, rep := range selected {
		bar.Describe(rep.Name)
		out, err := runner.Run(cmd.Context(), rep)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", rep.Name, err))
		} else {
			outcomes = append(outcomes, out)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	w := newTable(cmd)
	fmt.Fprintln(w, "report\tkind\tin\tout\tfiles\tpublished\tmailed\tduration\t")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%t\t%t\t%s\t\n",
			o.Report, o.Kind, o.InputRows, o.OutputRows, len(o.Files), o.Published, o.Mailed, o.Duration.Round(time.Millisecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return errors.Join(failed...)
}
