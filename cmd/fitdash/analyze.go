package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/fitdash/internal/dashboard"
	"github.com/TobiSchelling/fitdash/internal/dataset"
	"github.com/TobiSchelling/fitdash/internal/insight"
	"github.com/TobiSchelling/fitdash/internal/report"
)

var (
	viewMonth   string
	viewMetrics []string
	viewFile    string
)

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&viewMonth, "month", "m", "", "Month to analyse as YYYY-MM (default: latest)")
	cmd.Flags().StringSliceVar(&viewMetrics, "metrics", nil, "Metrics to chart, comma separated (default: all)")
	cmd.Flags().StringVarP(&viewFile, "file", "f", "", "Analyse this CSV/XLSX instead of the default dataset")
}

// buildView loads the dataset named by the flags and computes its view.
func buildView(cmd *cobra.Command) (*dashboard.View, error) {
	var t *dataset.Table
	var err error
	if viewFile != "" {
		t, err = defaultTable(nil, viewFile)
	} else {
		db, derr := openDB()
		if derr != nil {
			return nil, derr
		}
		defer db.Close()
		t, err = defaultTable(db, "")
	}
	if err != nil {
		printErr(err)
		return nil, err
	}

	f := dashboard.Filter{Month: viewMonth}
	if cmd.Flags().Changed("metrics") {
		f.Metrics, err = dataset.ParseMetrics(viewMetrics)
		if err != nil {
			return nil, err
		}
		if f.Metrics == nil {
			f.Metrics = []dataset.Metric{}
		}
	}
	if viewMonth != "" && viewMonth != "latest" && !t.HasMonth(viewMonth) {
		logger.Warn("month not in dataset, using latest", "month", viewMonth, "latest", t.LatestMonth())
	}
	return dashboard.Build(t, f, cfg.Insights), nil
}

// --- insights command ---

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Print the insights for a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := buildView(cmd)
		if err != nil {
			return err
		}

		if v.Month == "" {
			fmt.Println(color.CyanString("%s", v.DatasetName))
		} else {
			fmt.Println(color.CyanString("%s · %s", v.DatasetName, v.MonthLabel))
		}
		fmt.Printf("  Steps %s · Sleep %s · Calories %s · Days %d\n\n",
			report.Count(v.KPIs.TotalSteps), report.Hours(v.KPIs.AvgSleepHours),
			report.Count(v.KPIs.TotalCalories), v.KPIs.Days)

		for _, in := range v.Insights {
			text := strings.ReplaceAll(in.Text, "**", "")
			switch in.Kind {
			case insight.KindTrend:
				fmt.Println(color.GreenString("  ↗ %s", text))
			case insight.KindAnomaly:
				fmt.Println(color.YellowString("  ! %s", text))
			default:
				fmt.Printf("  · %s\n", text)
			}
		}
		return nil
	},
}

// --- report command ---

var (
	reportOut     string
	reportNarrate bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a markdown report for a month",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := buildView(cmd)
		if err != nil {
			return err
		}

		opts := report.Options{PreviewRows: cfg.Output.PreviewRows, TopPairs: cfg.Output.TopPairs}
		if reportNarrate {
			n := newNarrator().Narrate(context.Background(), v)
			opts.Narrative = &n
		}
		text := report.Markdown(v, opts)

		if reportOut == "" || reportOut == "-" {
			fmt.Print(text)
			return nil
		}
		if err := os.WriteFile(reportOut, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", reportOut)
		return nil
	},
}

// --- export command ---

var exportXLSX string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dashboard tables to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := buildView(cmd)
		if err != nil {
			return err
		}

		f, err := os.Create(exportXLSX)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportXLSX, err)
		}
		if err := report.WriteXLSX(v, f); err != nil {
			f.Close()
			return fmt.Errorf("writing workbook: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Workbook written to %s\n", exportXLSX)
		return nil
	},
}

func init() {
	addViewFlags(insightsCmd)
	addViewFlags(reportCmd)
	addViewFlags(exportCmd)

	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Output file (default: stdout)")
	reportCmd.Flags().BoolVar(&reportNarrate, "narrate", false, "Add an LLM-written coach summary")

	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "fitdash.xlsx", "Workbook to write")
}
