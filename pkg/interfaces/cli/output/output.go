package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/tripweights/pkg/application/dto"
	"github.com/vsinha/tripweights/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	Precision int32
	Elapsed   time.Duration
	// Stdout receives console output; os.Stdout when nil
	Stdout io.Writer
}

func (c Config) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

// SummaryHeader is the exact column set of the union summary table
var SummaryHeader = []string{"week", "plant_name", "standard", "weighted_adjustment_sum"}

// DetailHeader is the column set of a per-week detail table
var DetailHeader = []string{
	"week", "plant_name", "standard", "plan_id", "technical_product_code", "resistance",
	"n_samples", "ml_adjustment", "total_volume", "weight_by_resistance", "total_volume_sum",
	"weight_volume", "case", "n_samples_new", "weight_samples_new", "weighted_adjustment",
}

// Generate creates output in the specified format
func Generate(result *dto.AnalysisResult, config Config) error {
	switch config.Format {
	case "text":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(result *dto.AnalysisResult, config Config) error {
	w := config.stdout()
	f := NewFormatter(config.Precision)

	fmt.Fprintf(w, "📊 Weighted Adjustment Summary\n")
	fmt.Fprintf(w, "==============================\n\n")
	fmt.Fprintf(w, "%s\n", result.GetSummary())
	if config.Elapsed > 0 {
		fmt.Fprintf(w, "Elapsed: %v\n", config.Elapsed)
	}
	fmt.Fprintln(w)

	if len(result.Summary) > 0 {
		fmt.Fprintf(w, "%-12s %-20s %-12s %16s\n", "Week", "Plant", "Standard", "Weighted Adj.")
		fmt.Fprintf(w, "%-12s %-20s %-12s %16s\n", "------------", "--------------------", "------------", "----------------")
		for _, s := range result.Summary {
			fmt.Fprintf(w, "%-12s %-20s %-12s %16s\n", s.Week, s.PlantName, s.Standard, f.float(s.WeightedAdjustmentSum))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "📋 Redistribution Cases:\n")
	fmt.Fprintf(w, "%-12s %8s %8s %11s %13s\n", "Week", "Rows", "Volume", "Resistance", "Pass-through")
	fmt.Fprintf(w, "%-12s %8s %8s %11s %13s\n", "------------", "--------", "--------", "-----------", "-------------")
	for _, week := range result.Weeks {
		fmt.Fprintf(w, "%-12s %8d %8d %11d %13d\n",
			week.Week, len(week.Details), week.Cases.Volume, week.Cases.Resistance, week.Cases.PassThrough)
	}
	fmt.Fprintln(w)

	if issues := result.Issues(); len(issues) > 0 {
		fmt.Fprintf(w, "⚠️  Data Quality Issues:\n")
		for _, issue := range issues {
			fmt.Fprintf(w, "  %s\n", issue)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// generateJSONOutput creates JSON output
func generateJSONOutput(result *dto.AnalysisResult, config Config) error {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.stdout(), string(jsonData))
		return nil
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(config.OutputDir, "analysis.json")
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.stdout(), "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes the summary table and one detail table per week.
// Without an output directory only the summary is written, to stdout.
func generateCSVOutput(result *dto.AnalysisResult, config Config) error {
	f := NewFormatter(config.Precision)

	if config.OutputDir == "" {
		return WriteSummaryCSV(config.stdout(), result.Summary, f)
	}

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	summaryFile := filepath.Join(config.OutputDir, "summary.csv")
	if err := writeFile(summaryFile, func(w io.Writer) error {
		return WriteSummaryCSV(w, result.Summary, f)
	}); err != nil {
		return fmt.Errorf("failed to write summary CSV: %w", err)
	}

	detailFiles := make([]string, len(result.Weeks))
	for i, week := range result.Weeks {
		detailFiles[i] = filepath.Join(config.OutputDir, DetailFilename(i, week.Week))
		if err := writeFile(detailFiles[i], func(w io.Writer) error {
			return WriteDetailCSV(w, week.Details, f)
		}); err != nil {
			return fmt.Errorf("failed to write detail CSV for week %s: %w", week.Week, err)
		}
	}

	if config.Verbose {
		out := config.stdout()
		fmt.Fprintf(out, "💾 CSV results saved to:\n")
		fmt.Fprintf(out, "  Summary: %s\n", summaryFile)
		for _, file := range detailFiles {
			fmt.Fprintf(out, "  Detail: %s\n", file)
		}
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DetailFilename names the detail table of the week at position index
func DetailFilename(index int, week entities.WeekKey) string {
	return fmt.Sprintf("detail_%03d_%s.csv", index, unsafeFilename.ReplaceAllString(string(week), "_"))
}

// WriteSummaryCSV writes the union summary table
func WriteSummaryCSV(w io.Writer, summaries []entities.WeeklySummary, f Formatter) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		if err := cw.Write([]string{
			string(s.Week),
			s.PlantName,
			s.Standard,
			f.float(s.WeightedAdjustmentSum),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDetailCSV writes one week's row-level detail. Null values are empty cells.
func WriteDetailCSV(w io.Writer, details []entities.FinalRecord, f Formatter) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DetailHeader); err != nil {
		return err
	}
	for _, d := range details {
		if err := cw.Write([]string{
			string(d.Week),
			d.PlantName,
			d.Standard,
			d.PlanID,
			string(d.TechnicalProductCode),
			d.Resistance,
			fmt.Sprintf("%d", d.NSamples),
			f.float(d.MLAdjustment),
			f.null(d.TotalVolume),
			f.null(d.WeightByResistance),
			f.float(d.TotalVolumeSum),
			f.null(d.WeightVolume),
			d.Case.String(),
			f.float(d.NSamplesNew),
			f.float(d.WeightSamplesNew),
			f.float(d.WeightedAdjustment),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFile(filename string, write func(io.Writer) error) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Formatter renders floats at a fixed number of decimal places
type Formatter struct {
	precision int32
}

// NewFormatter returns a Formatter for the given decimal places
func NewFormatter(precision int32) Formatter {
	return Formatter{precision: precision}
}

func (f Formatter) float(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(f.precision)
}

func (f Formatter) null(v entities.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return f.float(v.Float64)
}
