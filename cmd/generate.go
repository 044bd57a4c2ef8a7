package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/display"
	"github.com/kris-hansen/pfmea/utils/fileutil"
	"github.com/kris-hansen/pfmea/utils/history"
	"github.com/kris-hansen/pfmea/utils/models"
	"github.com/kris-hansen/pfmea/utils/pfmea"
	"github.com/kris-hansen/pfmea/utils/progress"
	"github.com/kris-hansen/pfmea/utils/spreadsheet"
	"github.com/kris-hansen/pfmea/utils/table"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	process   string
	equipment string
	notes     string
	examples  string
	output    string
	model     string
	format    string
	separator string
	minRows   int
	noDisplay bool
}

var genOpts generateOptions

// newProvider is swapped out in tests
var newProvider = func(modelName string) (models.Provider, error) {
	return models.ResolveProvider(envConfig, modelName, verbose)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a PFMEA table for a process",
	Long: `Ask the configured model for a Process Failure Mode and Effects Analysis
of the given process and equipment, show the resulting table and export it.

Rows from an example workbook (PFMEA.xlsx by default) are included in the
prompt when the file exists. The export format follows the output file's
extension unless --format is given; use --output - to write to stdout.`,
	Example: `  # Generate and save PFMEA_Output.xlsx
  pfmea generate --process "Spot welding" --equipment "Robot welder, fixture"

  # Use another model and export CSV
  pfmea generate -p "Torque fastening" -e "DC nut runner" -m deepseek-chat -o torque.csv

  # Accept separators like "---|---" inside prose-heavy answers
  pfmea generate -p "Painting" -e "Spray booth" --separator loose`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context(), genOpts, cmd.OutOrStdout())
	},
}

func runGenerate(ctx context.Context, opts generateOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req := pfmea.Request{ProcessName: opts.process, Equipment: opts.equipment, Notes: opts.notes}.Normalize()
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w. Please enter the process name and equipment", err)
	}

	modelName := firstNonEmpty(opts.model, envConfig.DefaultModel)
	separator, err := table.ParseSeparatorRule(firstNonEmpty(opts.separator, envConfig.Separator))
	if err != nil {
		return err
	}
	minRows := opts.minRows
	if minRows <= 0 {
		minRows = envConfig.MinRows
	}

	outputPath := firstNonEmpty(opts.output, envConfig.OutputFile)
	format, err := exportFormat(opts.format, outputPath)
	if err != nil {
		return err
	}

	provider, err := newProvider(modelName)
	if err != nil {
		return err
	}

	gen := &pfmea.Generator{
		Provider:  provider,
		Model:     modelName,
		Examples:  loadExamples(firstNonEmpty(opts.examples, envConfig.ExamplesFile), opts.examples != ""),
		MinRows:   minRows,
		Separator: separator,
	}

	config.VerboseLog("Generating PFMEA using model: %s", modelName)

	spinner := progress.NewSpinner()
	spinner.Start(fmt.Sprintf("Generating PFMEA with %s", modelName))
	result, err := gen.Generate(ctx, req)
	spinner.Stop()
	if err != nil {
		var genErr *pfmea.GenerationError
		if errors.As(err, &genErr) {
			config.DebugLog("Raw model response:\n%s", genErr.Response)
		}
		return err
	}

	recordGeneration(ctx, history.Entry{
		ID:          uuid.NewString(),
		Source:      "cli",
		ProcessName: req.ProcessName,
		Equipment:   req.Equipment,
		Notes:       req.Notes,
		Model:       result.Model,
		Table:       result.Table,
		Response:    result.Response,
		Elapsed:     result.Elapsed,
	})

	if !opts.noDisplay && outputPath != "-" {
		fmt.Fprintln(out, display.Render(result.Table, display.TerminalWidth()))
		fmt.Fprintf(out, "%s from %s in %s\n", display.Summary(result.Table), result.Model, result.Elapsed.Round(time.Millisecond))
	}

	return exportTable(result.Table, format, outputPath, out)
}

// exportFormat resolves --format, falling back to the output extension
func exportFormat(flag, outputPath string) (spreadsheet.Format, error) {
	if flag != "" {
		return spreadsheet.ParseFormat(flag)
	}
	if outputPath == "-" {
		return spreadsheet.FormatMarkdown, nil
	}
	return spreadsheet.FormatFromPath(outputPath), nil
}

// exportTable writes t to path, or to out when path is "-"
func exportTable(t *table.Table, format spreadsheet.Format, path string, out io.Writer) error {
	if path == "-" {
		return spreadsheet.Write(format, t, out)
	}

	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("invalid output path %s: %w", path, err)
	}
	if err := fileutil.EnsureParentDir(expanded); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", expanded, err)
	}

	f, err := os.Create(expanded)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", expanded, err)
	}
	if err := spreadsheet.Write(format, t, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", expanded, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", expanded, err)
	}

	log.Printf("%s PFMEA saved to %s\n", "✅", expanded)
	return nil
}

// loadExamples reads the example workbook. A missing default workbook is
// silently skipped; any other failure is a warning.
func loadExamples(path string, explicit bool) *table.Table {
	if path == "" {
		return nil
	}
	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		log.Printf("[WARN] Invalid examples path %s: %v\n", path, err)
		return nil
	}
	if _, err := os.Stat(expanded); os.IsNotExist(err) && !explicit {
		config.DebugLog("No example workbook at %s", expanded)
		return nil
	}

	examples, err := spreadsheet.ReadExamples(expanded, spreadsheet.DefaultWindow)
	if err != nil {
		log.Printf("[WARN] Continuing without examples: %v\n", err)
		return nil
	}
	config.VerboseLog("Loaded %d example rows from %s", examples.Len(), expanded)
	return examples
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	generateCmd.Flags().StringVarP(&genOpts.process, "process", "p", "", "Process name (required)")
	generateCmd.Flags().StringVarP(&genOpts.equipment, "equipment", "e", "", "Equipment used by the process (required)")
	generateCmd.Flags().StringVarP(&genOpts.notes, "notes", "n", "", "Additional notes for the analysis")
	generateCmd.Flags().StringVar(&genOpts.examples, "examples", "", "Example workbook (default from config, PFMEA.xlsx)")
	generateCmd.Flags().StringVarP(&genOpts.output, "output", "o", "", "Output file, or - for stdout (default from config, PFMEA_Output.xlsx)")
	generateCmd.Flags().StringVarP(&genOpts.model, "model", "m", "", "Model to use (default from config, gpt-4)")
	generateCmd.Flags().StringVarP(&genOpts.format, "format", "f", "", "Export format: xlsx, csv, markdown or json")
	generateCmd.Flags().StringVar(&genOpts.separator, "separator", "", "Separator rule: strict or loose")
	generateCmd.Flags().IntVar(&genOpts.minRows, "min-rows", 0, "Minimum rows to ask the model for (default from config, 10)")
	generateCmd.Flags().BoolVar(&genOpts.noDisplay, "no-display", false, "Do not print the table")
	rootCmd.AddCommand(generateCmd)
}
