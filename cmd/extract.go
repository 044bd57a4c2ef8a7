package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/display"
	"github.com/kris-hansen/pfmea/utils/fileutil"
	"github.com/kris-hansen/pfmea/utils/pfmea"
	"github.com/kris-hansen/pfmea/utils/table"
	"github.com/spf13/cobra"
)

type extractOptions struct {
	columns   []string
	pfmea     bool
	separator string
	output    string
	format    string
}

var extOpts extractOptions

var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Extract a markdown table from saved text",
	Long: `Run the table extractor on text that is already on disk, such as a saved
model response. Reads STDIN when the file is omitted or "-".

Without --columns or --pfmea the table's own header row is kept. With a
schema, every row is padded or truncated to the schema width.`,
	Example: `  # Re-export a saved answer as a PFMEA workbook
  pfmea extract response.md --pfmea -o PFMEA_Output.xlsx

  # Pipe text in and print CSV
  cat answer.txt | pfmea extract --columns step,failure,effect -o - -f csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := "-"
		if len(args) == 1 {
			source = args[0]
		} else if !stdinIsPiped() {
			return fmt.Errorf("no input: pass a file or pipe text on STDIN")
		}
		return runExtract(extOpts, source, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runExtract(opts extractOptions, source string, in io.Reader, out io.Writer) error {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = fileutil.SafeReadAll(in)
	} else {
		data, err = fileutil.SafeReadFile(source)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	separator, err := table.ParseSeparatorRule(firstNonEmpty(opts.separator, envConfig.Separator))
	if err != nil {
		return err
	}

	cols := opts.columns
	if len(cols) == 0 && opts.pfmea {
		cols = pfmea.Columns()
	}

	result, err := table.Extract(string(data), cols, table.Options{Separator: separator})
	if err != nil {
		return err
	}
	if n := len(result.Adjustments); n > 0 {
		config.VerboseLog("Normalized %d row(s) to %d columns", n, len(result.Table.Headers))
	}

	if opts.output == "" {
		fmt.Fprintln(out, display.Render(result.Table, display.TerminalWidth()))
		fmt.Fprintln(out, display.Summary(result.Table))
		return nil
	}

	format, err := exportFormat(opts.format, opts.output)
	if err != nil {
		return err
	}
	return exportTable(result.Table, format, opts.output, out)
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the PFMEA columns",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printColumns(cmd.OutOrStdout())
	},
}

func printColumns(out io.Writer) {
	for i, c := range pfmea.Columns() {
		fmt.Fprintf(out, "%2d. %s\n", i+1, display.HeaderTitle(c))
	}
}

func init() {
	extractCmd.Flags().StringSliceVar(&extOpts.columns, "columns", nil, "Comma-separated schema to normalize rows to")
	extractCmd.Flags().BoolVar(&extOpts.pfmea, "pfmea", false, "Normalize rows to the PFMEA columns")
	extractCmd.Flags().StringVar(&extOpts.separator, "separator", "", "Separator rule: strict or loose")
	extractCmd.Flags().StringVarP(&extOpts.output, "output", "o", "", "Export to a file, or - for stdout")
	extractCmd.Flags().StringVarP(&extOpts.format, "format", "f", "", "Export format: xlsx, csv, markdown or json")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(columnsCmd)
}

// stdinIsPiped reports whether STDIN carries data rather than a terminal
func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}
