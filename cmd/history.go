package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"text/tabwriter"
	"time"

	"github.com/kris-hansen/pfmea/utils/display"
	"github.com/kris-hansen/pfmea/utils/history"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyOutput string
	historyFormat string
	historyRaw    bool
)

// openHistory opens the configured history store. It returns nil, nil when
// the history is turned off.
func openHistory() (*history.Store, error) {
	path, err := envConfig.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("invalid history_file: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	return history.Open(path)
}

// recordGeneration stores e in the history. Failures only warn; the table
// has already been generated.
func recordGeneration(ctx context.Context, e history.Entry) {
	store, err := openHistory()
	if err != nil {
		log.Printf("[WARN] History unavailable: %v\n", err)
		return
	}
	if store == nil {
		return
	}
	defer store.Close()

	if err := store.Record(ctx, e); err != nil {
		log.Printf("[WARN] Failed to record generation: %v\n", err)
	}
}

func withHistory(fn func(*history.Store) error) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("history is turned off (history_file: off)")
	}
	defer store.Close()
	return fn(store)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously generated PFMEA tables",
	Long: `Every successful generation is stored in a local SQLite database
(~/.pfmea/history.db by default). Set history_file to "off" in the config file
to stop recording.`,
	Example: `  # The ten most recent generations
  pfmea history --limit 10

  # Re-export one of them without calling the model again
  pfmea history show 3f2a -o welding.xlsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(s *history.Store) error {
			return listHistory(cmd.Context(), s, historyLimit, cmd.OutOrStdout())
		})
	},
}

func listHistory(ctx context.Context, s *history.Store, limit int, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := s.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No generations recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tMODEL\tROWS\tPROCESS\tEQUIPMENT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			shortID(e.ID), e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Source, e.Model,
			e.Table.Len(), e.ProcessName, e.Equipment)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show or re-export a stored generation",
	Long: `Show a stored generation by ID or unique ID prefix. With --output the
table is exported instead, in the format given by --format or the extension.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(s *history.Store) error {
			return showHistory(cmd.Context(), s, args[0], historyOutput, historyFormat, historyRaw, cmd.OutOrStdout())
		})
	},
}

func showHistory(ctx context.Context, s *history.Store, id, output, format string, raw bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if raw {
		_, err := io.WriteString(out, e.Response)
		return err
	}

	if output == "" && format == "" {
		fmt.Fprintf(out, "%s  %s on %s (%s, %s)\n", e.ID, e.ProcessName, e.Equipment, e.Model, e.CreatedAt.Local().Format(time.RFC1123))
		if e.Notes != "" {
			fmt.Fprintf(out, "Notes: %s\n", e.Notes)
		}
		fmt.Fprintln(out, display.Render(e.Table, display.TerminalWidth()))
		fmt.Fprintln(out, display.Summary(e.Table))
		return nil
	}

	if output == "" {
		output = "-"
	}
	f, err := exportFormat(format, output)
	if err != nil {
		return err
	}
	return exportTable(e.Table, f, output, out)
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(s *history.Store) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			e, err := s.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := s.Delete(ctx, e.ID); err != nil {
				return err
			}
			log.Printf("Deleted %s\n", e.ID)
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of entries to list (0 for all)")
	historyShowCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Export to a file, or - for stdout")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "", "Export format: xlsx, csv, markdown or json")
	historyShowCmd.Flags().BoolVar(&historyRaw, "raw", false, "Print the raw model response")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
