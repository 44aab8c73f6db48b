package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coolbeans/regelrecht/pkg/datasource"
	"github.com/coolbeans/regelrecht/pkg/errs"
	"github.com/coolbeans/regelrecht/pkg/library"
	"github.com/coolbeans/regelrecht/pkg/playground"
	"github.com/coolbeans/regelrecht/pkg/service"
	"github.com/coolbeans/regelrecht/pkg/simulate"
	"github.com/coolbeans/regelrecht/pkg/trace"
	"github.com/coolbeans/regelrecht/pkg/value"
)

var version = "0.1.0"

// engine is the process-lifetime Engine every subcommand loads laws into
// and evaluates against; a single CLI invocation does one unit of work
// against it, so there is no need for the command layer itself to guard
// concurrent access.
var engine = service.NewEngine()

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	engine.SetLogger(log.Logger)

	rootCmd := &cobra.Command{
		Use:     "regelrecht",
		Short:   "RegelRecht law execution core",
		Version: version,
		Long: `RegelRecht evaluates versioned Dutch statutory law documents
deterministically: load a directory of law YAML files, then ask it to
compute any declared output for a given reference date and caller
parameters, with a full audit trace of every value consulted.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(playgroundCmd())
	rootCmd.AddCommand(addDataSourceCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Load one law file or every law file in a directory into the engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			if info.IsDir() {
				dir := library.NewDirectory(path, engine)
				dir.OnChange(func(ev library.LoadEvent) {
					if ev.Err != nil {
						log.Error().Str("path", ev.Path).Err(ev.Err).Msg("failed to load law file")
						return
					}
					log.Info().Str("path", ev.Path).Str("law_id", ev.LawID).Str("action", ev.Action).Msg("loaded law")
				})
				events := dir.LoadAll()
				failed := 0
				for _, ev := range events {
					if ev.Err != nil {
						failed++
					}
				}
				fmt.Printf("loaded %d file(s), %d error(s)\n", len(events)-failed, failed)
				if failed > 0 {
					return fmt.Errorf("%d law file(s) failed to load", failed)
				}
				return nil
			}

			law, err := library.LoadFile(path)
			if err != nil {
				return err
			}
			lawID, err := engine.LoadLaw(law)
			if err != nil {
				return err
			}
			fmt.Printf("loaded law %q (%d article(s))\n", lawID, len(law.Articles))
			return nil
		},
	}
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Load a directory of law files and keep watching it for changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := library.NewDirectory(args[0], engine)
			dir.OnChange(func(ev library.LoadEvent) {
				if ev.Err != nil {
					log.Error().Str("path", ev.Path).Err(ev.Err).Msg("failed to apply law file change")
					return
				}
				log.Info().Str("path", ev.Path).Str("law_id", ev.LawID).Str("action", ev.Action).Msg("applied law file change")
			})
			dir.LoadAll()
			if err := dir.Watch(); err != nil {
				return err
			}
			log.Info().Str("dir", args[0]).Msg("watching directory for changes, press Ctrl+C to stop")
			select {}
		},
	}
	return cmd
}

func parseParameters(raw []string) (map[string]value.Value, error) {
	params := make(map[string]value.Value, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --param %q, expected name=value", kv)
		}
		params[parts[0]] = inferValue(parts[1])
	}
	return params, nil
}

// inferValue converts a CLI string argument into a value.Value, guessing
// bool/int/float before falling back to string — the same best-effort
// typing a command-line caller (as opposed to a structured host binding)
// has available.
func inferValue(raw string) value.Value {
	if b, err := strconv.ParseBool(raw); err == nil {
		return value.Bool(b)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.Float(f)
	}
	return value.String(raw)
}

func evaluateCmd() *cobra.Command {
	var params []string
	var date string
	var showTrace bool

	cmd := &cobra.Command{
		Use:   "evaluate <law-id> <output>",
		Short: "Evaluate a declared output of a loaded law",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lawID, output := args[0], args[1]
			requestID := uuid.NewString()

			referenceDate, err := value.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", date, err)
			}
			parameters, err := parseParameters(params)
			if err != nil {
				return err
			}

			reqLog := log.With().Str("request_id", requestID).Logger()
			reqLog.Debug().Str("law_id", lawID).Str("output", output).Msg("evaluate requested")

			result, err := engine.Evaluate(lawID, output, parameters, referenceDate)
			if err != nil {
				var partialTrace *trace.Trace
				if result != nil {
					partialTrace = result.Trace
				}
				reqLog.Error().Err(err).Msg("evaluate failed")
				info := errs.DescribeWithTrace(err, partialTrace)
				data, _ := json.MarshalIndent(renderInfo(info), "", "  ")
				fmt.Fprintln(os.Stderr, string(data))
				return err
			}
			reqLog.Debug().Msg("evaluate succeeded")

			ov := result.Outputs[output]
			if ov.Unit != "" {
				fmt.Printf("%s = %s %s\n", output, value.Stringify(ov.Value), ov.Unit)
			} else {
				fmt.Printf("%s = %s\n", output, value.Stringify(ov.Value))
			}
			if showTrace {
				data, err := json.MarshalIndent(renderTrace(result.Trace.Records()), "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "caller parameter as name=value (repeatable)")
	cmd.Flags().StringVar(&date, "date", "", "reference date, YYYY-MM-DD (required)")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the full audit trace")
	cmd.MarkFlagRequired("date")
	return cmd
}

// traceEntry is the JSON-friendly shape of one trace.Record, substituting
// value.Stringify for the Value field (which carries no exported fields of
// its own to marshal) and the error's message for Err.
type traceEntry struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Value  string `json:"value,omitempty"`
	Source string `json:"source"`
	Err    string `json:"error,omitempty"`
}

func renderTrace(records []trace.Record) []traceEntry {
	entries := make([]traceEntry, len(records))
	for i, r := range records {
		entry := traceEntry{Kind: string(r.Kind), Name: r.Name, Source: r.Source}
		if r.Err != nil {
			entry.Err = r.Err.Error()
		} else {
			entry.Value = value.Stringify(r.Value)
		}
		entries[i] = entry
	}
	return entries
}

// infoView is the JSON-friendly shape of errs.Info, rendering TraceSoFar
// through the same traceEntry conversion evaluateCmd's --trace flag uses.
type infoView struct {
	Kind          string       `json:"kind"`
	Message       string       `json:"message"`
	LawID         string       `json:"law_id,omitempty"`
	ArticleNumber string       `json:"article_number,omitempty"`
	OutputName    string       `json:"output_name,omitempty"`
	TraceSoFar    []traceEntry `json:"trace_so_far,omitempty"`
}

func renderInfo(info errs.Info) infoView {
	view := infoView{
		Kind:          info.Kind,
		Message:       info.Message,
		LawID:         info.LawID,
		ArticleNumber: info.ArticleNumber,
		OutputName:    info.OutputName,
	}
	if info.TraceSoFar != nil {
		view.TraceSoFar = renderTrace(info.TraceSoFar.Records())
	}
	return view
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every law currently loaded",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, lawID := range engine.ListLaws() {
				fmt.Println(lawID)
			}
			return nil
		},
	}
}

func infoCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "info <law-id>",
		Short: "Show metadata for the version of a law valid on a given date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			referenceDate, err := value.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", date, err)
			}
			summary, err := engine.LawInfo(args[0], referenceDate)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reference date, YYYY-MM-DD (required)")
	cmd.MarkFlagRequired("date")
	return cmd
}

func simulateCmd() *cobra.Command {
	var table bool
	cmd := &cobra.Command{
		Use:   "simulate <scenarios.json>",
		Short: "Run a batch of compliance scenarios against the loaded engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var batch simulate.Batch
			if err := json.Unmarshal(raw, &batch); err != nil {
				return fmt.Errorf("parsing scenario batch: %w", err)
			}

			result := simulate.NewRunner(engine).Run(&batch)
			if table {
				fmt.Print(result.FormatTable())
			} else {
				fmt.Print(result.String())
			}
			if result.Summary.Fail > 0 || result.Summary.Error > 0 {
				return fmt.Errorf("%d scenario(s) failed, %d errored", result.Summary.Fail, result.Summary.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&table, "table", false, "render the result as a table instead of a narrative summary")
	return cmd
}

func playgroundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playground",
		Short: "Explore example law documents demonstrating each operator category",
	}
	cmd.AddCommand(playgroundListCmd())
	cmd.AddCommand(playgroundShowCmd())
	return cmd
}

func playgroundListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available example templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range playground.TemplateNames() {
				tmpl, _ := playground.Get(name)
				fmt.Printf("%-24s [%s] %s\n", tmpl.Name, tmpl.Category, tmpl.Description)
			}
			return nil
		},
	}
}

func playgroundShowCmd() *cobra.Command {
	var lawID string
	cmd := &cobra.Command{
		Use:   "show <template>",
		Short: "Render an example template's law document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, ok := playground.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown template %q", args[0])
			}
			rendered, err := playground.RenderDocument(tmpl, map[string]string{"law_id": lawID})
			if err != nil {
				return err
			}
			fmt.Println(rendered)
			return nil
		},
	}
	cmd.Flags().StringVar(&lawID, "law-id", "", "law $id to substitute into the rendered document")
	return cmd
}

func addDataSourceCmd() *cobra.Command {
	var priority int
	var keyFields []string
	cmd := &cobra.Command{
		Use:   "add-data-source <name> <records.csv>",
		Short: "Register a CSV of leaf-input records as a data source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			records, err := readCSVRecords(path)
			if err != nil {
				return err
			}
			if len(keyFields) == 0 {
				return fmt.Errorf("--key-field is required at least once")
			}
			engine.AddDataSource(name, priority, keyFields, records)
			log.Info().Str("source", name).Int("priority", priority).Int("records", len(records)).Msg("registered data source")
			return nil
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "source priority; higher is consulted first")
	cmd.Flags().StringArrayVar(&keyFields, "key-field", nil, "record field used to match lookup criteria (repeatable)")
	return cmd
}

// readCSVRecords parses a CSV file into datasource.Record values keyed by
// its header row, converting every cell through inferValue the same way
// evaluate's --param flag does.
func readCSVRecords(path string) ([]datasource.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	header := rows[0]
	records := make([]datasource.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(datasource.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = inferValue(row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
