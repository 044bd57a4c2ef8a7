package cmd

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/models"
	"github.com/kris-hansen/pfmea/utils/table"
	"github.com/spf13/cobra"
)

const greenCheckmark = "\u2705"

type configureOptions struct {
	list          bool
	provider      string
	apiKey        string
	baseURL       string
	models        []string
	remove        string
	defaultModel  string
	examplesFile  string
	outputFile    string
	historyFile   string
	separator     string
	minRows       int
	promptForKeys bool
}

var cfgOpts configureOptions

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure providers and generation defaults",
	Long: `Store provider credentials and generation defaults in the config file.

API keys can also come from <PROVIDER>_API_KEY environment variables or a
.env file; those are never written to the config file.`,
	Example: `  # Store an OpenAI key (prompted without echo)
  pfmea configure --provider openai

  # Point at a local vLLM server and make its model the default
  pfmea configure --provider vllm --base-url http://gpu-box:8000/v1 --models llama-3-70b --default-model llama-3-70b

  # Show what is configured
  pfmea configure --list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgOpts.list {
			listConfiguration(cmd.OutOrStdout(), config.GetEnvPath(), envConfig)
			return nil
		}

		configPath, cfg, err := loadSavedConfig()
		if err != nil {
			return err
		}

		opts := cfgOpts
		opts.promptForKeys = cmd.Flags().Changed("provider") && !cmd.Flags().Changed("api-key")
		if err := applyConfigure(cfg, opts, config.PromptPassword); err != nil {
			return err
		}

		if err := config.SaveEnvConfig(configPath, cfg); err != nil {
			return fmt.Errorf("error saving configuration: %w", err)
		}
		log.Printf("%s Configuration saved to %s\n", greenCheckmark, configPath)
		return nil
	},
}

// applyConfigure edits cfg according to opts. prompt is used to read an
// API key when one is needed and was not passed as a flag.
func applyConfigure(cfg *config.EnvConfig, opts configureOptions, prompt func(string) (string, error)) error {
	if opts.remove != "" {
		if _, ok := cfg.Providers[opts.remove]; !ok {
			return fmt.Errorf("provider %s is not configured", opts.remove)
		}
		delete(cfg.Providers, opts.remove)
		log.Printf("Removed provider %s\n", opts.remove)
	}

	if opts.provider != "" {
		preset, err := models.NewCompatProvider(opts.provider)
		if err != nil {
			return fmt.Errorf("%w (known providers: %s)", err, strings.Join(models.ProviderNames(), ", "))
		}

		p := config.Provider{}
		if existing, err := cfg.GetProviderConfig(opts.provider); err == nil {
			p = *existing
		}

		apiKey := opts.apiKey
		if apiKey == "" && opts.promptForKeys && preset.RequiresAPIKey() {
			apiKey, err = prompt(fmt.Sprintf("Enter API key for %s: ", opts.provider))
			if err != nil {
				return err
			}
		}
		if apiKey != "" {
			p.APIKey = apiKey
		}
		if opts.baseURL != "" {
			p.BaseURL = strings.TrimSuffix(opts.baseURL, "/")
		}
		for _, m := range opts.models {
			if m = strings.TrimSpace(m); m != "" && !containsString(p.Models, m) {
				p.Models = append(p.Models, m)
			}
		}
		cfg.AddProvider(opts.provider, p)
		log.Printf("Configured provider %s\n", opts.provider)
	}

	if opts.defaultModel != "" {
		if cfg.ProviderForModel(opts.defaultModel) == "" && models.DetectProvider(opts.defaultModel) == nil {
			return fmt.Errorf("no provider serves model %s; add it with --provider <name> --models %s", opts.defaultModel, opts.defaultModel)
		}
		cfg.DefaultModel = opts.defaultModel
	}
	if opts.separator != "" {
		if _, err := table.ParseSeparatorRule(opts.separator); err != nil {
			return err
		}
		cfg.Separator = strings.ToLower(opts.separator)
	}
	if opts.minRows > 0 {
		cfg.MinRows = opts.minRows
	}
	if opts.examplesFile != "" {
		cfg.ExamplesFile = opts.examplesFile
	}
	if opts.outputFile != "" {
		cfg.OutputFile = opts.outputFile
	}
	if opts.historyFile != "" {
		cfg.HistoryFile = opts.historyFile
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// listConfiguration prints the effective configuration with keys masked
func listConfiguration(out io.Writer, configPath string, cfg *config.EnvConfig) {
	fmt.Fprintf(out, "Configuration from %s:\n\n", configPath)
	fmt.Fprintf(out, "Default Model: %s\n", cfg.DefaultModel)
	fmt.Fprintf(out, "Temperature: %.2f\n", cfg.GetTemperature())
	fmt.Fprintf(out, "Minimum Rows: %d\n", cfg.MinRows)
	fmt.Fprintf(out, "Separator Rule: %s\n", cfg.Separator)
	fmt.Fprintf(out, "Examples File: %s\n", cfg.ExamplesFile)
	fmt.Fprintf(out, "Output File: %s\n", cfg.OutputFile)
	fmt.Fprintf(out, "History File: %s\n\n", cfg.HistoryFile)

	if len(cfg.Providers) == 0 {
		fmt.Fprintln(out, "No providers configured.")
		return
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Configured Providers:")
	for _, name := range names {
		p := cfg.Providers[name]
		fmt.Fprintf(out, "\n%s:\n", name)
		fmt.Fprintf(out, "  API Key: %s\n", maskKey(p.APIKey))
		if p.BaseURL != "" {
			fmt.Fprintf(out, "  Base URL: %s\n", p.BaseURL)
		}
		for _, m := range p.Models {
			fmt.Fprintf(out, "  - %s\n", m)
		}
	}
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}

func init() {
	configureCmd.Flags().BoolVar(&cfgOpts.list, "list", false, "List the effective configuration")
	configureCmd.Flags().StringVar(&cfgOpts.provider, "provider", "", "Provider to add or update ("+strings.Join(models.ProviderNames(), ", ")+")")
	configureCmd.Flags().StringVar(&cfgOpts.apiKey, "api-key", "", "API key for --provider (prompted when omitted)")
	configureCmd.Flags().StringVar(&cfgOpts.baseURL, "base-url", "", "Override the provider's API base URL")
	configureCmd.Flags().StringSliceVar(&cfgOpts.models, "models", nil, "Models served by --provider")
	configureCmd.Flags().StringVar(&cfgOpts.remove, "remove", "", "Remove a provider by name")
	configureCmd.Flags().StringVar(&cfgOpts.defaultModel, "default-model", "", "Set the default generation model")
	configureCmd.Flags().StringVar(&cfgOpts.examplesFile, "examples", "", "Set the default example workbook")
	configureCmd.Flags().StringVar(&cfgOpts.outputFile, "output", "", "Set the default output file")
	configureCmd.Flags().StringVar(&cfgOpts.historyFile, "history", "", "Set the history database, or off to stop recording")
	configureCmd.Flags().StringVar(&cfgOpts.separator, "separator", "", "Set the separator rule (strict or loose)")
	configureCmd.Flags().IntVar(&cfgOpts.minRows, "min-rows", 0, "Set the minimum rows requested")
	rootCmd.AddCommand(configureCmd)
}
