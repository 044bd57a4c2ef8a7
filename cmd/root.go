package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/models"
	"github.com/spf13/cobra"
)

// version is a placeholder for the version string, which will be set at build time.
var version string

var verbose bool
var debug bool

// envConfig holds the loaded environment configuration, available to all commands
var envConfig *config.EnvConfig

// logFile is the rotating log writer, when PFMEA_LOG_FILE or log.file is set
var logFile io.WriteCloser

var rootCmd = &cobra.Command{
	Use:   "pfmea",
	Short: "Generate Process FMEA tables with an LLM",
	Long: `pfmea asks a language model for a Process Failure Mode and Effects
Analysis, pulls the markdown table out of its answer and exports it.

Getting Started:
  1. pfmea configure --provider openai     Store an API key (or set OPENAI_API_KEY)
  2. pfmea generate --process ... --equipment ...
  3. pfmea server                          Serve the same over HTTP
  4. pfmea history                         Revisit earlier generations

Configuration is stored in ~/.pfmea/config.yaml (override with PFMEA_ENV).
Secrets may also be kept in a .env file in the working directory.
Set PFMEA_LOG_FILE (or log.file) to send logs to a rotating file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFlags(0)

		config.Verbose = verbose
		config.Debug = debug

		envPath := config.GetEnvPath()
		if verbose {
			log.Printf("[DEBUG] Loading environment configuration from %s\n", envPath)
		}

		var err error
		envConfig, err = loadRuntimeConfig(envPath)
		if err != nil {
			return err
		}

		if verbose {
			log.Println("[DEBUG] Environment configuration loaded successfully")
		}

		w, err := envConfig.Log.OpenLog()
		if err != nil {
			log.Printf("[WARN] Failed to open log file: %v. Continuing with stderr logging.\n", err)
		} else if w != nil {
			logFile = w
			log.SetOutput(w)
			log.Printf("[INFO] Logging session started at %s\n", time.Now().Format(time.RFC3339))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// loadRuntimeConfig loads the config file and layers .env secrets and
// <PROVIDER>_API_KEY variables on top. The result is never saved back.
func loadRuntimeConfig(envPath string) (*config.EnvConfig, error) {
	cfg, err := config.LoadEnvConfig(envPath)
	if err != nil {
		return nil, fmt.Errorf("error loading environment configuration: %w", err)
	}

	secrets := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		secrets = append(secrets, filepath.Join(home, ".pfmea", ".env"))
	}
	if err := config.LoadSecrets(secrets...); err != nil {
		return nil, err
	}
	cfg.ResolveAPIKeys(models.ProviderNames())
	return cfg, nil
}

func closeLogFile() {
	if logFile == nil {
		return
	}
	log.Printf("[INFO] Logging session ended at %s\n", time.Now().Format(time.RFC3339))
	log.SetOutput(os.Stderr)
	if err := logFile.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to close log file: %v\n", err)
	}
	logFile = nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

// getVersion returns the version string.
// Priority: build-time ldflags > VERSION file (for development)
func getVersion() string {
	if version != "" {
		return version
	}

	// go run . has no ldflags; fall back to the VERSION file next to go.mod
	_, filename, _, ok := runtime.Caller(0)
	if ok {
		projectRoot := filepath.Dir(filepath.Dir(filename))
		content, err := os.ReadFile(filepath.Join(projectRoot, "VERSION"))
		if err == nil {
			return "v" + strings.TrimSpace(string(content)) + "-dev"
		}
	}

	return "unknown (build with: go build -ldflags \"-X 'github.com/kris-hansen/pfmea/cmd.version=vX.Y.Z'\")"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the current pfmea version.`,
	Run: func(cmd *cobra.Command, args []string) {
		log.Printf("pfmea version: %s\n", getVersion())
	},
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		closeLogFile()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
