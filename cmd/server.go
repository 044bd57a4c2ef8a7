package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/kris-hansen/pfmea/utils/config"
	"github.com/kris-hansen/pfmea/utils/fileutil"
	"github.com/kris-hansen/pfmea/utils/server"
	"github.com/spf13/cobra"
)

var (
	serverExamples string
	serverWatch    bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the PFMEA HTTP API",
	Long: `Start the PFMEA HTTP server or manage its configuration.

Running 'pfmea server' without a subcommand starts the server on the
configured port (default: 8080).

Endpoints:
  GET  /health                 Health check
  GET  /columns                PFMEA column schema
  POST /generate               Generate a PFMEA (JSON, or ?format=xlsx|csv|markdown)
  POST /extract                Extract a table from supplied text
  GET  /history                Recent generations (?limit=)
  GET  /history/{id}           One generation (JSON, or ?format=xlsx|csv|markdown)`,
	Example: `  # Start the server
  pfmea server

  # Require a bearer token
  pfmea server auth on

  # View current configuration
  pfmea server show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.SetFlags(log.LstdFlags)
		examplesPath := firstNonEmpty(serverExamples, envConfig.ExamplesFile)
		opts := server.Options{Examples: loadExamples(examplesPath, serverExamples != "")}
		if serverWatch && examplesPath != "" {
			opts.ExamplesPath, _ = fileutil.ExpandPath(examplesPath)
		}
		if err := server.Run(envConfig, opts); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

// loadSavedConfig reads the config file alone, without secrets from the
// environment, so that saving it never persists an exported API key.
func loadSavedConfig() (string, *config.EnvConfig, error) {
	configPath := config.GetEnvPath()
	cfg, err := config.LoadEnvConfig(configPath)
	if err != nil {
		return "", nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return configPath, cfg, nil
}

// updateServerConfig applies fn to the saved server settings and writes them back
func updateServerConfig(fn func(*config.ServerConfig) error) error {
	configPath, cfg, err := loadSavedConfig()
	if err != nil {
		return err
	}
	if err := fn(cfg.GetServerConfig()); err != nil {
		return err
	}
	if err := config.SaveEnvConfig(configPath, cfg); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}
	return nil
}

var showServerCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current server configuration",
	Run: func(cmd *cobra.Command, args []string) {
		showServerConfig(cmd.OutOrStdout(), envConfig.GetServerConfig())
	},
}

func showServerConfig(out io.Writer, s *config.ServerConfig) {
	fmt.Fprintf(out, "\nServer Configuration:\n")
	fmt.Fprintf(out, "Port: %d\n", s.Port)
	fmt.Fprintf(out, "Authentication Enabled: %v\n", s.Enabled)
	if s.BearerToken != "" {
		fmt.Fprintf(out, "Bearer Token: %s\n", s.BearerToken)
	}
	fmt.Fprintf(out, "Max Body Bytes: %d\n", s.MaxBodyBytes)

	fmt.Fprintf(out, "\nCORS Configuration:\n")
	fmt.Fprintf(out, "Enabled: %v\n", s.CORS.Enabled)
	if s.CORS.Enabled {
		fmt.Fprintf(out, "Allowed Origins: %s\n", strings.Join(s.CORS.AllowedOrigins, ", "))
		fmt.Fprintf(out, "Allowed Methods: %s\n", strings.Join(s.CORS.AllowedMethods, ", "))
		fmt.Fprintf(out, "Allowed Headers: %s\n", strings.Join(s.CORS.AllowedHeaders, ", "))
		fmt.Fprintf(out, "Max Age: %d seconds\n", s.CORS.MaxAge)
	}
	fmt.Fprintln(out)
}

var updatePortCmd = &cobra.Command{
	Use:     "port <port-number>",
	Short:   "Set the server port",
	Example: `  pfmea server port 3000`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		if err := updateServerConfig(func(s *config.ServerConfig) error {
			s.Port = port
			return nil
		}); err != nil {
			return err
		}
		log.Printf("Server port updated to %d\n", port)
		return nil
	},
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %w", err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port number %d: must be between 1 and 65535", port)
	}
	return port, nil
}

var toggleAuthCmd = &cobra.Command{
	Use:   "auth <on|off>",
	Short: "Enable or disable bearer token authentication",
	Long: `Enable or disable bearer token authentication for the HTTP server.

When enabled, every request except /health must include the header:
  Authorization: Bearer <token>

A token is generated when auth is first enabled.`,
	Example: `  pfmea server auth on
  pfmea server auth off`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enable := strings.ToLower(args[0])
		if enable != "on" && enable != "off" {
			return fmt.Errorf("please specify either 'on' or 'off'")
		}

		var enabled bool
		err := updateServerConfig(func(s *config.ServerConfig) error {
			s.Enabled = enable == "on"
			enabled = s.Enabled
			if s.Enabled && s.BearerToken == "" {
				token, err := config.GenerateBearerToken()
				if err != nil {
					return err
				}
				s.BearerToken = token
				log.Printf("Generated new bearer token: %s\n", token)
			}
			return nil
		})
		if err != nil {
			return err
		}
		log.Printf("Server authentication %s\n", map[bool]string{true: "enabled", false: "disabled"}[enabled])
		return nil
	},
}

var newTokenCmd = &cobra.Command{
	Use:   "newtoken",
	Short: "Generate a new bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		var token string
		err := updateServerConfig(func(s *config.ServerConfig) error {
			var err error
			token, err = config.GenerateBearerToken()
			s.BearerToken = token
			return err
		})
		if err != nil {
			return err
		}
		log.Printf("Generated new bearer token: %s\n", token)
		return nil
	},
}

var corsCmd = &cobra.Command{
	Use:   "cors",
	Short: "Configure CORS settings interactively",
	Long: `Configure Cross-Origin Resource Sharing (CORS) settings for the server.

CORS controls which web origins may call the API from a browser.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		if err := updateServerConfig(func(s *config.ServerConfig) error {
			return configureCORS(reader, s)
		}); err != nil {
			return err
		}
		log.Printf("CORS configuration saved\n")
		return nil
	},
}

// configureCORS prompts for each CORS setting; empty answers keep defaults
func configureCORS(reader *bufio.Reader, s *config.ServerConfig) error {
	defaults := config.DefaultServerConfig().CORS

	log.Printf("Enable CORS? (y/n): ")
	s.CORS.Enabled = strings.ToLower(readLine(reader)) == "y"
	if !s.CORS.Enabled {
		return nil
	}

	log.Printf("Enter allowed origins (comma-separated, * for all, default: *): ")
	s.CORS.AllowedOrigins = splitList(readLine(reader), defaults.AllowedOrigins)

	log.Printf("Enter allowed methods (comma-separated, default: %s): ", strings.Join(defaults.AllowedMethods, ","))
	s.CORS.AllowedMethods = splitList(readLine(reader), defaults.AllowedMethods)

	log.Printf("Enter allowed headers (comma-separated, default: %s): ", strings.Join(defaults.AllowedHeaders, ","))
	s.CORS.AllowedHeaders = splitList(readLine(reader), defaults.AllowedHeaders)

	log.Printf("Enter max age in seconds (default: %d): ", defaults.MaxAge)
	s.CORS.MaxAge = defaults.MaxAge
	if maxAgeStr := readLine(reader); maxAgeStr != "" {
		maxAge, err := strconv.Atoi(maxAgeStr)
		if err != nil {
			return fmt.Errorf("invalid max age: %w", err)
		}
		s.CORS.MaxAge = maxAge
	}
	return nil
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// splitList splits a comma-separated answer, returning def when it is empty
func splitList(s string, def []string) []string {
	if s == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}

func init() {
	serverCmd.Flags().StringVar(&serverExamples, "examples", "", "Example workbook included in every prompt")
	serverCmd.Flags().BoolVar(&serverWatch, "watch", true, "Reload the example workbook when it changes")
	serverCmd.AddCommand(showServerCmd)
	serverCmd.AddCommand(updatePortCmd)
	serverCmd.AddCommand(toggleAuthCmd)
	serverCmd.AddCommand(newTokenCmd)
	serverCmd.AddCommand(corsCmd)
	rootCmd.AddCommand(serverCmd)
}
