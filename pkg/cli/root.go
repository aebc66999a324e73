package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"glwalk/internal/config"
	"glwalk/internal/gitlab"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = PrintJSON(os.Stdout, map[string]interface{}{
				"error": err.Error(),
				"kind":  errorKind(err),
			})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errorKind classifies an error for the JSON error envelope.
func errorKind(err error) string {
	var (
		usageErr        *gitlab.UsageError
		notFoundErr     *gitlab.NotFoundError
		unauthorizedErr *gitlab.UnauthorizedError
		transportErr    *gitlab.TransportError
	)
	switch {
	case errors.As(err, &usageErr):
		return "usage"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.As(err, &unauthorizedErr):
		return "unauthorized"
	case errors.As(err, &transportErr):
		return "transport"
	default:
		return "error"
	}
}

func newRootCmd() *cobra.Command {
	var (
		host      string
		token     string
		output    string
		profile   string
		quiet     bool
		verbose   bool
		rateLimit float64
	)

	rootCmd := &cobra.Command{
		Use:           "glwalk",
		Short:         "GitLab group hierarchy walker",
		Long:          "Command-line interface for walking GitLab group hierarchies and auditing project membership.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				slog.Warn("failed to load .env file", "error", err)
			}
			envCfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			// Load config from profile if flags/env not set
			cfg, err := LoadUserConfig()
			if err != nil {
				// Config file is optional
				cfg = defaultUserConfig()
			}
			p, err := cfg.ActiveProfile(profile)
			if err != nil {
				return err
			}

			// Apply precedence: flag > env > profile > default
			if !cmd.Flags().Changed("host") {
				if envCfg.Host != "" {
					host = envCfg.Host
				} else if p.Host != "" {
					host = p.Host
				}
			}
			if !cmd.Flags().Changed("token") {
				if envCfg.Token != "" {
					token = envCfg.Token
				} else if p.Token != "" {
					token = p.Token
				}
			}
			if !cmd.Flags().Changed("output") {
				if envCfg.Output != "" {
					output = envCfg.Output
				} else if p.Output != "" {
					output = p.Output
				}
			}
			if !cmd.Flags().Changed("rate-limit") && envCfg.RateLimitRPS > 0 {
				rateLimit = envCfg.RateLimitRPS
			}

			configureLogging(quiet, verbose, envCfg)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "https://gitlab.com", "GitLab host URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Personal access token")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().Float64Var(&rateLimit, "rate-limit", 0, "Max API requests per second (0 = unlimited)")

	client := gitlab.NewClient(host, token)

	// Wire PersistentPreRun to update the client after config resolution
	originalPreRun := rootCmd.PersistentPreRunE
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if originalPreRun != nil {
			if err := originalPreRun(cmd, args); err != nil {
				return err
			}
		}
		if err := validateOutputFormat(output); err != nil {
			return err
		}
		if err := validateHostURL(host); err != nil {
			return err
		}
		// Update client with resolved values
		client.BaseURL = strings.TrimRight(host, "/")
		client.Token = token
		client.SetLogger(slog.Default())
		client.SetRateLimit(rateLimit)
		return nil
	}

	rootCmd.AddCommand(newGroupsCmd(client))
	rootCmd.AddCommand(newGroupCmd(client))
	rootCmd.AddCommand(newProjectCmd(client))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAuthCmd(client))

	// Agent discovery commands
	rootCmd.AddCommand(newCommandsCmd())

	// Shell completions
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// configureLogging installs the default slog logger on stderr. Quiet wins
// over verbose, verbose over the environment level.
func configureLogging(quiet, verbose bool, envCfg *config.Env) {
	level := envCfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
