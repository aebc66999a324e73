package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"glwalk/internal/gitlab"
)

func newAuthCmd(client *gitlab.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd(client))
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a personal access token to the active profile",
		Long: `Prompt for a GitLab personal access token and store it in the active
profile. The token needs at least the read_api scope. Pass --host to store
the instance URL alongside it.`,
		Example: `  # Store a token for gitlab.com
  glwalk auth login

  # Store a token for a self-managed instance
  glwalk auth login --host https://gitlab.example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := readToken(cmd)
			if err != nil {
				return err
			}
			if token == "" {
				return gitlab.ErrUsage("no token provided")
			}

			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = defaultUserConfig()
			}
			name := cfg.CurrentProfile
			if override, _ := cmd.Root().PersistentFlags().GetString("profile"); override != "" {
				name = override
			}
			if name == "" {
				name = "default"
				cfg.CurrentProfile = name
			}
			if cfg.Profiles == nil {
				cfg.Profiles = make(map[string]Profile)
			}
			p := cfg.Profiles[name]
			p.Token = token
			rootFlags := cmd.Root().PersistentFlags()
			if rootFlags.Changed("host") {
				p.Host, _ = rootFlags.GetString("host")
			}
			cfg.Profiles[name] = p
			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    ConfigPath(),
				})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Token saved to profile %q\n", name)
			return nil
		},
	}

	return cmd
}

// readToken reads the token without echo when stdin is a terminal, and as
// a plain line otherwise so the command stays scriptable.
func readToken(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		_, _ = fmt.Fprint(os.Stderr, "Personal access token: ")
		raw, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	raw, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

func newAuthStatusCmd(client *gitlab.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resolved host, profile and token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = defaultUserConfig()
			}
			name := cfg.CurrentProfile
			if override, _ := cmd.Root().PersistentFlags().GetString("profile"); override != "" {
				name = override
			}

			token := maskSecret(client.Token)
			if token == "" {
				token = "(not set)"
			}
			fields := map[string]interface{}{
				"profile": name,
				"host":    client.BaseURL,
				"token":   token,
				"output":  getOutputFormat(cmd),
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, fields)
			}
			PrintDetail(os.Stdout, fields)
			return nil
		},
	}
}
