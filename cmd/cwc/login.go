package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/crewclock/crewclock/internal/config"
)

func newLoginCmd() *cobra.Command {
	var tokenStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the backend API token on this device",
		Long: `Prompts for the backend API token and stores it in the per-user
credentials file, readable only by the current user. With --stdin the token
is read from standard input instead, for provisioning scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, tokenStdin)
		},
	}

	cmd.Flags().BoolVar(&tokenStdin, "stdin", false, "read the token from stdin instead of prompting")
	return cmd
}

func runLogin(cmd *cobra.Command, tokenStdin bool) error {
	out := cmd.OutOrStdout()

	token, err := readToken(cmd, tokenStdin)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("empty token")
	}

	path := config.CredentialsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	fmt.Fprintf(out, "Token stored in %s\n", path)
	return nil
}

func readToken(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		var token string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &token); err != nil {
			return "", fmt.Errorf("read token from stdin: %w", err)
		}
		return strings.TrimSpace(token), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; use --stdin")
	}

	fmt.Fprint(cmd.OutOrStdout(), "API token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
