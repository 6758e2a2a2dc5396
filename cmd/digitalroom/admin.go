package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"digitalroom/internal/auth"
	"digitalroom/internal/tui"
)

func newAdminCmd() *cobra.Command {
	var category, email string
	cmd := &cobra.Command{
		Use:   "admin <entity>",
		Short: "Open the terminal admin screen for one archive",
		Long: "Open the terminal admin screen. Without a signed-in user the\n" +
			"archive is shown read-only. The password is read from\n" +
			"DIGITALROOM_PASSWORD or prompted for.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := schemaFor(args[0], category)
			if err != nil {
				return err
			}
			authn := auth.NewStatic(cfg.Auth)
			if email != "" {
				password := os.Getenv("DIGITALROOM_PASSWORD")
				if password == "" {
					password = prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
				}
				if _, err := authn.SignIn(cmd.Context(), email, password); err != nil {
					return err
				}
				logger.Info("signed in", zap.String("email", authn.CurrentUser().Email))
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			ed, notices, err := a.newEditor(cmd.Context(), schema, true)
			if err != nil {
				return err
			}
			defer ed.Close()

			p := tea.NewProgram(tui.New(cmd.Context(), ed, authn, notices), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("admin screen: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "prompt category id (prompts only)")
	cmd.Flags().StringVar(&email, "email", "", "sign in as this user to enable editing")
	return cmd
}

func prompt(in io.Reader, out io.Writer, label string) string {
	fmt.Fprint(out, label)
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for auth.users[].password_hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw := ""
			if len(args) == 1 {
				pw = args[0]
			} else {
				pw = prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			}
			hash, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
