package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/dojodesk/dojoctl/internal/api"
	"github.com/dojodesk/dojoctl/internal/tui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the DojoDesk backend",
	Long: `Sign in with an instructor or admin account and store the issued
credential for subsequent commands.

Interactive terminals get a login form; otherwise supply --email and
read the password from stdin:

  echo "$PASSWORD" | dojoctl login --email sensei@dojo.example`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().String("email", "", "account email (skips the interactive form)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("email")

	if email == "" && isTTY() {
		return runLoginForm(ctx)
	}
	return runLoginPlain(ctx, email)
}

// runLoginForm runs the interactive BubbleTea login form.
func runLoginForm(ctx context.Context) error {
	m := tui.NewLoginModel(ctx, app.Session.Login)
	// Render to stderr so stdout pipes are not corrupted.
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("login form error: %w", err)
	}

	result := final.(tui.LoginModel).Result()
	if result != nil {
		if errors.Is(result, context.Canceled) {
			return errors.New("login canceled")
		}
		return result
	}

	identity := app.Session.Identity()
	printer.Success("Signed in as %s (%s)", identity.FullName(), identity.Role)
	return nil
}

// runLoginPlain reads missing fields from stdin and logs in directly.
func runLoginPlain(ctx context.Context, email string) error {
	reader := bufio.NewReader(os.Stdin)

	if email == "" {
		fmt.Fprint(os.Stderr, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return errors.New("email is required")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")

	if err := app.Session.Login(ctx, email, password); err != nil {
		if errors.Is(err, api.ErrInvalidCredentials) {
			return err
		}
		return fmt.Errorf("login failed: %w", err)
	}

	identity := app.Session.Identity()
	printer.Success("Signed in as %s (%s)", identity.FullName(), identity.Role)
	return nil
}

// isTTY reports whether stderr is a character device (interactive terminal).
// We check stderr because the login form renders to stderr, allowing
// stdout to be piped.
func isTTY() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
