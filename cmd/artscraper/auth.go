package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"artscraper/pkg/auth"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Kaggle API credentials",
	Long: `Manage the Kaggle API credentials used by "artscraper dataset fetch".

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

KAGGLE_USERNAME/KAGGLE_KEY and ~/.kaggle/kaggle.json are read as well but
never written.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Kaggle credentials securely",
	Example: `  # Interactive login
  artscraper auth login

  # Login with username
  artscraper auth login leonardo`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Example: `  # Logout specific account
  artscraper auth logout leonardo

  # Remove every stored account
  artscraper auth logout --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all known Kaggle accounts with masked API keys.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var logoutAll bool

func init() {
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")

	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	auth.ShowTokenGuide(out)

	var username string
	if len(args) > 0 {
		username = args[0]
	}
	if username == "" {
		fmt.Fprint(out, "Kaggle username: ")
		input, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		return errors.New("username is required")
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Fprintf(out, "Account %s already exists. Overwrite? (y/N): ", username)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "Login cancelled")
			return nil
		}
	}

	fmt.Fprint(out, "API key: ")
	key, err := readPassword(cmd.InOrStdin(), reader)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	account := &auth.Account{Username: username, Key: key}
	if err := manager.Store(account); err != nil {
		return err
	}

	console := newConsole(cmd)
	console.PrintSuccess(fmt.Sprintf("Credentials for %s stored", username))
	console.PrintInfo("Key", auth.SanitizeAccount(account).Key)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	console := newConsole(cmd)

	if logoutAll {
		if err := manager.DeleteAll(); err != nil {
			return err
		}
		console.PrintSuccess("All stored accounts removed")
		return nil
	}
	if len(args) == 0 {
		return errors.New("a username or --all is required")
	}

	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	console.PrintSuccess(fmt.Sprintf("Credentials for %s removed", args[0]))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}

	console := newConsole(cmd)
	if len(accounts) == 0 {
		console.PrintWarning("No stored accounts. Run \"artscraper auth login\" to add one.")
		return nil
	}

	console.PrintHighlight(fmt.Sprintf("Stored accounts (%d)", len(accounts)))
	for _, account := range accounts {
		safe := auth.SanitizeAccount(account)
		modified := "unknown"
		if !safe.LastModified.IsZero() {
			modified = humanize.Time(safe.LastModified)
		}
		console.Printf("  %-20s  key %s  updated %s", safe.Username, safe.Key, modified)
	}
	return nil
}

// readPassword reads a secret without echo when in is a terminal and falls
// back to a plain line read otherwise
func readPassword(in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
