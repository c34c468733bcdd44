package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sessionarc/sessionarc/credentials"
)

// NewAuthCommand creates the 'auth' command group.
func NewAuthCommand(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage platform API credentials",
		Long: `Manage the OAuth credentials used to talk to the cloud recording
platform. Secrets are encrypted at rest; the encryption key lives in the
system keyring when one is available.`,
	}

	cmd.AddCommand(newAuthSetupCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))
	cmd.AddCommand(newAuthClearCommand(deps))

	return cmd
}

func newAuthSetupCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Store platform API credentials",
		Long: `Interactively store the platform OAuth app credentials.

You will be prompted for the account id, client id, and client secret of a
server-to-server OAuth app. The secret is never echoed and is encrypted
before it touches disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthSetup(deps)
		},
	}
}

func runAuthSetup(deps *Deps) error {
	reader := bufio.NewReader(os.Stdin)

	accountID, err := promptLine(reader, "Account ID: ")
	if err != nil {
		return err
	}
	clientID, err := promptLine(reader, "Client ID: ")
	if err != nil {
		return err
	}

	fmt.Print("Client Secret: ")
	secretBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading client secret: %w", err)
	}
	clientSecret := strings.TrimSpace(string(secretBytes))

	if accountID == "" || clientID == "" || clientSecret == "" {
		return fmt.Errorf("account id, client id, and client secret are all required")
	}

	store, err := credentials.NewStore()
	if err != nil {
		return err
	}

	creds := &credentials.Credentials{
		AccountID:    accountID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		LastUpdated:  time.Now().UTC(),
	}

	if err := store.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Printf("\n\033[32m✓\033[0m Credentials stored for account %s\n",
		credentials.MaskCredential(accountID))
	fmt.Println("Run 'sessionarc ingest api --dry-run' to verify access.")

	return nil
}

func newAuthStatusCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored credential status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(deps)
		},
	}
}

func runAuthStatus(deps *Deps) error {
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}

	creds, err := store.GetActiveCredential()
	if errors.Is(err, credentials.ErrNoCredentials) {
		fmt.Println("\033[33m✗\033[0m No credentials stored. Run 'sessionarc auth setup'.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println("Platform credentials:")
	fmt.Printf("  Account ID:  %s\n", credentials.MaskCredential(creds.AccountID))
	fmt.Printf("  Client ID:   %s\n", credentials.MaskCredential(creds.ClientID))
	if creds.TokenValid() {
		fmt.Printf("  Token:       \033[32mvalid\033[0m (%s, %s)\n",
			credentials.MaskToken(creds.AccessToken),
			credentials.FormatExpiry(creds.ExpiresAt))
	} else if creds.AccessToken != "" {
		fmt.Printf("  Token:       \033[33mexpired\033[0m (refreshed on next use)\n")
	} else {
		fmt.Printf("  Token:       none cached (fetched on first use)\n")
	}
	if !creds.LastUpdated.IsZero() {
		fmt.Printf("  Updated:     %s\n", creds.LastUpdated.Format("2006-01-02 15:04"))
	}

	return nil
}

func newAuthClearCommand(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthClear(deps)
		},
	}
}

func runAuthClear(deps *Deps) error {
	store, err := credentials.NewStore()
	if err != nil {
		return err
	}

	if !store.Exists() {
		fmt.Println("No credentials stored.")
		return nil
	}

	if err := store.Delete(); err != nil {
		return fmt.Errorf("deleting credentials: %w", err)
	}

	fmt.Println("\033[32m✓\033[0m Credentials deleted.")
	return nil
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
