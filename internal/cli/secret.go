package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/law-makers/adscout/internal/auth"
	"github.com/law-makers/adscout/internal/ui"
	"github.com/spf13/cobra"
)

var secretReveal bool

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the shared ingestion secret",
	Long: `Stores the x-scraper-secret value in the OS keyring (or ~/.adscout/secrets
where no keyring is available). SCRAPER_API_SECRET still takes precedence.`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set [value]",
	Short: "Store the secret (reads stdin when no value is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := ""
		if len(args) == 1 {
			value = args[0]
		} else {
			fmt.Fprint(os.Stderr, "Secret: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read secret: %w", err)
			}
			value = line
		}
		value = strings.TrimSpace(value)

		if err := auth.SaveSecret(value); err != nil {
			return err
		}
		fmt.Println(ui.Success("Secret saved"))
		return nil
	},
}

var secretShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored secret (masked unless --reveal)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := auth.LoadSecret()
		if errors.Is(err, auth.ErrSecretNotFound) {
			fmt.Println(ui.Info("No secret stored"))
			return nil
		}
		if err != nil {
			return err
		}
		if !secretReveal {
			value = mask(value)
		}
		fmt.Println(value)
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.DeleteSecret(); err != nil {
			return err
		}
		fmt.Println(ui.Success("Secret deleted"))
		return nil
	},
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretShowCmd, secretDeleteCmd)

	secretShowCmd.Flags().BoolVar(&secretReveal, "reveal", false, "Print the secret in clear text")
}
