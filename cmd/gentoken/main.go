// gentoken runs the interactive OAuth grant flow and writes the resulting
// delegated-user token where the webhook service can pick it up. Run it from a
// workstation with a browser; the service itself never prompts.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plansink/plansink/internal/googleauth"
)

var rootCmd = &cobra.Command{
	Use:   "gentoken",
	Short: "Generate a delegated-user token for drive access",
	Long: `gentoken opens a browser consent flow against the OAuth client in the
given client secrets file and saves the granted token as JSON.

The saved token carries a refresh token, so the webhook service can renew
access on its own afterwards. Store the file contents in the GOOGLE_CREDENTIALS
secret or point auth.credentials_file at the client secrets path.`,
	RunE: runGenToken,
}

func init() {
	rootCmd.Flags().String("client-secrets", "client_secrets.json",
		"path to the OAuth client secrets JSON")
	rootCmd.Flags().String("output", "",
		"token output path (default: <client-secrets base>_token.json)")
	rootCmd.Flags().StringSlice("scope", nil,
		"OAuth scopes to request (default: drive and spreadsheets)")
}

func runGenToken(cmd *cobra.Command, args []string) error {
	secretsPath, _ := cmd.Flags().GetString("client-secrets")
	outputPath, _ := cmd.Flags().GetString("output")
	scopes, _ := cmd.Flags().GetStringSlice("scope")

	doc, err := os.ReadFile(secretsPath)
	if err != nil {
		return fmt.Errorf("failed to read client secrets: %w", err)
	}
	if len(scopes) == 0 {
		scopes = googleauth.DefaultScopes
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(secretsPath, ".json") + "_token.json"
	}

	fmt.Println("Opening browser consent flow; approve access for the service account user.")
	tok, err := googleauth.RunGrantFlow(cmd.Context(), doc, scopes)
	if err != nil {
		return fmt.Errorf("grant flow failed: %w", err)
	}

	data, err := tok.JSON()
	if err != nil {
		return fmt.Errorf("failed to serialize token: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}

	fmt.Printf("Token saved to %s\n", outputPath)
	fmt.Println("Next steps:")
	fmt.Println("  - set auth.token_json (or the GOOGLE_CREDENTIALS env var) to the file contents, or")
	fmt.Printf("  - keep %s next to the client secrets so the service finds the cache.\n", outputPath)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
