package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/blockkeeper/internal/core/auth"
	"github.com/solatis/blockkeeper/internal/core/config"
	"github.com/solatis/blockkeeper/internal/types"
)

var apiKeyCmd = &cobra.Command{
	Use:   "api-key",
	Short: "Manage workspace API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for a workspace and print it once",
	RunE:  runAPIKeyCreate,
}

var apiKeyRevokeCmd = &cobra.Command{
	Use:   "revoke <api-key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	rootCmd.AddCommand(apiKeyCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd, apiKeyRevokeCmd)
	apiKeyCreateCmd.Flags().String("workspace", "", "workspace ID the key grants access to")
	apiKeyCreateCmd.Flags().String("name", "", "human readable key name")
	_ = apiKeyCreateCmd.MarkFlagRequired("workspace")
}

func newAuthenticator(cmd *cobra.Command) (*auth.Authenticator, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	database, queries, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewAuthenticator(secrets, queries), func() { database.Close() }, nil
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	authenticator, closeDB, err := newAuthenticator(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	workspace, _ := cmd.Flags().GetString("workspace")
	name, _ := cmd.Flags().GetString("name")

	issued, err := authenticator.IssueKey(cmd.Context(), types.WorkspaceID(workspace), name)
	if err != nil {
		return err
	}

	logger.Info("api key created", "api_key_id", issued.ID, "workspace_id", issued.WorkspaceID)
	fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nkey: %s\n", issued.ID, issued.Key)
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	authenticator, closeDB, err := newAuthenticator(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := authenticator.RevokeKey(cmd.Context(), args[0]); err != nil {
		return err
	}
	logger.Info("api key revoked", "api_key_id", args[0])
	return nil
}
