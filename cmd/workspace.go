package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/easyrelocate/internal/auth"
)

var (
	workspaceTTL       time.Duration
	workspacePrintHash bool
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workspaces",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a workspace and print its token",
	Long:  "Creates a workspace and prints its bearer token. The token is shown once and cannot be recovered later.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		return createWorkspace(ctx, auth.NewService(st, cfg.Workspace.TokenTTL), workspaceTTL, workspacePrintHash, cmd.OutOrStdout())
	},
}

// createWorkspace issues a workspace with the given lifetime and writes its
// credentials to w as key=value lines.
func createWorkspace(ctx context.Context, svc *auth.Service, ttl time.Duration, printHash bool, w io.Writer) error {
	issued, err := svc.IssueWithTTL(ctx, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "workspace_id=%s\n", issued.WorkspaceID)
	fmt.Fprintf(w, "workspace_token=%s\n", issued.Token)
	if issued.ExpiresAt != nil {
		fmt.Fprintf(w, "expires_at=%s\n", issued.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if printHash {
		fmt.Fprintf(w, "token_hash=%s\n", auth.HashToken(issued.Token))
	}
	return nil
}

func init() {
	workspaceCreateCmd.Flags().DurationVar(&workspaceTTL, "ttl", 0, "token lifetime, 0 for no expiry")
	workspaceCreateCmd.Flags().BoolVar(&workspacePrintHash, "print-hash", false, "also print the stored token hash")
	workspaceCmd.AddCommand(workspaceCreateCmd)
	rootCmd.AddCommand(workspaceCmd)
}
