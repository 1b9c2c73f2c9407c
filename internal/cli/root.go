package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"go-freelance-backend/internal/app"

	"github.com/spf13/cobra"
)

// App holds what the commands operate on. Migrate is nil when the store
// has no schema to create.
type App struct {
	Usecases app.Usecases
	Migrate  func(cmd *cobra.Command) error
}

// NewRootCmd creates the top-level "marketctl" command.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Operate the freelance marketplace store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(a),
		newJobsCmd(a),
		newWalletCmd(a),
		newReportCmd(a),
		newUsersCmd(a),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
