package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fincompare/fincompare/internal/app"
)

// ExitError carries a process exit code through cobra.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

type configLoader func() (*app.Config, error)

// NewRootCommand assembles the fincompare command tree.
func NewRootCommand() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "fincompare",
		Short:         "Compare financial statements across companies and fiscal years",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")

	load := func() (*app.Config, error) { return app.LoadConfig(envFile) }
	root.AddCommand(
		newServeCommand(load),
		newCompareCommand(load),
		newAccountsCommand(),
		newDirectoryCommand(load),
		newJobsCommand(load),
	)
	return root
}
