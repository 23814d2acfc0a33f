package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fincompare/fincompare/internal/catalog"
)

// AccountsOptions configures the accounts command.
type AccountsOptions struct {
	Query      string
	Groups     bool
	JSONOutput bool
	Stdout     io.Writer
}

func newAccountsCommand() *cobra.Command {
	opts := AccountsOptions{}
	cmd := &cobra.Command{
		Use:   "accounts [query]",
		Short: "Search the reference account catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Query = args[0]
			}
			opts.Stdout = cmd.OutOrStdout()
			return RunAccounts(opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Groups, "groups", false, "list catalog groups instead of entries")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	return cmd
}

// RunAccounts prints catalog entries matching the query, or the group layout.
func RunAccounts(opts AccountsOptions) error {
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	if opts.Groups {
		groups := cat.Groups()
		if opts.JSONOutput {
			return json.NewEncoder(opts.Stdout).Encode(groups)
		}
		tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "GROUP\tLABEL\tACCOUNTS")
		for _, g := range groups {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", g.Code, g.Label, len(g.Accounts))
		}
		return tw.Flush()
	}

	entries := cat.Search(opts.Query)
	if opts.JSONOutput {
		return json.NewEncoder(opts.Stdout).Encode(entries)
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT ID\tCATEGORY\tLABEL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.Category, e.Label)
	}
	return tw.Flush()
}
