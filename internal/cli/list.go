package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/engram/internal/item"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the session's context items",
		Long: `List every context item owned by the acting session, ordered by key.

Example:
  engram list
  engram list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}

	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.ListItems(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list items", err)
	}

	formatter := opts.formatter(cmd)
	if formatter.Format == "json" {
		payload := make([]itemJSON, 0, len(items))
		for _, it := range items {
			payload = append(payload, toItemJSON(it))
		}
		return formatter.Success(map[string]any{
			"total": len(payload),
			"items": payload,
		})
	}

	return printItemTable(cmd, items)
}

func printItemTable(cmd *cobra.Command, items []item.Item) error {
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No items.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tCATEGORY\tPRIORITY\tCHANNEL")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			it.Key, it.Value, it.Category, it.Priority, it.Channel)
	}
	return w.Flush()
}
