package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a context item",
		Long: `Delete the context item stored under a key for the acting session.

A successful delete appends a DELETE change carrying the item's last
classification, so watchers filtering on category or priority still see
it. Deleting a missing key is a no-op and exits 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDelete(opts *RootOptions, key string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	change, found, err := st.DeleteItem(ctx, opts.Session, key)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to delete item", err)
	}

	formatter := opts.formatter(cmd)
	if !found {
		_ = formatter.Error("ITEM_NOT_FOUND", fmt.Sprintf("no item for key %q", key))
		return NewExitError(ExitFailure, fmt.Sprintf("no item for key %q", key))
	}

	if formatter.Format == "json" {
		return formatter.Success(toChangeJSON(change))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (seq %d)\n", change.Type, change.Key, change.Seq)
	return nil
}
