package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Since int64
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the session's change log",
		Long: `Print the acting session's change log in sequence order.

Use --since to start after a known sequence number, the same exclusive
cursor semantics watchers use.

Example:
  engram log
  engram log --since 42 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Since, "since", 0, "print changes with seq greater than this")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	changes, err := st.ChangesSince(ctx, opts.Session, opts.Since)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read change log", err)
	}

	formatter := opts.formatter(cmd)
	if formatter.Format == "json" {
		payload := make([]changeJSON, 0, len(changes))
		for _, c := range changes {
			payload = append(payload, toChangeJSON(c))
		}
		return formatter.Success(map[string]any{
			"total":   len(payload),
			"changes": payload,
		})
	}

	if len(changes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tTYPE\tKEY\tCATEGORY\tPRIORITY\tCHANNEL\tAT")
	for _, c := range changes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Seq, c.Type, c.Key, c.Category, c.Priority, c.Channel,
			c.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
