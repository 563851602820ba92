package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/engram/internal/item"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	Category string
	Priority string
	Channel  string
}

// changeJSON is the JSON projection of a change log entry shared by the
// save, delete, and log commands.
type changeJSON struct {
	Seq       int64           `json:"seq"`
	Key       string          `json:"key"`
	Type      item.ChangeType `json:"type"`
	Category  string          `json:"category,omitempty"`
	Priority  item.Priority   `json:"priority"`
	Channel   string          `json:"channel"`
	Timestamp time.Time       `json:"timestamp"`
}

func toChangeJSON(c item.Change) changeJSON {
	return changeJSON{
		Seq:       c.Seq,
		Key:       c.Key,
		Type:      c.Type,
		Category:  c.Category,
		Priority:  c.Priority,
		Channel:   c.Channel,
		Timestamp: c.CreatedAt,
	}
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <key> <value>",
		Short: "Save a context item (create or update)",
		Long: `Save a context item for the acting session.

Saving a new key appends a CREATE change to the log; saving an existing
key updates the item in place and appends an UPDATE change.

Example:
  engram save build_status failing --category task --priority high
  engram save user_theme dark --channel ui`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "item category (free-form)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "item priority (high|normal|low)")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "item channel (defaults to \"default\")")

	return cmd
}

func runSave(opts *SaveOptions, key, value string, cmd *cobra.Command) error {
	pri, err := item.ParsePriority(opts.Priority)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --priority", err)
	}

	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	change, err := st.SaveItem(ctx, item.Item{
		SessionID: opts.Session,
		Key:       key,
		Value:     value,
		Category:  opts.Category,
		Priority:  pri,
		Channel:   opts.Channel,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save item", err)
	}

	formatter := opts.formatter(cmd)
	if formatter.Format == "json" {
		return formatter.Success(toChangeJSON(change))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (seq %d)\n", change.Type, change.Key, change.Seq)
	return nil
}
