package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/engram/internal/item"
)

// itemJSON is the JSON projection of a context item.
type itemJSON struct {
	Key       string        `json:"key"`
	Value     string        `json:"value"`
	Category  string        `json:"category,omitempty"`
	Priority  item.Priority `json:"priority"`
	Channel   string        `json:"channel"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func toItemJSON(it item.Item) itemJSON {
	return itemJSON{
		Key:       it.Key,
		Value:     it.Value,
		Category:  it.Category,
		Priority:  it.Priority,
		Channel:   it.Channel,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a context item",
		Long: `Print the context item stored under a key for the acting session.

Exits 1 when the key does not exist.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runGet(opts *RootOptions, key string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	it, found, err := st.GetItem(ctx, opts.Session, key)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read item", err)
	}

	formatter := opts.formatter(cmd)
	if !found {
		_ = formatter.Error("ITEM_NOT_FOUND", fmt.Sprintf("no item for key %q", key))
		return NewExitError(ExitFailure, fmt.Sprintf("no item for key %q", key))
	}

	if formatter.Format == "json" {
		return formatter.Success(toItemJSON(it))
	}

	fmt.Fprintln(cmd.OutOrStdout(), it.Value)
	formatter.VerboseLog("category=%s priority=%s channel=%s updated=%s",
		it.Category, it.Priority, it.Channel, it.UpdatedAt.Format(time.RFC3339))
	return nil
}
