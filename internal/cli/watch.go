package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/engram/internal/api"
	"github.com/roach88/engram/internal/watch"
)

// WatchCreateOptions holds flags for the watch create command.
type WatchCreateOptions struct {
	*RootOptions
	Categories []string
	Priorities []string
	Keys       []string
}

// NewWatchCommand creates the watch command group.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage change watchers",
		Long: `Manage pull-based watchers over the acting session's change log.

A watcher starts at the log's current position and each poll returns
the matching changes appended since the previous poll. Watchers are
pull-only; nothing is delivered until you poll.`,
	}

	cmd.AddCommand(newWatchCreateCommand(rootOpts))
	cmd.AddCommand(newWatchPollCommand(rootOpts))
	cmd.AddCommand(newWatchListCommand(rootOpts))
	cmd.AddCommand(newWatchStopCommand(rootOpts))

	return cmd
}

// dispatcher opens the store and builds the watch API dispatcher over
// it. Callers must call the returned close func.
func (o *RootOptions) dispatcher(cmd *cobra.Command) (*api.Dispatcher, func(), error) {
	st, err := o.openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	svc := watch.NewService(st)
	return api.NewDispatcher(svc), func() { st.Close() }, nil
}

func newWatchCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a watcher over the session's change log",
		Long: `Create a watcher. Filter dimensions combine with AND; values within
one dimension combine with OR. No filter flags means match everything.

Example:
  engram watch create --category task --priority high
  engram watch create --key 'user_*' --key '*_config'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchCreate(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Categories, "category", nil, "match this category (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Priorities, "priority", nil, "match this priority (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Keys, "key", nil, "match keys against this glob pattern (repeatable)")

	return cmd
}

func runWatchCreate(opts *WatchCreateOptions, cmd *cobra.Command) error {
	d, closeStore, err := opts.dispatcher(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	req := api.Request{Action: api.ActionCreate}
	if len(opts.Categories) > 0 || len(opts.Priorities) > 0 || len(opts.Keys) > 0 {
		req.Filters = &watch.Filter{
			Categories:  opts.Categories,
			Priorities:  opts.Priorities,
			KeyPatterns: opts.Keys,
		}
	}

	formatter := opts.formatter(cmd)
	resp, err := d.Do(cmd.Context(), opts.Session, req)
	if err != nil {
		return formatter.WatchError(err)
	}

	created := resp.(api.CreateResponse)
	if formatter.Format == "json" {
		return formatter.Success(created)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created watcher %s\n", created.WatcherID)
	return nil
}

func newWatchPollCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll <watcher-id>",
		Short: "Poll a watcher for new matching changes",
		Long: `Poll a watcher. Prints the changes appended since the last poll that
match the watcher's filter, and advances the watcher past everything it
considered. An empty result is normal.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchPoll(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runWatchPoll(opts *RootOptions, watcherID string, cmd *cobra.Command) error {
	d, closeStore, err := opts.dispatcher(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	formatter := opts.formatter(cmd)
	resp, err := d.Do(cmd.Context(), opts.Session, api.Request{
		Action:    api.ActionPoll,
		WatcherID: watcherID,
	})
	if err != nil {
		return formatter.WatchError(err)
	}

	poll := resp.(api.PollResponse)
	if formatter.Format == "json" {
		return formatter.Success(poll)
	}

	if len(poll.Changes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tKEY\tCATEGORY\tPRIORITY\tCHANNEL\tAT")
	for _, c := range poll.Changes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Type, c.Key, c.Category, c.Priority, c.Channel,
			c.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func newWatchListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List the session's watchers",
		Long:          `List the acting session's watchers in creation order, stopped ones included.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchList(rootOpts, cmd)
		},
	}

	return cmd
}

func runWatchList(opts *RootOptions, cmd *cobra.Command) error {
	d, closeStore, err := opts.dispatcher(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	formatter := opts.formatter(cmd)
	resp, err := d.Do(cmd.Context(), opts.Session, api.Request{Action: api.ActionList})
	if err != nil {
		return formatter.WatchError(err)
	}

	list := resp.(api.ListResponse)
	if formatter.Format == "json" {
		return formatter.Success(list)
	}

	if list.Total == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No watchers.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tACTIVE\tFILTERS\tCREATED")
	for _, summary := range list.Watchers {
		filters, err := summary.Filters.MarshalJSONString()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render filters", err)
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n",
			summary.WatcherID, summary.Active, filters,
			summary.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func newWatchStopCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop <watcher-id>",
		Short: "Stop a watcher",
		Long: `Stop a watcher. Stopping is terminal: the watcher stays listed but
polling it fails, and stopping it again is a no-op.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchStop(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runWatchStop(opts *RootOptions, watcherID string, cmd *cobra.Command) error {
	d, closeStore, err := opts.dispatcher(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	formatter := opts.formatter(cmd)
	resp, err := d.Do(cmd.Context(), opts.Session, api.Request{
		Action:    api.ActionStop,
		WatcherID: watcherID,
	})
	if err != nil {
		return formatter.WatchError(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(resp.(api.StopResponse))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stopped watcher %s\n", watcherID)
	return nil
}
