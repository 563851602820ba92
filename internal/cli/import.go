package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/engram/internal/item"
)

// importFile is the YAML layout accepted by the import command.
type importFile struct {
	Items []importItem `yaml:"items"`
}

type importItem struct {
	Key      string `yaml:"key"`
	Value    string `yaml:"value"`
	Category string `yaml:"category"`
	Priority string `yaml:"priority"`
	Channel  string `yaml:"channel"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Save a batch of context items from a YAML file",
		Long: `Save every item listed in a YAML file into the acting session.

Each entry is saved in file order through the normal save path, so the
change log records one CREATE or UPDATE per entry and watchers observe
the batch like any other writes.

File layout:
  items:
    - key: build_status
      value: failing
      category: task
      priority: high

Example:
  engram import seed.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read import file", err)
	}

	var file importFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return WrapExitError(ExitCommandError, "failed to parse import file", err)
	}
	if len(file.Items) == 0 {
		return NewExitError(ExitCommandError, "import file lists no items")
	}

	// Validate the whole batch up front so a bad entry aborts before
	// anything is written.
	for i, entry := range file.Items {
		if entry.Key == "" {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("import file item %d has no key", i+1))
		}
		if _, err := item.ParsePriority(entry.Priority); err != nil {
			return WrapExitError(ExitCommandError,
				fmt.Sprintf("import file item %d (%s)", i+1, entry.Key), err)
		}
	}

	ctx := cmd.Context()
	st, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	formatter := opts.formatter(cmd)
	imported := make([]changeJSON, 0, len(file.Items))
	for _, entry := range file.Items {
		pri, _ := item.ParsePriority(entry.Priority)
		change, err := st.SaveItem(ctx, item.Item{
			SessionID: opts.Session,
			Key:       entry.Key,
			Value:     entry.Value,
			Category:  entry.Category,
			Priority:  pri,
			Channel:   entry.Channel,
		})
		if err != nil {
			return WrapExitError(ExitCommandError,
				fmt.Sprintf("failed to save %q", entry.Key), err)
		}
		formatter.VerboseLog("%s %s (seq %d)", change.Type, change.Key, change.Seq)
		imported = append(imported, toChangeJSON(change))
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"imported": len(imported),
			"changes":  imported,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d item(s)\n", len(imported))
	return nil
}
