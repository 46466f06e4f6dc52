package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	pkgio "github.com/matzehuels/procmeta/pkg/io"
)

// parseOpts holds the command-line flags for the parse command.
type parseOpts struct {
	resolveFlags
	output string // output file path (stdout if empty)
}

// parseCommand creates the parse command.
func (c *CLI) parseCommand() *cobra.Command {
	var opts parseOpts

	cmd := &cobra.Command{
		Use:   "parse <file.bpmn>",
		Short: "Resolve node metadata and write it as JSON",
		Long: `Resolve the metadata of every flow node in a BPMN file and write it as JSON.

Examples:
  procmeta parse order.bpmn                  # JSON to stdout
  procmeta parse order.bpmn -o order.json    # JSON to a file
  procmeta parse order.bpmn -p order_process # one process only`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBPMNFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(cmd.Context(), args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

func (c *CLI) runParse(ctx context.Context, input string, opts *parseOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	meta, cached, err := runner.ResolveWithCacheInfo(ctx, c.resolveOptions(input, &opts.resolveFlags))
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %d nodes", meta.NodeCount()))

	if opts.output == "" {
		return pkgio.WriteJSON(meta, os.Stdout)
	}
	if err := writeFile(opts.output, func(w io.Writer) error { return pkgio.WriteJSON(meta, w) }); err != nil {
		return err
	}

	printSuccess("Resolved %s", meta.Filename)
	printStats(len(meta.Processes), meta.NodeCount(), cached)
	printConflicts(meta)
	printFile(opts.output)
	printNewline()
	printNextStep("Browse the nodes", "procmeta inspect "+input)
	return nil
}

// printConflicts warns about nodes listed by several lanes.
func printConflicts(meta *bpmn.DocumentMetadata) {
	for _, p := range meta.Processes {
		for _, id := range slices.Sorted(maps.Keys(p.LaneConflicts)) {
			lanes := p.LaneConflicts[id]
			printWarning("%s is listed in lanes %v; using %q", id, lanes, lanes[0])
		}
	}
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
