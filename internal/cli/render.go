package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/procmeta/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	resolveFlags
	output  string   // output file path (or base path for multiple formats)
	formats []string // output formats: "dot", "svg", "json"
	lanes   bool     // draw lanes as clusters
	groups  bool     // append group labels
	data    bool     // draw data objects
}

// renderCommand creates the render command for generating process diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{lanes: true}

	cmd := &cobra.Command{
		Use:   "render <file.bpmn>",
		Short: "Render a process diagram from resolved metadata",
		Long: `Render a process diagram from resolved metadata.

Examples:
  procmeta render order.bpmn                    # order.svg
  procmeta render order.bpmn -f dot,svg         # order.dot and order.svg
  procmeta render order.bpmn --data -o out.svg  # with data objects`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBPMNFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.lanes, "lanes", opts.lanes, "draw lanes as clusters")
	cmd.Flags().BoolVar(&opts.groups, "groups", false, "append group labels to nodes")
	cmd.Flags().BoolVar(&opts.data, "data", false, "draw data objects and associations")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := c.resolveOptions(input, &opts.resolveFlags)
	popts.Formats = opts.formats
	popts.Lanes = opts.lanes
	popts.Groups = opts.groups
	popts.Data = opts.data

	spinner := newSpinnerWithContext(ctx, "Rendering "+filepath.Base(input))
	spinner.Start()
	result, err := runner.Execute(ctx, popts)
	spinner.Stop()
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", result.Metadata.Filename)
	printStats(result.Stats.ProcessCount, result.Stats.NodeCount, result.CacheInfo.ResolveHit)

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := base + "." + format
		if len(opts.formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .dot, .json), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
