package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/errors"
)

// inspectOpts holds the command-line flags for the inspect command.
type inspectOpts struct {
	resolveFlags
	interactive bool
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect <file.bpmn> [node-id]",
		Short: "Show resolved node metadata in the terminal",
		Long: `Show resolved node metadata in the terminal.

Without a node id a table of every node is printed. With a node id, or after
picking a node with --interactive, all metadata of that node is shown.`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeBPMNFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID := ""
			if len(args) == 2 {
				nodeID = args[1]
				if err := errors.ValidateNodeID(nodeID); err != nil {
					return err
				}
			}
			return c.runInspect(cmd.Context(), args[0], nodeID, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick a node interactively")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input, nodeID string, opts *inspectOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	meta, err := runner.Resolve(ctx, c.resolveOptions(input, &opts.resolveFlags))
	if err != nil {
		return err
	}

	switch {
	case nodeID != "":
		n, ok := meta.Node(nodeID)
		if !ok {
			return errors.New(errors.ErrCodeNodeNotFound, "node %q not found in %s", nodeID, meta.Filename)
		}
		printNode(n)
	case opts.interactive:
		n, err := pickNode(ctx, meta)
		if err != nil || n == nil {
			return err
		}
		printNode(n)
	default:
		fmt.Fprintln(stdout, nodeTable(meta))
		printConflicts(meta)
	}
	return nil
}

func pickNode(ctx context.Context, meta *bpmn.DocumentMetadata) (*bpmn.NodeMetadata, error) {
	var nodes []*bpmn.NodeMetadata
	for _, p := range meta.Processes {
		nodes = append(nodes, p.Nodes...)
	}
	if len(nodes) == 0 {
		printInfo("%s has no flow nodes", meta.Filename)
		return nil, nil
	}

	final, err := tea.NewProgram(NewNodeListModel(nodes), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("node picker: %w", err)
	}
	return final.(NodeListModel).Selected, nil
}

var tableHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

// nodeTable renders one row per node in document order.
func nodeTable(meta *bpmn.DocumentMetadata) string {
	var rows [][]string
	for _, p := range meta.Processes {
		for _, n := range p.Nodes {
			lane := n.LaneName()
			if n.LaneInherited {
				lane += " *"
			}
			rows = append(rows, []string{
				n.ID,
				n.Type,
				n.Name,
				lane,
				n.GroupLabel(),
				fmt.Sprintf("%g,%g", n.Position.X, n.Position.Y),
			})
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Type", "Name", "Lane", "Group", "Position").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			if col == 0 {
				return StyleHighlight
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

// printNode prints every metadata field of n.
func printNode(n *bpmn.NodeMetadata) {
	fmt.Fprintln(stdout, StyleTitle.Render(n.ID))
	printKeyValue("type", n.Type)
	if n.Name != "" {
		printKeyValue("name", n.Name)
	}
	printKeyValue("process", n.Process)
	if n.Parent != "" {
		printKeyValue("parent", n.Parent)
	}
	lane := n.LaneName()
	if n.LaneInherited {
		lane += " (inherited)"
	}
	printKeyValue("lane", orDash(lane))
	printKeyValue("position", fmt.Sprintf("(%g, %g)", n.Position.X, n.Position.Y))
	printKeyValue("size", fmt.Sprintf("%g × %g", n.Bounds.Width, n.Bounds.Height))
	printKeyValue("group", n.GroupLabel())
	if n.Documentation != nil {
		printKeyValue("documentation", *n.Documentation)
	}
	if n.IsConnector() {
		printKeyValue("flow", n.SourceRef+" "+iconArrow+" "+n.TargetRef)
		if n.Condition != nil {
			printKeyValue("condition", *n.Condition)
		}
	}
	if len(n.Extensions) > 0 {
		keys := make([]string, 0, len(n.Extensions))
		for k := range n.Extensions {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			printKeyValue("ext."+k, n.Extensions[k])
		}
	}
	if len(n.Inputs) > 0 {
		printKeyValue("inputs", dataNames(n.Inputs))
	}
	if len(n.Outputs) > 0 {
		printKeyValue("outputs", dataNames(n.Outputs))
	}
}

func dataNames(specs []*bpmn.DataObjectSpec) string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.ID
		if s.IsCollection {
			names[i] += "[]"
		}
	}
	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
