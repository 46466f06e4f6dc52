package pipeline

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/observability"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

var tracer = otel.Tracer("github.com/matzehuels/procmeta/pkg/pipeline")

// Resolve parses data as a BPMN document and resolves the metadata of every
// flow node. Unset workers, vendor namespace and logger take their defaults.
func Resolve(ctx context.Context, data []byte, opts Options) (*bpmn.DocumentMetadata, error) {
	opts.SetResolveDefaults()
	ctx, span := tracer.Start(ctx, "pipeline.Resolve",
		trace.WithAttributes(attribute.String("bpmn.filename", opts.Filename)))
	defer span.End()

	meta, err := resolve(ctx, data, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.UserMessage(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("bpmn.nodes", meta.NodeCount()))
	return meta, nil
}

func resolve(ctx context.Context, data []byte, opts Options) (*bpmn.DocumentMetadata, error) {
	doc, procs, err := parse(ctx, data, opts)
	if err != nil {
		return nil, err
	}

	meta := &bpmn.DocumentMetadata{Filename: doc.Filename(), Hash: doc.Hash()}
	for _, proc := range procs {
		pm, err := resolveProcess(ctx, doc, proc, opts)
		if err != nil {
			return nil, err
		}
		meta.Processes = append(meta.Processes, pm)
	}
	return meta, nil
}

// parse loads the document and selects the processes to resolve.
func parse(ctx context.Context, data []byte, opts Options) (*xmldoc.Document, []*xmlquery.Node, error) {
	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, opts.Filename)
	start := time.Now()

	doc, err := xmldoc.ParseBytes(data, opts.Filename, xmldoc.WithVendorNamespace(opts.VendorNamespace))
	var procs []*xmlquery.Node
	if err == nil {
		procs = bpmn.Processes(doc)
		if opts.Process != "" {
			procs = slices.DeleteFunc(procs, func(p *xmlquery.Node) bool { return xmldoc.ID(p) != opts.Process })
			if len(procs) == 0 {
				err = errors.New(errors.ErrCodeNotFound, "%s: no process with id %q", opts.Filename, opts.Process)
			}
		}
	}

	hooks.OnParseComplete(ctx, opts.Filename, len(procs), time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	opts.Logger.Debug("parsed document", "file", opts.Filename, "processes", len(procs), "duration", time.Since(start))
	return doc, procs, nil
}

func resolveProcess(ctx context.Context, doc *xmldoc.Document, proc *xmlquery.Node, opts Options) (*bpmn.ProcessMetadata, error) {
	procID := xmldoc.ID(proc)
	nodes := bpmn.FlowNodes(proc)

	ctx, span := tracer.Start(ctx, "pipeline.resolveProcess", trace.WithAttributes(
		attribute.String("bpmn.process", procID),
		attribute.Int("bpmn.nodes", len(nodes)),
	))
	defer span.End()

	hooks := observability.Pipeline()
	hooks.OnResolveStart(ctx, procID, len(nodes))
	start := time.Now()

	pm, err := resolveNodes(ctx, doc, proc, nodes, opts)

	hooks.OnResolveComplete(ctx, procID, len(nodes), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.UserMessage(err))
		return nil, err
	}
	opts.Logger.Debug("resolved process", "process", procID, "nodes", len(nodes), "duration", time.Since(start))
	return pm, nil
}

// resolveNodes resolves every node concurrently, bounded by opts.Workers.
// Records keep document order, and when several nodes fail the error of the
// earliest one is returned so the outcome does not depend on scheduling.
func resolveNodes(ctx context.Context, doc *xmldoc.Document, proc *xmlquery.Node, nodes []bpmn.FlowNode, opts Options) (*bpmn.ProcessMetadata, error) {
	procID := xmldoc.ID(proc)

	reg, err := bpmn.BuildRegistry(doc, proc)
	if err != nil {
		return nil, err
	}
	fallbacks := inheritedLanes(doc, nodes)

	records := make([]*bpmn.NodeMetadata, len(nodes))
	errs := make([]error, len(nodes))

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i, fn := range nodes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			p, err := bpmn.NewNodeParser(doc, fn.Node, bpmn.ParserOptions{FallbackLane: fallbacks[i]})
			if err != nil {
				errs[i] = err
				return err
			}
			m, err := p.Metadata(reg)
			if err != nil {
				errs[i] = err
				return err
			}
			m.Process = procID
			m.Parent = xmldoc.ID(fn.Parent)
			records[i] = m
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	pm := &bpmn.ProcessMetadata{
		ID:    procID,
		Name:  xmldoc.AttrOr(proc, "name", ""),
		Nodes: records,
		DataObjects: slices.SortedFunc(maps.Values(reg), func(a, b *bpmn.DataObjectSpec) int {
			return strings.Compare(a.ID, b.ID)
		}),
	}
	for _, fn := range nodes {
		lanes := doc.LaneConflicts(fn.ID())
		if lanes == nil {
			continue
		}
		if pm.LaneConflicts == nil {
			pm.LaneConflicts = make(map[string][]string)
		}
		pm.LaneConflicts[fn.ID()] = lanes
		opts.Logger.Warn("node listed in several lanes", "node", fn.ID(), "lanes", lanes, "using", lanes[0])
	}
	return pm, nil
}

// inheritedLanes returns, per node, the lane of its enclosing sub process.
// [bpmn.FlowNodes] lists a container before its children, so one forward pass
// sees every parent's lane before it is needed.
func inheritedLanes(doc *xmldoc.Document, nodes []bpmn.FlowNode) []*string {
	own := make(map[*xmlquery.Node]*string, len(nodes))
	out := make([]*string, len(nodes))
	for i, fn := range nodes {
		if fn.Parent != nil {
			out[i] = own[fn.Parent]
		}
		lane := bpmn.ResolveLane(doc, fn.ID())
		if lane == nil {
			lane = out[i]
		}
		own[fn.Node] = lane
	}
	return out
}
