package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/io"
	"github.com/matzehuels/procmeta/pkg/observability"
	"github.com/matzehuels/procmeta/pkg/render/nodelink"
)

// Render generates output artifacts in the requested formats.
// The DOT source is built once and shared by the dot and svg formats.
func Render(ctx context.Context, meta *bpmn.DocumentMetadata, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	var dot string
	for _, format := range opts.Formats {
		if _, done := artifacts[format]; done {
			continue
		}
		if dot == "" && (format == FormatDOT || format == FormatSVG) {
			dot = nodelink.ToDOT(meta, nodeLinkOptions(opts))
		}

		data, err := renderFormat(ctx, meta, dot, format)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderFormat(ctx context.Context, meta *bpmn.DocumentMetadata, dot, format string) (data []byte, err error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, format)
	start := time.Now()
	defer func() { hooks.OnRenderComplete(ctx, format, time.Since(start), err) }()

	switch format {
	case FormatJSON:
		data, err = io.Marshal(meta)
	case FormatDOT:
		data = []byte(dot)
	case FormatSVG:
		data, err = nodelink.RenderSVG(ctx, dot)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return data, nil
}

func nodeLinkOptions(opts Options) nodelink.Options {
	return nodelink.Options{
		Lanes:  opts.Lanes,
		Groups: opts.Groups,
		Data:   opts.Data,
	}
}
