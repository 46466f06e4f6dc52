// Package pipeline provides the parse → resolve → render pipeline shared by
// the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Resolve: parse the BPMN document, build each process's data-object
//     registry and resolve the metadata of every flow node
//  2. Render: encode the metadata as JSON, Graphviz DOT or SVG
//
// Both stages are cached by content: the resolve key is the SHA-256 of the
// raw document plus the options that change the result, and render keys
// extend it with the render options.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Path:    "order.bpmn",
//	    Formats: []string{pipeline.FormatJSON, pipeline.FormatSVG},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run the stages individually:
//
//	meta, err := runner.Resolve(ctx, opts)
//	artifacts, err := runner.Render(ctx, meta, opts)
package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/cache"
	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

// DefaultFilename names documents submitted without a filename.
const DefaultFilename = "document.bpmn"

// MaxDocumentSize bounds the size of a BPMN document read into memory.
const MaxDocumentSize = 32 << 20

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// DefaultWorkers returns the default resolve concurrency.
func DefaultWorkers() int { return runtime.GOMAXPROCS(0) }

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Input: Source takes precedence over Path.
	Path     string `json:"path,omitempty"`
	Source   []byte `json:"-"`
	Filename string `json:"filename,omitempty"` // used in error messages

	// Resolve options
	VendorNamespace string `json:"vendor_namespace,omitempty"`
	Process         string `json:"process,omitempty"` // restrict to one process id
	Workers         int    `json:"workers,omitempty"`
	Refresh         bool   `json:"refresh,omitempty"` // bypass cache reads

	// Render options
	Formats []string `json:"formats,omitempty"`
	Lanes   bool     `json:"lanes,omitempty"`
	Groups  bool     `json:"groups,omitempty"`
	Data    bool     `json:"data,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Metadata is the resolved document.
	Metadata *bpmn.DocumentMetadata

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ProcessCount int
	NodeCount    int
	ResolveTime  time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ResolveHit bool // Whether metadata came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForResolve(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForResolve checks the input and applies resolve defaults.
func (o *Options) ValidateForResolve() error {
	if o.Source == nil && o.Path == "" {
		return errors.New(errors.ErrCodeInvalidInput, "path or source is required")
	}
	if o.Source == nil {
		if err := errors.ValidatePath(o.Path); err != nil {
			return err
		}
	}
	if o.Filename == "" {
		if o.Path != "" {
			o.Filename = filepath.Base(o.Path)
		} else {
			o.Filename = DefaultFilename
		}
	}
	if err := errors.ValidateDocumentFilename(o.Filename); err != nil {
		return err
	}
	if o.Process != "" {
		if err := errors.ValidateNodeID(o.Process); err != nil {
			return err
		}
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative")
	}
	o.SetResolveDefaults()
	return nil
}

// SetResolveDefaults sets default values for resolution.
func (o *Options) SetResolveDefaults() {
	if o.Workers == 0 {
		o.Workers = DefaultWorkers()
	}
	if o.VendorNamespace == "" {
		o.VendorNamespace = xmldoc.NSCamunda
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// load returns the raw document bytes.
func (o *Options) load() ([]byte, error) {
	if o.Source != nil {
		if len(o.Source) > MaxDocumentSize {
			return nil, errors.New(errors.ErrCodeInvalidInput, "document exceeds %d bytes", MaxDocumentSize)
		}
		return o.Source, nil
	}
	f, err := os.Open(o.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", o.Path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", o.Path)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxDocumentSize+1))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", o.Path)
	}
	if len(data) > MaxDocumentSize {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s exceeds %d bytes", o.Path, MaxDocumentSize)
	}
	return data, nil
}

// MetadataKeyOpts returns cache key options for resolution.
func (o *Options) MetadataKeyOpts() cache.MetadataKeyOpts {
	return cache.MetadataKeyOpts{
		VendorNamespace: o.VendorNamespace,
		Process:         o.Process,
	}
}

// RenderKeyOpts returns cache key options for rendering one format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Format:  format,
		Process: o.Process,
		Lanes:   o.Lanes,
		Groups:  o.Groups,
		Data:    o.Data,
	}
}
