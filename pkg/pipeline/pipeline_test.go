package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/cache"
	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/io"
)

// orderOptions loads the shared order fixture as an in-memory source.
func orderOptions(t *testing.T) Options {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "bpmn", "testdata", "order.bpmn"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return Options{Source: data, Filename: "order.bpmn"}
}

func inline(process string) []byte {
	return []byte(`<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL" id="defs">
  <bpmn:process id="p">` + process + `</bpmn:process>
</bpmn:definitions>`)
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"json", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateForResolve(t *testing.T) {
	tests := []struct {
		name         string
		opts         Options
		wantCode     errors.Code
		wantFilename string
	}{
		{"no input", Options{}, errors.ErrCodeInvalidInput, ""},
		{"path", Options{Path: "dir/order.bpmn"}, "", "order.bpmn"},
		{"source", Options{Source: []byte("<x/>")}, "", DefaultFilename},
		{"explicit filename", Options{Source: []byte("<x/>"), Filename: "a.bpmn"}, "", "a.bpmn"},
		{"traversal", Options{Path: "../../etc/passwd"}, errors.ErrCodeInvalidPath, ""},
		{"negative workers", Options{Source: []byte("<x/>"), Workers: -1}, errors.ErrCodeInvalidInput, ""},
		{"bad process id", Options{Source: []byte("<x/>"), Process: "a b"}, errors.ErrCodeInvalidInput, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			err := opts.ValidateForResolve()
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opts.Filename != tt.wantFilename {
				t.Errorf("Filename = %q, want %q", opts.Filename, tt.wantFilename)
			}
			if opts.Workers < 1 {
				t.Errorf("Workers = %d, want default", opts.Workers)
			}
			if opts.Logger == nil {
				t.Error("Logger should default to a discarding logger")
			}
		})
	}
}

func TestValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := orderOptions(t)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatJSON {
		t.Errorf("Formats = %v, want [json]", opts.Formats)
	}
}

func TestResolveOrder(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	meta, err := r.Resolve(context.Background(), orderOptions(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if meta.Filename != "order.bpmn" {
		t.Errorf("Filename = %q", meta.Filename)
	}
	if len(meta.Processes) != 1 || meta.Processes[0].ID != "order_process" {
		t.Fatalf("Processes = %+v", meta.Processes)
	}
	if got := meta.NodeCount(); got != 12 {
		t.Errorf("NodeCount = %d, want 12", got)
	}

	tests := []struct {
		id            string
		lane          string
		laneInherited bool
		parent        string
		group         string
	}{
		{"start", "Sales", false, "", bpmn.NoGroup},
		{"review", "Sales", false, "", "Review Phase"},
		{"sub", "Sales", false, "", bpmn.NoGroup},
		{"inner", "Sales", true, "sub", bpmn.NoGroup},
		{"invoice", "Billing", false, "", bpmn.NoGroup},
		{"flush", "", false, "", bpmn.NoGroup},
	}
	for _, tt := range tests {
		n, ok := meta.Node(tt.id)
		if !ok {
			t.Errorf("node %s missing", tt.id)
			continue
		}
		if n.LaneName() != tt.lane || n.LaneInherited != tt.laneInherited {
			t.Errorf("%s: lane = %q (inherited %v), want %q (inherited %v)",
				tt.id, n.LaneName(), n.LaneInherited, tt.lane, tt.laneInherited)
		}
		if n.Parent != tt.parent {
			t.Errorf("%s: parent = %q, want %q", tt.id, n.Parent, tt.parent)
		}
		if n.GroupLabel() != tt.group {
			t.Errorf("%s: group = %q, want %q", tt.id, n.GroupLabel(), tt.group)
		}
		if n.Process != "order_process" {
			t.Errorf("%s: process = %q", tt.id, n.Process)
		}
	}

	objs := meta.Processes[0].DataObjects
	if len(objs) != 2 || objs[0].ID != "obj_invoice" || objs[1].ID != "obj_order" {
		t.Errorf("DataObjects not sorted by id: %+v", objs)
	}
}

func TestResolveProcessFilter(t *testing.T) {
	r := NewRunner(nil, nil, nil)

	opts := orderOptions(t)
	opts.Process = "order_process"
	meta, err := r.Resolve(context.Background(), opts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(meta.Processes) != 1 {
		t.Errorf("Processes = %d, want 1", len(meta.Processes))
	}

	opts.Process = "missing"
	_, err = r.Resolve(context.Background(), opts)
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode errors.Code
	}{
		{
			name:     "missing file",
			opts:     Options{Path: "testdata/missing.bpmn"},
			wantCode: errors.ErrCodeFileNotFound,
		},
		{
			name:     "malformed xml",
			opts:     Options{Source: []byte("<definitions></process>")},
			wantCode: errors.ErrCodeInvalidDocument,
		},
		{
			name: "dangling data reference",
			opts: Options{Source: inline(`
    <bpmn:task id="t">
      <bpmn:dataInputAssociation><bpmn:sourceRef>nowhere</bpmn:sourceRef></bpmn:dataInputAssociation>
    </bpmn:task>`)},
			wantCode: errors.ErrCodeUnresolvedReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(nil, nil, nil)
			_, err := r.Resolve(context.Background(), tt.opts)
			if !errors.Is(err, tt.wantCode) {
				t.Fatalf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestResolveIntegrityErrorNotCached(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	src := inline(`
    <bpmn:task id="t">
      <bpmn:dataOutputAssociation><bpmn:targetRef>nowhere</bpmn:targetRef></bpmn:dataOutputAssociation>
    </bpmn:task>`)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), Options{Source: src})
		if !errors.IsIntegrity(err) {
			t.Fatalf("run %d: error = %v, want integrity error", i, err)
		}
	}
	n, err := fc.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 0 {
		t.Errorf("cache holds %d entries, want 0", n)
	}
}

func TestLaneConflictsRecorded(t *testing.T) {
	src := inline(`
    <bpmn:laneSet id="ls">
      <bpmn:lane id="l1" name="First"><bpmn:flowNodeRef>t</bpmn:flowNodeRef></bpmn:lane>
      <bpmn:lane id="l2" name="Second"><bpmn:flowNodeRef>t</bpmn:flowNodeRef></bpmn:lane>
    </bpmn:laneSet>
    <bpmn:task id="t"/>`)

	r := NewRunner(nil, nil, nil)
	meta, err := r.Resolve(context.Background(), Options{Source: src})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	n, _ := meta.Node("t")
	if n.LaneName() != "First" {
		t.Errorf("lane = %q, want First", n.LaneName())
	}
	got := meta.Processes[0].LaneConflicts["t"]
	if len(got) != 2 || got[0] != "First" || got[1] != "Second" {
		t.Errorf("LaneConflicts = %v, want [First Second]", got)
	}
}

func TestResolveAppliesDefaults(t *testing.T) {
	data := orderOptions(t).Source

	tests := []struct {
		name string
		opts Options
	}{
		{"zero options", Options{Filename: "order.bpmn"}},
		{"logger without workers", Options{Filename: "order.bpmn", Logger: NewRunner(nil, nil, nil).Logger}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			type outcome struct {
				meta *bpmn.DocumentMetadata
				err  error
			}
			done := make(chan outcome, 1)
			go func() {
				meta, err := Resolve(ctx, data, tt.opts)
				done <- outcome{meta, err}
			}()

			select {
			case got := <-done:
				if got.err != nil {
					t.Fatalf("Resolve: %v", got.err)
				}
				if n := got.meta.NodeCount(); n != 12 {
					t.Errorf("NodeCount = %d, want 12", n)
				}
			case <-ctx.Done():
				t.Fatal("Resolve did not return")
			}
		})
	}
}

func TestResolveWorkersDeterministic(t *testing.T) {
	r := NewRunner(nil, nil, nil)

	var outputs [][]byte
	for _, workers := range []int{1, 2, 16} {
		opts := orderOptions(t)
		opts.Workers = workers
		meta, err := r.Resolve(context.Background(), opts)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		data, err := io.Marshal(meta)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		outputs = append(outputs, data)
	}
	for i := 1; i < len(outputs); i++ {
		if !bytes.Equal(outputs[0], outputs[i]) {
			t.Errorf("output %d differs from sequential output", i)
		}
	}
}

func TestRunnerCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()
	ctx := context.Background()

	opts := orderOptions(t)
	opts.Formats = []string{FormatJSON, FormatDOT}

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.CacheInfo.ResolveHit || first.CacheInfo.RenderHit {
		t.Errorf("first run should miss: %+v", first.CacheInfo)
	}
	if first.Stats.NodeCount != 12 || first.Stats.ProcessCount != 1 {
		t.Errorf("Stats = %+v", first.Stats)
	}

	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !second.CacheInfo.ResolveHit {
		t.Error("second run should hit the metadata cache")
	}
	if !bytes.Equal(first.Artifacts[FormatDOT], second.Artifacts[FormatDOT]) {
		t.Error("cached DOT differs")
	}
	if !bytes.Equal(first.Artifacts[FormatJSON], second.Artifacts[FormatJSON]) {
		t.Error("cached JSON differs")
	}

	refreshed := opts
	refreshed.Refresh = true
	third, err := r.Execute(ctx, refreshed)
	if err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if third.CacheInfo.ResolveHit || third.CacheInfo.RenderHit {
		t.Errorf("refresh should bypass the cache: %+v", third.CacheInfo)
	}
}

func TestRunnerCacheHitKeepsFilename(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	src := inline(`<bpmn:task id="t" name="Only"/>`)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, Options{Source: src, Filename: "a.bpmn"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	meta, hit, err := r.ResolveWithCacheInfo(ctx, Options{Source: src, Filename: "b.bpmn"})
	if err != nil {
		t.Fatalf("ResolveWithCacheInfo: %v", err)
	}
	if !hit {
		t.Error("identical content should hit the cache")
	}
	if meta.Filename != "b.bpmn" {
		t.Errorf("Filename = %q, want b.bpmn", meta.Filename)
	}
}

func TestRunnerCacheKeyedByProcess(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(fc, nil, nil)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, orderOptions(t)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	filtered := orderOptions(t)
	filtered.Process = "order_process"
	_, hit, err := r.ResolveWithCacheInfo(ctx, filtered)
	if err != nil {
		t.Fatalf("ResolveWithCacheInfo: %v", err)
	}
	if hit {
		t.Error("a process filter must not reuse the unfiltered entry")
	}
}

func TestRender(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()
	meta, err := r.Resolve(ctx, orderOptions(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	artifacts, err := Render(ctx, meta, Options{Formats: []string{FormatDOT, FormatJSON, FormatDOT}, Lanes: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(artifacts) != 2 {
		t.Errorf("artifacts = %d, want 2", len(artifacts))
	}
	dot := string(artifacts[FormatDOT])
	for _, want := range []string{"digraph G", "cluster_p0_l0", `label="Sales"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q", want)
		}
	}
	back, err := io.Unmarshal(artifacts[FormatJSON])
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.NodeCount() != meta.NodeCount() {
		t.Errorf("JSON node count = %d, want %d", back.NodeCount(), meta.NodeCount())
	}

	if _, err := Render(ctx, meta, Options{Formats: []string{"png"}}); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("error = %v, want UNSUPPORTED", err)
	}
}
