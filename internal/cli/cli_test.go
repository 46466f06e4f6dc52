package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/procmeta/pkg/cache"
	"github.com/matzehuels/procmeta/pkg/config"
	pkgio "github.com/matzehuels/procmeta/pkg/io"
)

// fixture copies the shared order model into a temp dir so relative paths
// stay free of ".." segments.
func fixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "pkg", "bpmn", "testdata", "order.bpmn"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "order.bpmn")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// testCLI returns a CLI with an isolated config and captured stdout.
func testCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	return New(&bytes.Buffer{}, log.InfoLevel), swapStdout(t)
}

// swapStdout redirects the status printers into a buffer for the test.
func swapStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })
	return &out
}

func run(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c, _ := testCLI(t)
	root := c.RootCommand()
	for _, name := range []string{"parse", "inspect", "render", "serve", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "dot", []string{"dot"}},
		{"multiple formats", "dot,svg,json", []string{"dot", "svg", "json"}},
		{"spaces trimmed", "dot, svg", []string{"dot", "svg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewCacheBackends(t *testing.T) {
	c, _ := testCLI(t)
	ctx := context.Background()

	c.Config.Cache.Dir = t.TempDir()
	cc, err := c.newCache(ctx, false)
	if err != nil {
		t.Fatalf("newCache(file): %v", err)
	}
	if _, ok := cc.(*cache.FileCache); !ok {
		t.Errorf("file backend = %T", cc)
	}

	c.Config.Cache.Backend = config.BackendNone
	if cc, _ := c.newCache(ctx, false); !isNull(cc) {
		t.Errorf("none backend = %T", cc)
	}

	c.Config.Cache.Backend = config.BackendFile
	if cc, _ := c.newCache(ctx, true); !isNull(cc) {
		t.Errorf("--no-cache = %T", cc)
	}
}

func TestNewKeyer(t *testing.T) {
	c, _ := testCLI(t)
	c.Config.Redis.KeyPrefix = "staging:"

	key := c.newKeyer().MetadataKey("abc", cache.MetadataKeyOpts{})
	if strings.HasPrefix(key, "staging:") {
		t.Errorf("file backend key %q should not be scoped", key)
	}

	c.Config.Cache.Backend = config.BackendRedis
	key = c.newKeyer().MetadataKey("abc", cache.MetadataKeyOpts{})
	if !strings.HasPrefix(key, "staging:") {
		t.Errorf("redis key %q lacks prefix", key)
	}
}

func isNull(c cache.Cache) bool {
	_, ok := c.(*cache.NullCache)
	return ok
}

func TestConfigFlag(t *testing.T) {
	c, _ := testCLI(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := "[cache]\nbackend = \"none\"\n\n[resolve]\nworkers = 3\n"
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := run(t, c, "--config", path, "cache", "path"); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if c.Config.Cache.Backend != config.BackendNone || c.Config.Resolve.Workers != 3 {
		t.Errorf("config not loaded: %+v", c.Config)
	}

	if err := run(t, c, "--config", filepath.Join(dir, "missing.toml"), "cache", "path"); err == nil {
		t.Error("missing explicit config should fail")
	}
}

func TestParseCommand(t *testing.T) {
	c, out := testCLI(t)
	input := fixture(t)
	output := filepath.Join(t.TempDir(), "order.json")

	if err := run(t, c, "parse", input, "-o", output, "--no-cache"); err != nil {
		t.Fatalf("parse: %v", err)
	}

	meta, err := pkgio.ImportJSON(output)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if meta.NodeCount() != 12 {
		t.Errorf("NodeCount = %d, want 12", meta.NodeCount())
	}
	if !strings.Contains(out.String(), "Resolved order.bpmn") {
		t.Errorf("output missing summary:\n%s", out.String())
	}
}

func TestParseCommandErrors(t *testing.T) {
	c, _ := testCLI(t)
	input := fixture(t)

	if err := run(t, c, "parse", input, "-p", "missing", "--no-cache"); err == nil {
		t.Error("unknown process should fail")
	}
	if err := run(t, c, "parse", filepath.Join(t.TempDir(), "none.bpmn")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestInspectCommand(t *testing.T) {
	c, out := testCLI(t)
	input := fixture(t)

	if err := run(t, c, "inspect", input, "--no-cache"); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"review", "Review Phase", "Sales *"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("table missing %q", want)
		}
	}

	out.Reset()
	if err := run(t, c, "inspect", input, "review", "--no-cache"); err != nil {
		t.Fatalf("inspect review: %v", err)
	}
	for _, want := range []string{"Check the order for completeness", "ext.priority", "high", "obj_order"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("node details missing %q:\n%s", want, out.String())
		}
	}

	if err := run(t, c, "inspect", input, "nope", "--no-cache"); err == nil {
		t.Error("unknown node should fail")
	}
}

func TestRenderCommand(t *testing.T) {
	c, _ := testCLI(t)
	input := fixture(t)
	base := filepath.Join(t.TempDir(), "diagram")

	if err := run(t, c, "render", input, "-f", "dot,json", "-o", base, "--no-cache"); err != nil {
		t.Fatalf("render: %v", err)
	}
	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.Contains(string(dot), "digraph G") {
		t.Error("dot output is not a graph")
	}
	if _, err := os.Stat(base + ".json"); err != nil {
		t.Errorf("json output missing: %v", err)
	}

	if err := run(t, c, "render", input, "-f", "pdf"); err == nil {
		t.Error("unsupported format should fail")
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "models/order.bpmn", "models/order"},
		{"out.svg", "order.bpmn", "out"},
		{"out.dot", "order.bpmn", "out"},
		{"out", "order.bpmn", "out"},
		{"out.png", "order.bpmn", "out.png"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}
