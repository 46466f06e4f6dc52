package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/procmeta/pkg/cache"
	"github.com/matzehuels/procmeta/pkg/config"
)

func TestCachePath(t *testing.T) {
	c, out := testCLI(t)
	if err := run(t, c, "cache", "path"); err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got := strings.TrimSpace(out.String()); !strings.HasSuffix(got, config.AppName) {
		t.Errorf("cache path = %q, should end with %q", got, config.AppName)
	}
}

func TestCacheClear(t *testing.T) {
	c, out := testCLI(t)

	fc, err := cache.NewFileCache(config.CacheDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"a", "b"} {
		if err := fc.Set(ctx, key, []byte("{}"), time.Hour); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if err := run(t, c, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out.String(), "Cleared 2 cached entries") {
		t.Errorf("output = %q", out.String())
	}
	if _, hit, _ := fc.Get(ctx, "a"); hit {
		t.Error("entry survived clear")
	}
}

func TestCacheClearEmpty(t *testing.T) {
	c, out := testCLI(t)
	if err := run(t, c, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out.String(), "Cache is empty") {
		t.Errorf("output = %q", out.String())
	}
}

func TestParseUsesFileCache(t *testing.T) {
	c, out := testCLI(t)
	input := fixture(t)
	output := filepath.Join(t.TempDir(), "order.json")

	for i := 0; i < 2; i++ {
		out.Reset()
		if err := run(t, c, "parse", input, "-o", output); err != nil {
			t.Fatalf("parse run %d: %v", i, err)
		}
	}
	if !strings.Contains(out.String(), "cached") {
		t.Errorf("second run should report a cache hit:\n%s", out.String())
	}
}
