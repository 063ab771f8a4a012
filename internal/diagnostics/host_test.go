package diagnostics

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCollectHost(t *testing.T) {
	dir := t.TempDir()
	h := CollectHost(context.Background(), dir)

	if h.OS != runtime.GOOS || h.Arch != runtime.GOARCH {
		t.Errorf("platform = %s/%s", h.OS, h.Arch)
	}
	if h.DiskPath != dir {
		t.Errorf("DiskPath = %q, want %q", h.DiskPath, dir)
	}
	if h.MemTotalMB <= 0 {
		t.Error("expected MemTotalMB > 0")
	}
	if h.MemPercent < 0 || h.MemPercent > 100 {
		t.Errorf("MemPercent out of range: %f", h.MemPercent)
	}
	if h.DiskTotalGB <= 0 {
		t.Error("expected DiskTotalGB > 0")
	}
}

func TestExistingDir(t *testing.T) {
	dir := t.TempDir()

	if got := existingDir(filepath.Join(dir, "missing", "deeper", "sessions.db")); got != dir {
		t.Errorf("existingDir() = %q, want %q", got, dir)
	}
	if got := existingDir(""); got != rootPath() {
		t.Errorf("existingDir(\"\") = %q, want %q", got, rootPath())
	}
}
