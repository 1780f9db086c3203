package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Heap:  filepath.Join(dir, "heap.pprof"),
		Trace: filepath.Join(dir, "trace.out"),
	}
	s, err := Start(cfg)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	for _, path := range []string{cfg.CPU, cfg.Heap, cfg.Trace} {
		st, err := os.Stat(path)
		if err != nil {
			t.Fatalf("missing %s: %v", path, err)
		}
		if st.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestStartFailsOnBadPath(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "missing", "cpu.pprof")
	if _, err := Start(Config{CPU: bad}); err == nil {
		t.Fatal("expected error for unwritable path")
	}
	// the failed start must not leave CPU profiling running
	s, err := Start(Config{CPU: filepath.Join(t.TempDir(), "cpu.pprof")})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestNilSessionStop(t *testing.T) {
	var s *Session
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
