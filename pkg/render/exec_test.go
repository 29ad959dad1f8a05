package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/matzehuels/archviz/pkg/diagram"
)

// fakeDot writes a shell script standing in for the dot binary.
func fakeDot(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	path := filepath.Join(t.TempDir(), "dot")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecEngineRender(t *testing.T) {
	e := &ExecEngine{Path: fakeDot(t, `echo "format=$1"; cat`)}

	out, err := e.Render(context.Background(), "digraph {}", diagram.FormatSVG)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if got := string(out); got != "format=-Tsvg\ndigraph {}" {
		t.Errorf("Render() = %q", got)
	}
}

func TestExecEngineFailure(t *testing.T) {
	e := &ExecEngine{Path: fakeDot(t, `echo "syntax error near line 1" >&2; exit 1`)}

	_, err := e.Render(context.Background(), "digraph {", diagram.FormatPNG)
	if err == nil || !strings.Contains(err.Error(), "syntax error near line 1") {
		t.Errorf("Render() error = %v, want stderr in message", err)
	}
}

func TestExecEngineMissingBinary(t *testing.T) {
	e := &ExecEngine{Path: filepath.Join(t.TempDir(), "no-such-dot")}
	if _, err := e.Render(context.Background(), "digraph {}", diagram.FormatPNG); err == nil {
		t.Error("Render() with missing binary succeeded")
	}
}

func TestExecEngineContextCanceled(t *testing.T) {
	e := &ExecEngine{Path: fakeDot(t, `sleep 5`)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Render(ctx, "digraph {}", diagram.FormatPNG); err == nil {
		t.Error("Render() ignored canceled context")
	}
}

func TestExecEngineCapabilities(t *testing.T) {
	if caps := NewExecEngine().Capabilities(); !caps.ClusterEdges || !caps.Images {
		t.Errorf("Capabilities() = %+v", caps)
	}
}
