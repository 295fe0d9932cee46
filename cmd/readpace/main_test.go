package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	var out, errOut bytes.Buffer
	k, err := newParser(&cli, kong.Writers(&out, &errOut), kong.Exit(func(int) {}))
	if err != nil {
		t.Fatalf("build parser: %v", err)
	}
	ctx, err := k.Parse(args)
	if err != nil {
		return out.String(), err
	}
	err = ctx.Run()
	return out.String(), err
}

const doc = `<h1>Chapter One</h1><p>It was a bright cold day.</p><ol><li>first</li><li>second</li></ol>`

func TestSegmentCmd(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "doc.html", doc)

	out, err := run(t, "segment", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "heading(1)") || !strings.Contains(out, "list(ol)") {
		t.Errorf("expected block kinds in output, got:\n%s", out)
	}
	if !strings.Contains(out, "3 blocks, 10 words") {
		t.Errorf("expected summary line, got:\n%s", out)
	}

	out, err = run(t, "segment", "--json", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		TotalWords int              `json:"total_words"`
		Blocks     []map[string]any `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalWords != 10 || len(resp.Blocks) != 3 {
		t.Errorf("expected 10 words in 3 blocks, got %d in %d", resp.TotalWords, len(resp.Blocks))
	}
}

func TestPositionCmd(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "doc.html", doc)

	tests := []struct {
		name      string
		args      []string
		wantWC    int
		wantBlock int
		wantWord  int
	}{
		{"word count", []string{"--word-count", "4"}, 4, 1, 2},
		{"pacing", []string{"--block", "2", "--word", "1"}, 9, 2, 1},
		{"rsvp", []string{"--rsvp", "2", "--chunk-size", "3"}, 6, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"position", path}, tt.args...)...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var v struct {
				WordCount int `json:"word_count"`
				Pacing    struct {
					BlockIndex int `json:"block_index"`
					WordIndex  int `json:"word_index"`
				} `json:"pacing"`
			}
			if err := json.Unmarshal([]byte(out), &v); err != nil {
				t.Fatalf("decode %q: %v", out, err)
			}
			if v.WordCount != tt.wantWC || v.Pacing.BlockIndex != tt.wantBlock || v.Pacing.WordIndex != tt.wantWord {
				t.Errorf("expected %d at (%d,%d), got %+v", tt.wantWC, tt.wantBlock, tt.wantWord, v)
			}
		})
	}

	for _, args := range [][]string{
		{},
		{"--word-count", "1", "--rsvp", "1"},
		{"--block", "1"},
		{"--rsvp", "1", "--chunk-size", "0"},
	} {
		if _, err := run(t, append([]string{"position", path}, args...)...); err == nil {
			t.Errorf("args %v: expected validation error", args)
		}
	}
}

func TestFrameCmd(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "doc.html", doc)
	out, err := run(t, "frame", path, "1", "--chunk-size", "4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "frame 1/3 at block 1 word 2: a bright cold day."
	if strings.TrimSpace(out) != want {
		t.Errorf("expected %q, got %q", want, strings.TrimSpace(out))
	}

	for _, size := range []string{"0", "-2"} {
		if _, err := run(t, "frame", path, "1", "--chunk-size", size); err == nil {
			t.Errorf("chunk size %s: expected validation error", size)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "readpace "+version {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("short", 10); got != "short" {
		t.Errorf("expected %q, got %q", "short", got)
	}
	if got := preview("abcdefghij", 5); got != "abcd…" {
		t.Errorf("expected %q, got %q", "abcd…", got)
	}
}
