package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	cases := map[string]string{
		"":               "",
		"/abs/path":      "/abs/path",
		"rel/path":       "rel/path",
		"~":              home,
		"~/secrets/pass": filepath.Join(home, "secrets/pass"),
	}
	for in, want := range cases {
		got, err := ExpandHome(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q -> %q, want %q", in, got, want)
		}
	}
}

func TestPathExists(t *testing.T) {
	d := t.TempDir()
	if !PathExists(d) {
		t.Fatalf("temp dir should exist")
	}
	if PathExists(filepath.Join(d, "missing")) {
		t.Fatalf("missing path reported as existing")
	}
}

func TestReadSecretTrimsLineBreaksOnly(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"unix":     "hunter2\n",
		"windows":  "hunter2\r\n",
		"multiple": "hunter2\n\n",
		"bare":     "hunter2",
	}
	for name, content := range cases {
		p := filepath.Join(d, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := ReadSecret(p)
		if err != nil || got != "hunter2" {
			t.Fatalf("%s: got %q err=%v", name, got, err)
		}
	}
	p := filepath.Join(d, "spaces")
	_ = os.WriteFile(p, []byte(" pass word \n"), 0o600)
	if got, _ := ReadSecret(p); got != " pass word " {
		t.Fatalf("inner whitespace changed: %q", got)
	}
	if _, err := ReadSecret(filepath.Join(d, "nope")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
