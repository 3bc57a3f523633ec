package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/threader/models"
)

func TestWriteRunFormats(t *testing.T) {
	t.Parallel()
	run := &models.Run{ID: "r1", Topic: "electric vehicles", URLs: models.RankedURLs{"https://news.example/ev"}, Thread: &models.Thread{Posts: []string{"1/ hi"}, Text: "1/ hi"}}
	tests := []struct {
		format string
		want   []string
	}{
		{"json", []string{`"topic": "electric vehicles"`, `"urls": [`}},
		{"yaml", []string{"topic: electric vehicles", "urls:\n  - https://news.example/ev"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := writeRun(&buf, run, tt.format); err != nil {
				t.Fatalf("writeRun: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Fatalf("%s output missing %q:\n%s", tt.format, w, buf.String())
				}
			}
		})
	}
}

func TestTokenWithoutProviderCredentials(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "SERPER_API_KEY", "BRAVE_API_KEY", "THREADER_LLM_API_KEY", "THREADER_SEARCH_SERPER_API_KEY"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  jwt_secret: s3cret\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := tokenCMD(&path)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--subject", "ops"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out.String()), ".") != 2 {
		t.Fatalf("expected a signed JWT, got %q", out.String())
	}
}
