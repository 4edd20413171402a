package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/LightForgeLabsStudio/AIDE/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad_ReturnsDefaultsWhenNoConfigExists(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(config.LoadInput{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source != "" {
		t.Errorf("Source=%q, want empty", cfg.Source)
	}

	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_OverlaysProjectConfigWhenPresent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.FileName), `{
		// comments are allowed
		"area_keywords": {"billing": ["invoice", "Payment"]},
		"default_priority": "low",
		"issue_type_mapping": {"bug": "Defect"},
	}`)

	cfg, err := config.Load(config.LoadInput{WorkDir: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.Source, filepath.Join(dir, config.FileName); got != want {
		t.Errorf("Source=%q, want=%q", got, want)
	}

	if got, want := cfg.DefaultPriority, "low"; got != want {
		t.Errorf("DefaultPriority=%q, want=%q", got, want)
	}

	if got, want := cfg.StatusReady, "status:ready"; got != want {
		t.Errorf("StatusReady=%q, want=%q", got, want)
	}

	wantMapping := config.DefaultIssueTypeMapping()
	wantMapping["bug"] = "Defect"

	if diff := cmp.Diff(wantMapping, cfg.IssueTypeMapping); diff != "" {
		t.Errorf("IssueTypeMapping mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(map[string][]string{"billing": {"invoice", "Payment"}}, cfg.AreaKeywords); diff != "" {
		t.Errorf("AreaKeywords mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_UsesFirstSearchPathWhenSeveralExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".aide", "tools", config.FileName), `{"epic_label": "from-tools"}`)
	writeFile(t, filepath.Join(dir, ".aide", config.FileName), `{"epic_label": "from-aide"}`)

	cfg, err := config.Load(config.LoadInput{WorkDir: dir})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.EpicLabel, "from-aide"; got != want {
		t.Errorf("EpicLabel=%q, want=%q", got, want)
	}
}

func TestLoad_FailsWhenExplicitConfigMissing(t *testing.T) {
	t.Parallel()

	_, err := config.Load(config.LoadInput{WorkDir: t.TempDir(), ConfigPath: "nope.json"})
	if !errors.Is(err, config.ErrConfigFileNotFound) {
		t.Fatalf("err=%v, want ErrConfigFileNotFound", err)
	}
}

func TestLoad_FailsWhenConfigIsInvalid(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		content string
	}{
		{name: "broken json", content: `{invalid json}`},
		{name: "explicit empty priority", content: `{"default_priority": "  "}`},
		{name: "empty type display name", content: `{"issue_type_mapping": {"bug": ""}}`},
		{name: "wrong value type", content: `{"area_keywords": "billing"}`},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "custom.json"), tt.content)

			_, err := config.Load(config.LoadInput{WorkDir: dir, ConfigPath: "custom.json"})
			if !errors.Is(err, config.ErrConfigInvalid) {
				t.Fatalf("err=%v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestParse_KeepsDefaultsForAbsentKeys(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}
