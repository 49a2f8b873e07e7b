package convert

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"plumber/config"
	"plumber/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs bool, transliterate bool, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Output.FileNameTransliterate = transliterate
	cfg.Output.NameTemplate = template

	return &state.LocalEnv{
		Log:    logger,
		Cfg:    cfg,
		NoDirs: noDirs,
	}
}

func TestBuildOutputPath_Default(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		noDirs bool
		want   string
	}{
		{"single file", "site.css", false, filepath.Join("/out", "site.css")},
		{"nested keeps dirs", filepath.Join("theme", "print.css"), false, filepath.Join("/out", "theme", "print.css")},
		{"nested without dirs", filepath.Join("theme", "print.css"), true, filepath.Join("/out", "print.css")},
		{"keeps extension case", "SITE.CSS", false, filepath.Join("/out", "SITE.CSS")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.noDirs, false, "")
			if got := buildOutputPath(tt.src, "/out", env); got != tt.want {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildOutputPath_Transliterate(t *testing.T) {
	env := setupTestEnvForOutputPath(t, false, true, "")
	got := buildOutputPath(filepath.Join("Темы", "Основной Стиль.css"), "/out", env)
	// only file name is transliterated, source directories are kept
	want := filepath.Join("/out", "Темы", "osnovnoi-stil.css")
	if got != want {
		t.Errorf("buildOutputPath() = %q, want %q", got, want)
	}
}

func TestBuildOutputPath_Template(t *testing.T) {
	tests := []struct {
		name     string
		template string
		src      string
		noDirs   bool
		want     string
	}{
		{"name with suffix", "{{ .Name }}.grid{{ .Ext }}", "site.css", false, filepath.Join("/out", "site.grid.css")},
		{"extension added", "{{ .Name | upper }}", "site.css", false, filepath.Join("/out", "SITE.css")},
		{"subdirectory", "grid/{{ .Name }}", "site.css", true, filepath.Join("/out", "grid", "site.css")},
		{"source dir in name", "{{ .Dir | replace \"/\" \"-\" }}-{{ .Name }}", filepath.Join("a", "b", "c.css"), true, filepath.Join("/out", "a-b-c.css")},
		{"parent refs dropped", "../{{ .Name }}", "site.css", true, filepath.Join("/out", "site.css")},
		{"invalid falls back", "{{ .Name", "site.css", true, filepath.Join("/out", "site.css")},
		{"unknown field falls back", "{{ .Author }}", "site.css", true, filepath.Join("/out", "site.css")},
		{"empty expansion falls back", "{{ \"\" }}", "site.css", true, filepath.Join("/out", "site.css")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, tt.noDirs, false, tt.template)
			if got := buildOutputPath(tt.src, "/out", env); got != tt.want {
				t.Errorf("buildOutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetermineOutputDir(t *testing.T) {
	src := filepath.Join("input", "dir", "site.css")

	env := setupTestEnvForOutputPath(t, true, false, "")
	if got := determineOutputDir(src, "/output", env); got != "/output" {
		t.Errorf("determineOutputDir() with NoDirs = %q, want /output", got)
	}

	env = setupTestEnvForOutputPath(t, false, false, "")
	want := filepath.Join("/output", "input", "dir")
	if got := determineOutputDir(src, "/output", env); got != want {
		t.Errorf("determineOutputDir() = %q, want %q", got, want)
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected []string
	}{
		{"simple path", filepath.Join("theme", "site"), []string{"theme", "site"}},
		{"single segment", "site", []string{"site"}},
		{"with trailing slash", filepath.Join("theme", "site") + string(filepath.Separator), []string{"theme", "site"}},
		{"three levels", filepath.Join("a", "b", "c"), []string{"a", "b", "c"}},
		{"empty path", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitPath(tt.path)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitPath() = %q, want %q", result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitPath()[%d] = %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestCleanPathSegment(t *testing.T) {
	tests := []struct {
		name          string
		segment       string
		transliterate bool
		expected      string
	}{
		{"simple segment", "site", false, "site"},
		{"with spaces", "My Theme", false, "My Theme"},
		{"transliterate cyrillic", "Стиль", true, "stil"},
		{"leading dots", "..hidden", false, "hidden"},
		{"nothing left", "..", false, "_bad_file_name_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, tt.transliterate, "")
			if got := cleanPathSegment(tt.segment, env); got != tt.expected {
				t.Errorf("cleanPathSegment() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAssemblePathWithSubdirs_EmptyPath(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "")
	if got := assemblePathWithSubdirs("/output", "", ".css", env); got != "/output" {
		t.Errorf("assemblePathWithSubdirs() with empty path = %q, want /output", got)
	}
}
