package convert

import (
	"path/filepath"
	"strings"
	"testing"

	"plumber/config"
)

func TestNewValues(t *testing.T) {
	tests := []struct {
		src  string
		want Values
	}{
		{"site.css", Values{Name: "site", Ext: ".css"}},
		{filepath.Join("theme", "print.min.css"), Values{Name: "print.min", Ext: ".css", Dir: "theme"}},
		{filepath.Join("a", "b", "c.CSS"), Values{Name: "c", Ext: ".CSS", Dir: "a/b"}},
		{"noext", Values{Name: "noext"}},
	}
	for _, tt := range tests {
		got := newValues(config.OutputNameTemplateFieldName, tt.src)
		tt.want.Context = string(config.OutputNameTemplateFieldName)
		if got != tt.want {
			t.Errorf("newValues(%q) = %+v, want %+v", tt.src, got, tt.want)
		}
	}
}

func TestExpandTemplate(t *testing.T) {
	values := newValues(config.OutputNameTemplateFieldName, filepath.Join("theme", "Site.css"))

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"simple text", "simple-text", "simple-text"},
		{"name", "{{ .Name }}", "Site"},
		{"name and ext", "{{ .Name }}{{ .Ext }}", "Site.css"},
		{"dir", "{{ .Dir }}/{{ .Name }}", "theme/Site"},
		{"context", "{{ .Context }}", "name_template"},
		{"sprig functions", "{{ .Name | lower }}-{{ .Ext | trimPrefix \".\" | upper }}", "site-CSS"},
		{"conditional", "{{ if .Dir }}{{ .Dir }}-{{ end }}{{ .Name }}", "theme-Site"},
		{"whitespace trimmed", "  {{ .Name }}\n", "Site"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandTemplate(config.OutputNameTemplateFieldName, tt.template, values)
			if err != nil {
				t.Fatalf("expandTemplate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpandTemplate_InvalidTemplate(t *testing.T) {
	_, err := expandTemplate(config.OutputNameTemplateFieldName, "{{ .Name", Values{})
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestExpandTemplate_InvalidField(t *testing.T) {
	_, err := expandTemplate(config.OutputNameTemplateFieldName, "{{ .Title }}", Values{})
	if err == nil {
		t.Error("expected error for unknown field")
	}
}
