package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"plumber/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context string
	Name    string // source base name without extension
	Ext     string // source extension including leading dot
	Dir     string // source directory relative to processed root, slash separated
}

func newValues(name config.TemplateFieldName, src string) Values {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	dir := filepath.ToSlash(filepath.Dir(src))
	if dir == "." {
		dir = ""
	}
	return Values{
		Context: string(name),
		Name:    strings.TrimSuffix(base, ext),
		Ext:     ext,
		Dir:     dir,
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("unable to expand template field %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
