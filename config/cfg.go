package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"plumber/baseline"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// GridConfig holds global baseline grid parameters. Values are kept as
	// strings and coerced the same way as inline declarations, empty value
	// means built-in default.
	GridConfig struct {
		FontSize          string `yaml:"font_size"`
		GridHeight        string `yaml:"grid_height"`
		LineHeight        string `yaml:"line_height"`
		LeadingTop        string `yaml:"leading_top"`
		LeadingBottom     string `yaml:"leading_bottom"`
		UseBaselineOrigin string `yaml:"use_baseline_origin"`
		Baseline          string `yaml:"baseline"`
		Strict            bool   `yaml:"strict"`
	}

	OutputConfig struct {
		Minify                bool   `yaml:"minify"`
		NameTemplate          string `yaml:"name_template"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Grid      GridConfig     `yaml:"grid"`
		Output    OutputConfig   `yaml:"output"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// NOTE: must match yaml field name above
const OutputNameTemplateFieldName TemplateFieldName = "name_template"

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// Params returns non empty grid values as raw parameters keyed by canonical
// parameter names.
func (g *GridConfig) Params() baseline.RawParams {
	out := make(baseline.RawParams)
	for name, value := range map[string]string{
		baseline.ParamFontSize:          g.FontSize,
		baseline.ParamGridHeight:        g.GridHeight,
		baseline.ParamLineHeight:        g.LineHeight,
		baseline.ParamLeadingTop:        g.LeadingTop,
		baseline.ParamLeadingBottom:     g.LeadingBottom,
		baseline.ParamUseBaselineOrigin: g.UseBaselineOrigin,
		baseline.ParamBaseline:          g.Baseline,
	} {
		if value != "" {
			out[name] = value
		}
	}
	return out
}

// validateGrid makes sure configured grid height could be used at all, so
// bad configuration is reported once instead of failing every occurrence.
func validateGrid(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok || cfg.Grid.GridHeight == "" {
		return
	}
	if _, err := baseline.ParseGridHeight(cfg.Grid.GridHeight); err != nil {
		sl.ReportError(cfg.Grid.GridHeight, "Grid.GridHeight", "GridHeight", "grid_height", "")
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(validateGrid)); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
