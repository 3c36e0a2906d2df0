package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"rgbafb/color"
	"rgbafb/fallback"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// OldIEConfig is either boolean or list of property names in the
	// configuration file. Enabled without list means default legacy properties.
	OldIEConfig struct {
		Enabled    bool
		Properties []string
	}

	FallbackConfig struct {
		Properties      []string    `yaml:"properties" validate:"dive,required"`
		BackgroundColor string      `yaml:"background_color" validate:"required"`
		OldIE           OldIEConfig `yaml:"oldie"`
	}

	OutputConfig struct {
		NameTemplate          string `yaml:"name_template"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Fallback  FallbackConfig `yaml:"fallback"`
		Output    OutputConfig   `yaml:"output"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// UnmarshalYAML accepts "oldie: true|false" as well as "oldie: [list]".
func (o *OldIEConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := node.Decode(&b); err != nil {
			// any other falsy value disables legacy output
			*o = OldIEConfig{}
			return nil
		}
		*o = OldIEConfig{Enabled: b}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("oldie: %w", err)
		}
		*o = OldIEConfig{Enabled: len(list) > 0, Properties: list}
		return nil
	}
	return fmt.Errorf("oldie: line %d: expected boolean or list of properties", node.Line)
}

// MarshalYAML writes value back in the same shape it was read.
func (o OldIEConfig) MarshalYAML() (any, error) {
	if len(o.Properties) > 0 {
		return o.Properties, nil
	}
	return o.Enabled, nil
}

// Resolve returns normalized set of legacy eligible properties.
func (o OldIEConfig) Resolve() []string {
	if !o.Enabled {
		return nil
	}
	if len(o.Properties) == 0 {
		return slices.Clone(fallback.DefaultOldIEProperties)
	}
	return normalize(o.Properties)
}

// Options resolves configuration for fallback generator. It is expected to be
// called once during setup.
func (conf *FallbackConfig) Options() fallback.Options {
	return fallback.Options{
		Properties:      normalize(conf.Properties),
		BackgroundColor: conf.BackgroundColor,
		OldIE:           conf.OldIE.Resolve(),
	}
}

func normalize(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// checkFallback is struct level validation making sure background color is
// usable.
func checkFallback(sl validator.StructLevel) {
	conf, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	if _, err := color.Parse(conf.Fallback.BackgroundColor); err != nil {
		sl.ReportError(conf.Fallback.BackgroundColor, "BackgroundColor", "background_color", "color", "")
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
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkFallback)); err != nil {
			return nil, err
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
