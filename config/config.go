// Package config loads YAML form definitions.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reoring/goform"
)

// Definition describes one form: its initial state, validation rules,
// submission target and the settings of the process serving it.
type Definition struct {
	Name           string                  `yaml:"name"`
	Language       string                  `yaml:"language"` // "en" or "ja"
	InitialValues  map[string]any          `yaml:"initial_values"`
	InitialTouched goform.FieldMap[bool]   `yaml:"initial_touched"`
	InitialErrors  goform.FieldMap[string] `yaml:"initial_errors"`
	Validation     ValidationConfig        `yaml:"validation"`
	Submit         *SubmitConfig           `yaml:"submit,omitempty"`
	Server         ServerConfig            `yaml:"server"`
	Logging        LoggingConfig           `yaml:"logging"`
	Metrics        MetricsConfig           `yaml:"metrics"`
}

type ValidationConfig struct {
	Initial           bool           `yaml:"initial"`
	On                TriggersConfig `yaml:"on"`
	InvalidScrollToEl bool           `yaml:"invalid_scroll_to_el"`
	// Fields maps a field path to its rules, in document order.
	Fields goform.FieldMap[[]RuleSpec] `yaml:"fields"`
}

// TriggersConfig mirrors goform.Triggers; unset entries follow Initial.
type TriggersConfig struct {
	Change *bool `yaml:"change,omitempty"`
	Blur   *bool `yaml:"blur,omitempty"`
	Submit *bool `yaml:"submit,omitempty"`
}

type SubmitConfig struct {
	Endpoint  string            `yaml:"endpoint"`
	BaseURL   string            `yaml:"base_url,omitempty"`
	Method    string            `yaml:"method"`
	ResetData bool              `yaml:"reset_data"`
	Timeout   time.Duration     `yaml:"timeout,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads a definition from a YAML file. ${VAR} references are expanded
// from the environment before parsing.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse reads a definition from YAML bytes.
func Parse(data []byte) (*Definition, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&def)
	setDefaults(&def)

	if err := validate(&def); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &def, nil
}

func applyEnvOverrides(def *Definition) {
	if v := os.Getenv("GOFORM_LANGUAGE"); v != "" {
		def.Language = v
	}
	if v := os.Getenv("GOFORM_SERVER_ADDR"); v != "" {
		def.Server.Addr = v
	}
	if v := os.Getenv("GOFORM_SUBMIT_ENDPOINT"); v != "" && def.Submit != nil {
		def.Submit.Endpoint = v
	}
	if v := os.Getenv("GOFORM_LOG_LEVEL"); v != "" {
		def.Logging.Level = v
	}
	if v := os.Getenv("GOFORM_LOG_FORMAT"); v != "" {
		def.Logging.Format = v
	}
	if v := os.Getenv("GOFORM_METRICS_ENABLED"); v != "" {
		def.Metrics.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(def *Definition) {
	if def.Language == "" {
		def.Language = "en"
	}
	if def.InitialValues == nil {
		def.InitialValues = map[string]any{}
	}
	if def.Submit != nil && def.Submit.Method == "" {
		def.Submit.Method = http.MethodPost
	}
	if def.Server.Addr == "" {
		def.Server.Addr = ":8080"
	}
	if def.Server.ReadTimeout == 0 {
		def.Server.ReadTimeout = 30 * time.Second
	}
	if def.Server.WriteTimeout == 0 {
		def.Server.WriteTimeout = 60 * time.Second
	}
	if def.Logging.Level == "" {
		def.Logging.Level = "info"
	}
	if def.Logging.Format == "" {
		def.Logging.Format = "json"
	}
	if def.Metrics.Path == "" {
		def.Metrics.Path = "/metrics"
	}
}

func validate(def *Definition) error {
	if def.Language != "en" && def.Language != "ja" {
		return fmt.Errorf("language must be 'en' or 'ja', got %q", def.Language)
	}
	if def.Submit != nil {
		if def.Submit.Endpoint == "" {
			return fmt.Errorf("submit.endpoint is required")
		}
		def.Submit.Method = strings.ToUpper(def.Submit.Method)
		switch def.Submit.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodGet:
		default:
			return fmt.Errorf("submit.method %q is not supported", def.Submit.Method)
		}
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[def.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", def.Logging.Level)
	}
	if def.Logging.Format != "json" && def.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", def.Logging.Format)
	}
	for path, specs := range def.Validation.Fields.All() {
		for i, spec := range specs {
			if _, err := spec.compile(path); err != nil {
				return fmt.Errorf("validation.fields[%s][%d]: %w", path, i, err)
			}
		}
	}
	return nil
}

// Props builds the form properties. Rules are compiled through the rules
// package; the language setting is applied by the caller via i18n.
func (d *Definition) Props() (goform.Props, error) {
	schema, err := d.Schema()
	if err != nil {
		return goform.Props{}, err
	}
	props := goform.Props{
		InitialValues:  d.InitialValues,
		InitialTouched: d.InitialTouched,
		InitialErrors:  d.InitialErrors,
		Validation: goform.ValidationConfig{
			Schema: schema,
			On: goform.Triggers{
				Change: d.Validation.On.Change,
				Blur:   d.Validation.On.Blur,
				Submit: d.Validation.On.Submit,
			},
			Initial:           d.Validation.Initial,
			InvalidScrollToEl: d.Validation.InvalidScrollToEl,
		},
	}
	if s := d.Submit; s != nil {
		cfg := &goform.RequestConfig{BaseURL: s.BaseURL, Timeout: s.Timeout}
		if len(s.Headers) > 0 {
			cfg.Header = http.Header{}
			for k, v := range s.Headers {
				cfg.Header.Set(k, v)
			}
		}
		props.Submit = &goform.Submit{
			Endpoint:  s.Endpoint,
			Method:    s.Method,
			Config:    cfg,
			ResetData: s.ResetData,
		}
	}
	return props, nil
}
