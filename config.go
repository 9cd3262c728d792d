package tensorviz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config groups the parameters of a run. It is read from TOML or YAML files:
//
//	[glyph]
//	resolution = 20
//	gamma = 5.0
//	scale = 1000.0
//	max_size = 10.0
//	clamp_mode = "volume"
//
//	[lines]
//	min_fa = 0.3
//	max_length = 150.0
//	max_steps = 1000
type Config struct {
	Glyph GlyphParams `toml:"glyph" yaml:"glyph"`
	Lines LineParams  `toml:"lines" yaml:"lines"`
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{Glyph: DefaultGlyphParams(), Lines: DefaultLineParams()}
}

// LoadConfig reads a parameter file on top of the defaults. The format
// follows the extension: .toml, .yaml or .yml. A leading ~ is expanded.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := DecodeConfig(data, filepath.Ext(path), &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeConfig decodes data in the format named by ext into cfg. Fields
// absent from data keep their value.
func DecodeConfig(data []byte, ext string, cfg *Config) error {
	var err error
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return fmt.Errorf("unknown parameter file format %q", ext)
	}
	if err != nil {
		return err
	}
	if err := cfg.Glyph.Validate(); err != nil {
		return err
	}
	return cfg.Lines.Validate()
}
