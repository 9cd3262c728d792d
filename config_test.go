package tensorviz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfigTOML(t *testing.T) {
	cfg := DefaultConfig()
	err := DecodeConfig([]byte(`
[glyph]
resolution = 20
gamma = 5.0
scale = 1000.0
max_size = 10.0
clamp_mode = "length"

[lines]
min_fa = 0.25
max_length = 150.0
max_steps = 1000
control_saturation = true
`), ".toml", &cfg)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Glyph.Resolution)
	assert.Equal(t, 5.0, cfg.Glyph.Gamma)
	assert.Equal(t, 1000.0, cfg.Glyph.Scale)
	assert.Equal(t, ClampLength, cfg.Glyph.ClampMode)
	assert.Equal(t, 1, cfg.Glyph.Ratio)
	assert.Equal(t, 0.25, cfg.Lines.MinFA)
	assert.Equal(t, 150.0, cfg.Lines.MaxLength)
	assert.Equal(t, 1000, cfg.Lines.MaxSteps)
	assert.True(t, cfg.Lines.ControlSaturation)
	assert.Equal(t, 1.0, cfg.Lines.StepSize)
}

func TestDecodeConfigYAML(t *testing.T) {
	cfg := DefaultConfig()
	err := DecodeConfig([]byte(`
glyph:
  ratio: 4
  clamp_mode: diameter
lines:
  workers: 3
`), "yml", &cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Glyph.Ratio)
	assert.Equal(t, ClampDiameter, cfg.Glyph.ClampMode)
	assert.Equal(t, 3, cfg.Lines.Workers)
	assert.Equal(t, 8, cfg.Glyph.Resolution)

	empty := DefaultConfig()
	require.NoError(t, DecodeConfig(nil, ".yaml", &empty))
	assert.Equal(t, DefaultConfig(), empty)
}

func TestDecodeConfigErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, DecodeConfig([]byte("{}"), ".json", &cfg))
	assert.Error(t, DecodeConfig([]byte("[glyph]\nresolution = 1\n"), ".toml", &cfg))
	assert.Error(t, DecodeConfig([]byte("[glyph]\ncolour = 1\n"), ".toml", &cfg))
	assert.Error(t, DecodeConfig([]byte("glyph:\n  clamp_mode: area\n"), ".yaml", &cfg))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	require.NoError(t, os.WriteFile(path, []byte("[lines]\nstep_size = 0.5\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Lines.StepSize)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
