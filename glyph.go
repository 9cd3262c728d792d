package tensorviz

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// ClampMode selects the size measure bounded by GlyphParams.MaxSize.
type ClampMode int

const (
	// ClampVolume bounds the enclosed superquadric volume.
	ClampVolume ClampMode = iota
	// ClampLength bounds the largest semi-axis.
	ClampLength
	// ClampDiameter bounds the norm of the semi-axes.
	ClampDiameter
)

var clampModeNames = [...]string{"volume", "length", "diameter"}

func (m ClampMode) String() string {
	if m < 0 || int(m) >= len(clampModeNames) {
		return fmt.Sprintf("ClampMode(%d)", int(m))
	}
	return clampModeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m ClampMode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(clampModeNames) {
		return nil, fmt.Errorf("unknown clamp mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ClampMode) UnmarshalText(text []byte) error {
	for i, name := range clampModeNames {
		if string(text) == name {
			*m = ClampMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown clamp mode %q", text)
}

// GlyphParams controls superquadric glyph synthesis.
type GlyphParams struct {
	// Resolution is the number of latitude rings of the glyph surface.
	Resolution int `toml:"resolution" yaml:"resolution"`
	// Longitudes defaults to 2*(Resolution-2) when zero.
	Longitudes int `toml:"longitudes" yaml:"longitudes"`
	// Gamma controls the sharpness of the superquadric edges.
	Gamma float64 `toml:"gamma" yaml:"gamma"`
	Scale float64 `toml:"scale" yaml:"scale"`
	// Ratio keeps one glyph out of Ratio tensors, picked at random.
	Ratio     int       `toml:"ratio" yaml:"ratio"`
	MaxSize   float64   `toml:"max_size" yaml:"max_size"`
	ClampMode ClampMode `toml:"clamp_mode" yaml:"clamp_mode"`
	// MaxFA is accepted for compatibility but does not affect the output.
	MaxFA     float64 `toml:"max_fa" yaml:"max_fa"`
	Transform bool    `toml:"transform" yaml:"transform"`
	Translate bool    `toml:"translate" yaml:"translate"`

	// Rand drives the display ratio subsampling. Nil uses a time seeded source.
	Rand Rand `toml:"-" yaml:"-"`
}

// DefaultGlyphParams returns the default glyph settings.
func DefaultGlyphParams() GlyphParams {
	return GlyphParams{
		Resolution: 8,
		Gamma:      0.5,
		Scale:      1,
		Ratio:      1,
		MaxSize:    1,
		ClampMode:  ClampVolume,
		MaxFA:      1,
		Transform:  true,
		Translate:  true,
	}
}

// Validate reports the first invalid setting.
func (p GlyphParams) Validate() error {
	switch {
	case p.Resolution < 3:
		return fmt.Errorf("glyph resolution must be at least 3, got %d", p.Resolution)
	case p.Longitudes < 0:
		return fmt.Errorf("glyph longitudes must not be negative, got %d", p.Longitudes)
	case p.Ratio < 1:
		return fmt.Errorf("display ratio must be at least 1, got %d", p.Ratio)
	case !(p.MaxSize > 0):
		return fmt.Errorf("maximum glyph size must be positive, got %g", p.MaxSize)
	case p.ClampMode < ClampVolume || p.ClampMode > ClampDiameter:
		return fmt.Errorf("unknown clamp mode %d", int(p.ClampMode))
	case p.Gamma < 0:
		return fmt.Errorf("gamma must not be negative, got %g", p.Gamma)
	}
	return nil
}

// Glyph describes one superquadric before it is meshed.
type Glyph struct {
	// Index of the source sample.
	Index    int
	Position r3.Vec
	// Values are the eigenvalues after size clamping.
	Values  [3]float64
	Vectors [3]r3.Vec
	Alpha   float64
	Beta    float64
	Axis    GlyphAxis
	Color   RGB
}

// Mesh is a triangle mesh with one color per point.
type Mesh struct {
	Points    []r3.Vec
	Triangles [][3]int
	Colors    []RGB
}

// GlyphSize returns the size measure of a glyph for the given mode.
func GlyphSize(mode ClampMode, values [3]float64, alpha, beta, scale float64) float64 {
	switch mode {
	case ClampLength:
		return scale * values[2]
	case ClampDiameter:
		return scale * math.Sqrt(values[0]*values[0]+values[1]*values[1]+values[2]*values[2])
	default:
		det := values[0] * values[1] * values[2]
		return finite(det * scale * scale * scale * SuperquadricVolume(alpha, beta))
	}
}

// ClampValues shrinks the eigenvalues so that the glyph size does not
// exceed maxSize. Volumes scale with the cube of the eigenvalues, hence the
// cube root correction in volume mode.
func ClampValues(mode ClampMode, values [3]float64, alpha, beta, scale, maxSize float64) [3]float64 {
	size := GlyphSize(mode, values, alpha, beta, scale)
	if !(size > maxSize) {
		return values
	}
	correction := size / maxSize
	if mode == ClampVolume {
		correction = math.Cbrt(correction)
	}
	for i := range values {
		values[i] /= correction
	}
	return values
}

// ComputeGlyphs derives the shape, size and color of the glyphs kept after
// display ratio subsampling.
func ComputeGlyphs(s Samples, p GlyphParams) ([]Glyph, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := s.NumPoints()
	keep := n
	if p.Ratio > 1 {
		keep = n / p.Ratio
	}
	indices := sampleIndices(n, keep, defaultRand(p.Rand))

	glyphs := make([]Glyph, len(indices))
	for g, i := range indices {
		a := ComputeAttributes(s.TensorAt(i))
		alpha, beta, axis := ShapeExponents(a.CL, a.CP, p.Gamma)
		glyphs[g] = Glyph{
			Index:    i,
			Position: s.Point(i),
			Values:   ClampValues(p.ClampMode, a.Values, alpha, beta, p.Scale, p.MaxSize),
			Vectors:  a.Vectors,
			Alpha:    alpha,
			Beta:     beta,
			Axis:     axis,
			Color:    a.Color,
		}
	}
	return glyphs, nil
}

// transform maps a local glyph point to world space.
func (g *Glyph) transform(q r3.Vec, rotate, translate bool) r3.Vec {
	if rotate {
		local := [3]float64{q.X, q.Y, q.Z}
		var w r3.Vec
		for axis, col := range glyphColumnOrder {
			w = r3.Add(w, r3.Scale(local[axis]*g.Values[col], g.Vectors[col]))
		}
		q = w
	}
	if translate {
		q = r3.Add(q, g.Position)
	}
	return q
}

// SynthesizeGlyphs builds one superquadric glyph per retained sample and
// returns them as a single mesh. Every call regenerates the whole mesh.
func SynthesizeGlyphs(s Samples, p GlyphParams) (*Mesh, error) {
	if s == nil {
		return nil, errors.New("no samples to glyph")
	}
	start := time.Now()
	glyphs, err := ComputeGlyphs(s, p)
	if err != nil {
		return nil, err
	}
	shapeT := time.Since(start)

	t := time.Now()
	sphere, err := NewSphereMesh(p.Resolution, p.Longitudes)
	if err != nil {
		return nil, err
	}
	mesh := BuildGlyphMesh(glyphs, sphere, p)
	meshT := time.Since(t)

	Logger().Info("glyphs generated",
		"tensors", s.NumPoints(),
		"glyphs", len(glyphs),
		"points", len(mesh.Points),
		"triangles", len(mesh.Triangles),
		"shapes", shapeT,
		"mesh", meshT,
		"total", time.Since(start),
	)
	return mesh, nil
}

// BuildGlyphMesh evaluates, transforms and concatenates the glyphs on the
// given sphere parameterization.
func BuildGlyphMesh(glyphs []Glyph, sphere *SphereMesh, p GlyphParams) *Mesh {
	npts := sphere.NumPoints()
	tris := sphere.Triangles()
	mesh := &Mesh{
		Points:    make([]r3.Vec, 0, len(glyphs)*npts),
		Triangles: make([][3]int, 0, len(glyphs)*len(tris)),
		Colors:    make([]RGB, 0, len(glyphs)*npts),
	}
	for g := range glyphs {
		glyph := &glyphs[g]
		offset := len(mesh.Points)
		for _, q := range superquadric(sphere.Angles(), glyph.Alpha, glyph.Beta, glyph.Axis, p.Scale) {
			mesh.Points = append(mesh.Points, glyph.transform(q, p.Transform, p.Translate))
			mesh.Colors = append(mesh.Colors, glyph.Color)
		}
		for _, tri := range tris {
			mesh.Triangles = append(mesh.Triangles, [3]int{tri[0] + offset, tri[1] + offset, tri[2] + offset})
		}
	}
	return mesh
}

// Append concatenates o onto m, shifting its triangle indices.
func (m *Mesh) Append(o *Mesh) {
	offset := len(m.Points)
	m.Points = append(m.Points, o.Points...)
	m.Colors = append(m.Colors, o.Colors...)
	for _, t := range o.Triangles {
		m.Triangles = append(m.Triangles, [3]int{t[0] + offset, t[1] + offset, t[2] + offset})
	}
}
