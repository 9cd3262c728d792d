// Package nrrd reads and writes NRRD volumes with an attached header, the
// format produced by Teem and 3D Slicer for diffusion tensor images.
//
// Only the parts of the format used by tensor volumes are supported: raw,
// gzip and text encodings, integer and floating point samples, and the
// space origin / space directions / spacings orientation fields.
package nrrd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Magic is the first line written by Write.
const Magic = "NRRD0004"

// Header holds the fields of a NRRD header that describe the samples.
type Header struct {
	Type      string
	Dimension int
	Sizes     []int
	Encoding  string
	Endian    binary.ByteOrder
	Space     string
	// SpaceOrigin is nil when absent.
	SpaceOrigin []float64
	// SpaceDirections has one entry per axis, nil for "none".
	SpaceDirections [][]float64
	Spacings        []float64
	Kinds           []string
	// Fields keeps every field as read, keyed by lower case name.
	Fields map[string]string
}

// Volume is a decoded NRRD file. Data holds the samples converted to
// float64 with the first axis varying fastest.
type Volume struct {
	Header
	Data []float64
}

// Len returns the number of samples described by the header sizes.
func (h *Header) Len() int {
	n := 1
	for _, s := range h.Sizes {
		n *= s
	}
	return n
}

type sampleType struct {
	size   int
	decode func(b []byte, order binary.ByteOrder) float64
	encode func(b []byte, order binary.ByteOrder, v float64)
}

var sampleTypes = map[string]sampleType{
	"float": {4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, math.Float32bits(float32(v))) }},
	"double": {8,
		func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, math.Float64bits(v)) }},
	"uchar": {1,
		func(b []byte, _ binary.ByteOrder) float64 { return float64(b[0]) },
		func(b []byte, _ binary.ByteOrder, v float64) { b[0] = uint8(v) }},
	"signed char": {1,
		func(b []byte, _ binary.ByteOrder) float64 { return float64(int8(b[0])) },
		func(b []byte, _ binary.ByteOrder, v float64) { b[0] = uint8(int8(v)) }},
	"short": {2,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int16(o.Uint16(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint16(b, uint16(int16(v))) }},
	"ushort": {2,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint16(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint16(b, uint16(v)) }},
	"int": {4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int32(o.Uint32(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, uint32(int32(v))) }},
	"uint": {4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint32(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, uint32(v)) }},
}

// typeAliases maps the spellings allowed by the format to a canonical name.
var typeAliases = map[string]string{
	"float": "float", "double": "double",
	"uchar": "uchar", "unsigned char": "uchar", "uint8": "uchar", "uint8_t": "uchar",
	"signed char": "signed char", "int8": "signed char", "int8_t": "signed char",
	"short": "short", "short int": "short", "signed short": "short", "signed short int": "short", "int16": "short", "int16_t": "short",
	"ushort": "ushort", "unsigned short": "ushort", "unsigned short int": "ushort", "uint16": "ushort", "uint16_t": "ushort",
	"int": "int", "signed int": "int", "int32": "int", "int32_t": "int",
	"uint": "uint", "unsigned int": "uint", "uint32": "uint", "uint32_t": "uint",
}

var encodingAliases = map[string]string{
	"raw": "raw", "gzip": "gzip", "gz": "gzip", "text": "text", "txt": "text", "ascii": "text",
}

// Read decodes a NRRD stream with an attached header.
func Read(r io.Reader) (*Volume, error) {
	br := bufio.NewReader(r)
	magic, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("nrrd: reading magic: %w", err)
	}
	if magic = strings.TrimSpace(magic); !strings.HasPrefix(magic, "NRRD000") {
		return nil, fmt.Errorf("nrrd: bad magic %q", magic)
	}

	h := Header{Fields: make(map[string]string), Endian: binary.LittleEndian}
	for {
		line, err := br.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, fmt.Errorf("nrrd: reading header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "#") || strings.Contains(line, ":=") {
			continue
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("nrrd: malformed header line %q", line)
		}
		h.Fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := h.parse(); err != nil {
		return nil, err
	}

	var data io.Reader = br
	if h.Encoding == "gzip" {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("nrrd: gzip: %w", err)
		}
		defer zr.Close()
		data = zr
	}
	vol := &Volume{Header: h}
	if h.Encoding == "text" {
		vol.Data, err = readText(data, h.Len())
	} else {
		vol.Data, err = readBinary(data, h.Len(), sampleTypes[h.Type], h.Endian)
	}
	if err != nil {
		return nil, err
	}
	return vol, nil
}

func (h *Header) parse() error {
	f := h.Fields
	if _, ok := f["data file"]; ok {
		return errors.New("nrrd: detached data files are not supported")
	}
	if _, ok := f["datafile"]; ok {
		return errors.New("nrrd: detached data files are not supported")
	}

	typ, ok := typeAliases[f["type"]]
	if !ok {
		return fmt.Errorf("nrrd: unsupported type %q", f["type"])
	}
	h.Type = typ

	dim, err := strconv.Atoi(f["dimension"])
	if err != nil || dim < 1 {
		return fmt.Errorf("nrrd: bad dimension %q", f["dimension"])
	}
	h.Dimension = dim

	sizes := strings.Fields(f["sizes"])
	if len(sizes) != dim {
		return fmt.Errorf("nrrd: sizes %q do not match dimension %d", f["sizes"], dim)
	}
	h.Sizes = make([]int, dim)
	for i, s := range sizes {
		if h.Sizes[i], err = strconv.Atoi(s); err != nil || h.Sizes[i] < 1 {
			return fmt.Errorf("nrrd: bad size %q", s)
		}
	}

	enc, ok := encodingAliases[f["encoding"]]
	if !ok {
		return fmt.Errorf("nrrd: unsupported encoding %q", f["encoding"])
	}
	h.Encoding = enc

	switch f["endian"] {
	case "", "little":
	case "big":
		h.Endian = binary.BigEndian
	default:
		return fmt.Errorf("nrrd: bad endian %q", f["endian"])
	}

	h.Space = f["space"]
	if v, ok := f["space origin"]; ok {
		if h.SpaceOrigin, err = parseVector(v); err != nil {
			return fmt.Errorf("nrrd: space origin: %w", err)
		}
	}
	if v, ok := f["space directions"]; ok {
		fields := strings.Fields(v)
		if len(fields) != dim {
			return fmt.Errorf("nrrd: space directions %q do not match dimension %d", v, dim)
		}
		h.SpaceDirections = make([][]float64, dim)
		for i, d := range fields {
			if d == "none" {
				continue
			}
			if h.SpaceDirections[i], err = parseVector(d); err != nil {
				return fmt.Errorf("nrrd: space directions: %w", err)
			}
		}
	}
	if v, ok := f["spacings"]; ok {
		fields := strings.Fields(v)
		if len(fields) != dim {
			return fmt.Errorf("nrrd: spacings %q do not match dimension %d", v, dim)
		}
		h.Spacings = make([]float64, dim)
		for i, s := range fields {
			if h.Spacings[i], err = strconv.ParseFloat(s, 64); err != nil {
				return fmt.Errorf("nrrd: spacings: %w", err)
			}
		}
	}
	if v, ok := f["kinds"]; ok {
		h.Kinds = strings.Fields(v)
	}
	return nil
}

// parseVector parses "(x,y,z)".
func parseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("bad vector %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	v := make([]float64, len(parts))
	for i, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad vector %q", s)
		}
		v[i] = x
	}
	return v, nil
}

func readBinary(r io.Reader, n int, st sampleType, order binary.ByteOrder) ([]float64, error) {
	buf := make([]byte, n*st.size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("nrrd: reading %d samples: %w", n, err)
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = st.decode(buf[i*st.size:], order)
	}
	return data, nil
}

func readText(r io.Reader, n int) ([]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	data := make([]float64, 0, n)
	for len(data) < n && sc.Scan() {
		tok := strings.Trim(sc.Text(), ",")
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("nrrd: bad sample %q", tok)
		}
		data = append(data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("nrrd: reading samples: %w", err)
	}
	if len(data) < n {
		return nil, fmt.Errorf("nrrd: got %d samples, want %d", len(data), n)
	}
	return data, nil
}

// Write encodes v with an attached header using v.Type, v.Encoding and
// v.Endian (little endian when nil).
func Write(w io.Writer, v *Volume) error {
	if len(v.Data) != v.Len() {
		return fmt.Errorf("nrrd: %d samples for sizes %v", len(v.Data), v.Sizes)
	}
	st, ok := sampleTypes[v.Type]
	if !ok {
		return fmt.Errorf("nrrd: unsupported type %q", v.Type)
	}
	enc, ok := encodingAliases[v.Encoding]
	if !ok {
		return fmt.Errorf("nrrd: unsupported encoding %q", v.Encoding)
	}
	order := v.Endian
	if order == nil {
		order = binary.LittleEndian
	}

	var hdr bytes.Buffer
	fmt.Fprintf(&hdr, "%s\n", Magic)
	fmt.Fprintf(&hdr, "type: %s\n", v.Type)
	fmt.Fprintf(&hdr, "dimension: %d\n", len(v.Sizes))
	if v.Space != "" {
		fmt.Fprintf(&hdr, "space: %s\n", v.Space)
	}
	fmt.Fprintf(&hdr, "sizes: %s\n", joinInts(v.Sizes))
	if v.SpaceDirections != nil {
		dirs := make([]string, len(v.SpaceDirections))
		for i, d := range v.SpaceDirections {
			dirs[i] = "none"
			if d != nil {
				dirs[i] = formatVector(d)
			}
		}
		fmt.Fprintf(&hdr, "space directions: %s\n", strings.Join(dirs, " "))
	}
	if v.Spacings != nil {
		fmt.Fprintf(&hdr, "spacings: %s\n", joinFloats(v.Spacings))
	}
	if v.Kinds != nil {
		fmt.Fprintf(&hdr, "kinds: %s\n", strings.Join(v.Kinds, " "))
	}
	if st.size > 1 && enc != "text" {
		name := "little"
		if order == binary.BigEndian {
			name = "big"
		}
		fmt.Fprintf(&hdr, "endian: %s\n", name)
	}
	fmt.Fprintf(&hdr, "encoding: %s\n", enc)
	if v.SpaceOrigin != nil {
		fmt.Fprintf(&hdr, "space origin: %s\n", formatVector(v.SpaceOrigin))
	}
	hdr.WriteString("\n")
	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}

	if enc == "text" {
		bw := bufio.NewWriter(w)
		for i, x := range v.Data {
			sep := " "
			if (i+1)%v.Sizes[0] == 0 {
				sep = "\n"
			}
			bw.WriteString(strconv.FormatFloat(x, 'g', -1, 64) + sep)
		}
		return bw.Flush()
	}

	buf := make([]byte, len(v.Data)*st.size)
	for i, x := range v.Data {
		st.encode(buf[i*st.size:], order, x)
	}
	if enc == "gzip" {
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(buf); err != nil {
			return err
		}
		return zw.Close()
	}
	_, err := w.Write(buf)
	return err
}

func formatVector(v []float64) string {
	return "(" + joinFloatsSep(v, ",") + ")"
}

func joinFloats(v []float64) string { return joinFloatsSep(v, " ") }

func joinFloatsSep(v []float64, sep string) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(s, sep)
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, " ")
}
