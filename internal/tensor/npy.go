package tensor

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrNotNPY is returned when the input does not start with the NumPy magic.
var ErrNotNPY = errors.New("not a NumPy .npy file")

var npyMagic = []byte("\x93NUMPY")

// maxHeaderLen bounds the header dictionary so a corrupt length field cannot
// force a huge allocation.
const maxHeaderLen = 1 << 20

var (
	descrRe   = regexp.MustCompile(`['"]descr['"]\s*:\s*['"]([^'"]+)['"]`)
	fortranRe = regexp.MustCompile(`['"]fortran_order['"]\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`['"]shape['"]\s*:\s*\(([^)]*)\)`)
)

type dtype struct {
	order binary.ByteOrder
	kind  byte
	size  int
}

// ReadFile decodes the .npy file at path.
func ReadFile(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening array file: %w", err)
	}
	defer f.Close()

	arr, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return arr, nil
}

// Decode reads a NumPy .npy stream (format versions 1 to 3) into an Array.
// Floating point, signed and unsigned integer, and boolean dtypes of either
// byte order are converted to float64. Fortran-ordered arrays are rejected.
func Decode(r io.Reader) (*Array, error) {
	var pre [8]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, fmt.Errorf("reading npy preamble: %w", err)
	}
	if !bytes.Equal(pre[:6], npyMagic) {
		return nil, ErrNotNPY
	}

	var headerLen int
	switch major := pre[6]; major {
	case 1:
		var b [2]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("reading npy header length: %w", err)
		}
		headerLen = int(binary.LittleEndian.Uint16(b[:]))
	case 2, 3:
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("reading npy header length: %w", err)
		}
		headerLen = int(binary.LittleEndian.Uint32(b[:]))
	default:
		return nil, fmt.Errorf("unsupported npy format version %d.%d", major, pre[7])
	}
	if headerLen > maxHeaderLen {
		return nil, fmt.Errorf("npy header length %d exceeds limit", headerLen)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("reading npy header: %w", err)
	}

	dt, shape, err := parseHeader(string(header))
	if err != nil {
		return nil, err
	}

	n := 1
	for _, d := range shape {
		if d > 0 && n > math.MaxInt/d {
			return nil, fmt.Errorf("npy shape %v overflows element count", shape)
		}
		n *= d
	}
	if n > math.MaxInt/dt.size {
		return nil, fmt.Errorf("npy shape %v overflows data size", shape)
	}
	want := int64(n) * int64(dt.size)
	raw, err := io.ReadAll(io.LimitReader(r, want))
	if err != nil {
		return nil, fmt.Errorf("reading npy data: %w", err)
	}
	if int64(len(raw)) != want {
		return nil, fmt.Errorf("npy data truncated: want %d bytes, got %d", want, len(raw))
	}

	data := make([]float64, n)
	for i := range data {
		data[i] = dt.decode(raw[i*dt.size : (i+1)*dt.size])
	}
	return &Array{Shape: shape, Data: data, DType: string(dt.kind) + strconv.Itoa(dt.size)}, nil
}

// Encode writes a as a version 1.0 .npy stream of little-endian float64.
func Encode(w io.Writer, a *Array) error {
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': %s, }", formatShape(a.Shape))
	// magic(6) + version(2) + length(2) + header + newline, padded to 64.
	total := 10 + len(header) + 1
	header += strings.Repeat(" ", (64-total%64)%64) + "\n"

	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for _, v := range a.Data {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing npy: %w", err)
	}
	return nil
}

// WriteFile encodes a into a new .npy file at path.
func WriteFile(path string, a *Array) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating array file: %w", err)
	}
	if err := Encode(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseHeader(header string) (dtype, []int, error) {
	m := descrRe.FindStringSubmatch(header)
	if m == nil {
		return dtype{}, nil, fmt.Errorf("npy header has no descr: %q", header)
	}
	dt, err := parseDescr(m[1])
	if err != nil {
		return dtype{}, nil, err
	}

	if f := fortranRe.FindStringSubmatch(header); f != nil && f[1] == "True" {
		return dtype{}, nil, fmt.Errorf("fortran-ordered npy arrays are not supported")
	}

	s := shapeRe.FindStringSubmatch(header)
	if s == nil {
		return dtype{}, nil, fmt.Errorf("npy header has no shape: %q", header)
	}
	shape := []int{}
	for _, part := range strings.Split(s[1], ",") {
		part = strings.TrimSuffix(strings.TrimSpace(part), "L")
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return dtype{}, nil, fmt.Errorf("invalid npy shape %q", s[1])
		}
		shape = append(shape, d)
	}
	return dt, shape, nil
}

func parseDescr(descr string) (dtype, error) {
	if len(descr) < 3 {
		return dtype{}, fmt.Errorf("unsupported npy dtype %q", descr)
	}
	var dt dtype
	switch descr[0] {
	case '<', '|', '=':
		dt.order = binary.LittleEndian
	case '>':
		dt.order = binary.BigEndian
	default:
		return dtype{}, fmt.Errorf("unsupported npy byte order in %q", descr)
	}
	dt.kind = descr[1]
	size, err := strconv.Atoi(descr[2:])
	if err != nil {
		return dtype{}, fmt.Errorf("unsupported npy dtype %q", descr)
	}
	dt.size = size

	ok := false
	switch dt.kind {
	case 'f':
		ok = size == 2 || size == 4 || size == 8
	case 'i', 'u':
		ok = size == 1 || size == 2 || size == 4 || size == 8
	case 'b':
		ok = size == 1
	}
	if !ok {
		return dtype{}, fmt.Errorf("unsupported npy dtype %q", descr)
	}
	return dt, nil
}

func (dt dtype) decode(b []byte) float64 {
	switch dt.kind {
	case 'f':
		switch dt.size {
		case 2:
			return halfToFloat(dt.order.Uint16(b))
		case 4:
			return float64(math.Float32frombits(dt.order.Uint32(b)))
		default:
			return math.Float64frombits(dt.order.Uint64(b))
		}
	case 'i':
		switch dt.size {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(dt.order.Uint16(b)))
		case 4:
			return float64(int32(dt.order.Uint32(b)))
		default:
			return float64(int64(dt.order.Uint64(b)))
		}
	case 'u':
		switch dt.size {
		case 1:
			return float64(b[0])
		case 2:
			return float64(dt.order.Uint16(b))
		case 4:
			return float64(dt.order.Uint32(b))
		default:
			return float64(dt.order.Uint64(b))
		}
	default: // 'b'
		if b[0] != 0 {
			return 1
		}
		return 0
	}
}

// halfToFloat converts an IEEE 754 binary16 value.
func halfToFloat(h uint16) float64 {
	exp := int(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	var f float64
	switch exp {
	case 0:
		f = math.Ldexp(float64(frac), -24)
	case 0x1f:
		if frac == 0 {
			f = math.Inf(1)
		} else {
			f = math.NaN()
		}
	default:
		f = math.Ldexp(float64(frac|0x400), exp-25)
	}
	if h&0x8000 != 0 {
		f = -f
	}
	return f
}
