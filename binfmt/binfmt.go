// Package binfmt reads & writes the fixed shape records used by the project
// files: fixed width integers, NUL terminated strings and raw blobs whose
// length the caller already knows.
//
// Nothing here is self describing. There are no version tags or length
// prefixes, a record is read back with exactly the calls (or format) it was
// written with.
package binfmt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Order is the byte order of every multi byte field.
var Order = binary.LittleEndian

// Writer writes primitives to an underlying stream. The first error is kept
// and every later call becomes a no-op.
type Writer struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(p)
}

func (w *Writer) U8(v uint8) {
	w.buf[0] = v
	w.write(w.buf[:1])
}

func (w *Writer) U16(v uint16) {
	Order.PutUint16(w.buf[:2], v)
	w.write(w.buf[:2])
}

func (w *Writer) U32(v uint32) {
	Order.PutUint32(w.buf[:4], v)
	w.write(w.buf[:4])
}

func (w *Writer) U64(v uint64) {
	Order.PutUint64(w.buf[:8], v)
	w.write(w.buf[:8])
}

func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// Bool writes a single byte, 1 for true.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

// String writes s followed by a NUL. s must not contain a NUL itself.
func (w *Writer) String(s string) {
	w.write([]byte(s))
	w.U8(0)
}

// Bytes writes p verbatim.
func (w *Writer) Bytes(p []byte) {
	w.write(p)
}

// Reader reads primitives from an underlying stream.
//
// Reading past the end of the stream is not fatal: the read yields the zero
// value (or the string read so far) and Err reports io.ErrUnexpectedEOF.
type Reader struct {
	r   *bufio.Reader
	buf [8]byte
	err error
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(err error) {
	if r.err != nil {
		return
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	r.err = err
}

// read fills p. If p can't be filled completely it is zeroed, so a value cut
// short by the end of the stream reads as 0.
func (r *Reader) read(p []byte) {
	if r.err == nil {
		_, err := io.ReadFull(r.r, p)
		if err == nil {
			return
		}
		r.fail(err)
	}
	for i := range p {
		p[i] = 0
	}
}

func (r *Reader) U8() uint8 {
	r.read(r.buf[:1])
	return r.buf[0]
}

func (r *Reader) U16() uint16 {
	r.read(r.buf[:2])
	return Order.Uint16(r.buf[:2])
}

func (r *Reader) U32() uint32 {
	r.read(r.buf[:4])
	return Order.Uint32(r.buf[:4])
}

func (r *Reader) U64() uint64 {
	r.read(r.buf[:8])
	return Order.Uint64(r.buf[:8])
}

func (r *Reader) I32() int32 {
	return int32(r.U32())
}

// Bool reads one byte, anything but 0 is true.
func (r *Reader) Bool() bool {
	return r.U8() != 0
}

// String reads up to (and consumes) the next NUL. End of stream ends the
// string the same way a NUL would.
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	s, err := r.r.ReadString(0)
	if err != nil {
		r.fail(err)
		return s
	}
	return s[:len(s)-1]
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) []byte {
	p := make([]byte, n)
	r.read(p)
	return p
}

// Write writes args to w according to format.
//
// Codes are %8i, %16i, %32i, %64i (integers of any Go integer type), %s
// (string) and %b (a []byte followed by its length as an int). Anything else
// in the format, such as spaces or commas, is ignored.
func Write(w io.Writer, format string, args ...interface{}) error {
	bw := NewWriter(w)
	err := walk(format, func(code string) error {
		if len(args) == 0 {
			return fmt.Errorf("binfmt: missing argument for %s", code)
		}
		arg := args[0]
		args = args[1:]

		switch code {
		case "%8i", "%16i", "%32i", "%64i":
			v, err := toUint64(arg)
			if err != nil {
				return err
			}
			switch code {
			case "%8i":
				bw.U8(uint8(v))
			case "%16i":
				bw.U16(uint16(v))
			case "%32i":
				bw.U32(uint32(v))
			default:
				bw.U64(v)
			}
		case "%s":
			s, ok := arg.(string)
			if !ok {
				return fmt.Errorf("binfmt: %s wants string, got %T", code, arg)
			}
			bw.String(s)
		case "%b":
			p, ok := arg.([]byte)
			if !ok || len(args) == 0 {
				return fmt.Errorf("binfmt: %s wants []byte and a size", code)
			}
			n, ok := args[0].(int)
			args = args[1:]
			if !ok || n > len(p) {
				return fmt.Errorf("binfmt: bad size for %s", code)
			}
			bw.Bytes(p[:n])
		}
		return bw.Err()
	})
	if err != nil {
		return err
	}
	return bw.Err()
}

// Read reads into the pointers in args according to format (see Write).
// %b takes a []byte that is filled completely and an int size that must match.
func Read(r *Reader, format string, args ...interface{}) error {
	err := walk(format, func(code string) error {
		if len(args) == 0 {
			return fmt.Errorf("binfmt: missing argument for %s", code)
		}
		arg := args[0]
		args = args[1:]

		switch code {
		case "%8i":
			return setInt(arg, uint64(r.U8()), 8)
		case "%16i":
			return setInt(arg, uint64(r.U16()), 16)
		case "%32i":
			return setInt(arg, uint64(r.U32()), 32)
		case "%64i":
			return setInt(arg, r.U64(), 64)
		case "%s":
			s, ok := arg.(*string)
			if !ok {
				return fmt.Errorf("binfmt: %s wants *string, got %T", code, arg)
			}
			*s = r.String()
		case "%b":
			p, ok := arg.([]byte)
			if !ok || len(args) == 0 {
				return fmt.Errorf("binfmt: %s wants []byte and a size", code)
			}
			n, ok := args[0].(int)
			args = args[1:]
			if !ok || n != len(p) {
				return fmt.Errorf("binfmt: bad size for %s", code)
			}
			r.read(p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return r.Err()
}

// walk calls fn for every field code in format, in order.
func walk(format string, fn func(code string) error) error {
	for len(format) > 0 {
		matched := ""
		for _, code := range []string{"%8i", "%16i", "%32i", "%64i", "%s", "%b"} {
			if strings.HasPrefix(format, code) {
				matched = code
				break
			}
		}
		if matched == "" {
			format = format[1:]
			continue
		}
		if err := fn(matched); err != nil {
			return err
		}
		format = format[len(matched):]
	}
	return nil
}

func toUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case int:
		return uint64(n), nil
	case int8:
		return uint64(n), nil
	case int16:
		return uint64(n), nil
	case int32:
		return uint64(n), nil
	case int64:
		return uint64(n), nil
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("binfmt: not an integer: %T", v)
}

// setInt stores a field of the given bit width in dst. Signed destinations
// are sign extended from that width.
func setInt(dst interface{}, v uint64, bits uint) error {
	signed := int64(v<<(64-bits)) >> (64 - bits)
	switch p := dst.(type) {
	case *int:
		*p = int(signed)
	case *int8:
		*p = int8(signed)
	case *int16:
		*p = int16(signed)
	case *int32:
		*p = int32(signed)
	case *int64:
		*p = signed
	case *uint:
		*p = uint(v)
	case *uint8:
		*p = uint8(v)
	case *uint16:
		*p = uint16(v)
	case *uint32:
		*p = uint32(v)
	case *uint64:
		*p = v
	case *bool:
		*p = v != 0
	default:
		return fmt.Errorf("binfmt: cannot store integer in %T", dst)
	}
	return nil
}
