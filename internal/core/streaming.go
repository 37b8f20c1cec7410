package core

// streaming.go holds the readers that sit between an uploaded file and the
// CSV decoder. Delimited files are decoded row by row, so every transform
// here works on a bounded buffer:
//
//   - BOM removal (golang.org/x/text BOMOverride)
//   - UTF-8 repair: invalid bytes become '?'
//   - a byte limit shared with the spreadsheet decoders

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// utf8Repairer replaces invalid UTF-8 bytes with '?' on the fly. Sequences
// split across reads are carried over in pending.
type utf8Repairer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Repairer(r io.Reader) *utf8Repairer {
	return &utf8Repairer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Repairer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}
	return s.repair(p[:n], err == io.EOF), err
}

// repair rewrites data in place and returns the number of usable bytes.
// Unless atEOF, a trailing partial rune is held back for the next Read.
func (s *utf8Repairer) repair(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if t := partialTail(data); t > 0 {
				s.pending = append(s.pending, data[len(data)-t:]...)
				return len(data) - t
			}
		}
		return len(data)
	}

	w := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if !atEOF && r == utf8.RuneError && !utf8.FullRune(data[i:]) {
			s.pending = append(s.pending, data[i:]...)
			return w
		}
		if r == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			i++
			continue
		}
		copy(data[w:], data[i:i+size])
		w += size
		i += size
	}
	return w
}

// partialTail returns how many trailing bytes of valid data start a rune
// that is not complete yet.
func partialTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if utf8.RuneStart(b) {
			if utf8.FullRune(data[len(data)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}

// limitReader fails with ErrFileTooLarge once more than max bytes were read.
// A max of 0 or less disables the limit.
type limitReader struct {
	r    io.Reader
	max  int64
	read int64
}

func newLimitReader(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &limitReader{r: r, max: max}
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, l.max)
	}
	return n, err
}

// textSource wraps a delimited upload: size limit, then BOM removal, then
// UTF-8 repair.
func textSource(r io.Reader, maxBytes int64) io.Reader {
	r = newLimitReader(r, maxBytes)
	r = transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	return newUTF8Repairer(r)
}

// readAllLimited buffers a spreadsheet upload, bounded by maxBytes.
func readAllLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(newLimitReader(r, maxBytes))
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
