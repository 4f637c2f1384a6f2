package streaming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"family-media/internal/storage"
)

// ErrRangeNotSatisfiable is returned by ParseRange for a well-formed span
// that does not fit inside the object.
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// ParseRange interprets a single-span "bytes=" Range header against an
// object of the given size. It returns nil with a nil error when the
// header is absent, malformed or asks for several spans; such requests are
// answered with the whole object.
//
// Accepted forms: start-end, start- (to the last byte) and -N (the last N
// bytes). An end at or past size is not clamped: it is unsatisfiable.
func ParseRange(header string, size int64) (*storage.ByteRange, error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || spec == "" || strings.Contains(spec, ",") {
		return nil, nil
	}

	startStr, endStr, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return nil, nil
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n < 0 {
			return nil, nil
		}
		if n == 0 || size == 0 {
			return nil, unsatisfiable(header, size)
		}
		if n > size {
			n = size
		}
		return &storage.ByteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, nil
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return nil, nil
		}
	}

	if start >= size || end >= size || start > end {
		return nil, unsatisfiable(header, size)
	}
	return &storage.ByteRange{Start: start, End: end}, nil
}

func unsatisfiable(header string, size int64) error {
	return fmt.Errorf("%q for %d bytes: %w", header, size, ErrRangeNotSatisfiable)
}

// ContentRange renders the Content-Range header for a served span.
func ContentRange(rng storage.ByteRange, size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", rng.Start, rng.End, size)
}

// UnsatisfiedRange renders the Content-Range header of a 416 response.
func UnsatisfiedRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}
