// Package ports computes server ports inside a configured safe range.
package ports

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRange is returned for range strings that are not "first-last" with first <= last.
	ErrInvalidRange = errors.New("invalid port range")
	// ErrPortOutOfRange is matched by errors.Is for ports outside the range.
	ErrPortOutOfRange = errors.New("port out of range")
)

// Range is an inclusive port interval.
type Range struct {
	First int
	Last  int
}

func (r Range) String() string { return fmt.Sprintf("%d-%d", r.First, r.Last) }

// Contains reports whether p lies in [First, Last].
func (r Range) Contains(p int) bool { return p >= r.First && p <= r.Last }

// OutOfRangeError reports a computed port outside its range.
type OutOfRangeError struct {
	Port  int
	Range Range
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%d is outside of the acceptable port range: %s", e.Port, e.Range)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrPortOutOfRange }

// IsOutOfRange reports whether err is a port range violation.
func IsOutOfRange(err error) bool { return errors.Is(err, ErrPortOutOfRange) }

// ParseRange parses "first-last".
func ParseRange(s string) (Range, error) {
	first, last, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	f, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}
	l, err := strconv.Atoi(strings.TrimSpace(last))
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}
	if f > l {
		return Range{}, fmt.Errorf("%w: %q: first > last", ErrInvalidRange, s)
	}
	return Range{First: f, Last: l}, nil
}

// NextSafePort returns r.First when after is nil, otherwise *after+1.
// Both after and the result must lie in r.
func NextSafePort(r Range, after *int) (int, error) {
	p := r.First
	if after != nil {
		if !r.Contains(*after) {
			return 0, &OutOfRangeError{Port: *after, Range: r}
		}
		p = *after + 1
	}
	if !r.Contains(p) {
		return 0, &OutOfRangeError{Port: p, Range: r}
	}
	return p, nil
}

// NextSafePortString is NextSafePort over the string forms used in
// environment variables. An empty after means none.
func NextSafePortString(rangeStr, after string) (string, error) {
	r, err := ParseRange(rangeStr)
	if err != nil {
		return "", err
	}
	var ap *int
	if after = strings.TrimSpace(after); after != "" {
		n, err := strconv.Atoi(after)
		if err != nil {
			return "", fmt.Errorf("invalid port %q: %w", after, err)
		}
		ap = &n
	}
	p, err := NextSafePort(r, ap)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(p), nil
}

// FirstFree returns the first port in r that host can bind.
func FirstFree(host string, r Range) (int, error) {
	for p := r.First; p <= r.Last; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %s", r)
}
