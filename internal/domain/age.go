package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Age is a single year of age. AgePlus100 stands for "100 and above".
type Age int

const (
	// AgePlus100 is the open-ended top age, always ordered last.
	AgePlus100 Age = 100
	// AgeCount is the number of single-year ages tracked (0..100).
	AgeCount = int(AgePlus100) + 1
)

// Valid reports whether a is within 0..100.
func (a Age) Valid() bool { return a >= 0 && a <= AgePlus100 }

func (a Age) String() string {
	if a == AgePlus100 {
		return "100+"
	}
	return strconv.Itoa(int(a))
}

// ParseAge accepts "0".."100", and "100+" for the open-ended top age.
func ParseAge(s string) (Age, error) {
	s = strings.TrimSpace(s)
	if s == "100+" {
		return AgePlus100, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	a := Age(n)
	if !a.Valid() {
		return 0, fmt.Errorf("age %d out of range 0-100", n)
	}
	return a, nil
}

// AgeRange is an inclusive range of ages, written "20-64" or "65-100+".
type AgeRange struct {
	From Age
	To   Age
}

// ParseAgeRange parses "<from>-<to>".
func ParseAgeRange(s string) (AgeRange, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return AgeRange{}, fmt.Errorf("invalid age range %q: expected <from>-<to>", s)
	}
	f, err := ParseAge(from)
	if err != nil {
		return AgeRange{}, fmt.Errorf("invalid age range %q: %w", s, err)
	}
	t, err := ParseAge(to)
	if err != nil {
		return AgeRange{}, fmt.Errorf("invalid age range %q: %w", s, err)
	}
	if t < f {
		return AgeRange{}, fmt.Errorf("invalid age range %q: end before start", s)
	}
	return AgeRange{From: f, To: t}, nil
}

// Contains reports whether a lies within the range.
func (r AgeRange) Contains(a Age) bool { return a >= r.From && a <= r.To }

// Overlaps reports whether the two ranges share at least one age.
func (r AgeRange) Overlaps(o AgeRange) bool { return r.From <= o.To && o.From <= r.To }

// IsZero reports whether the range was never set.
func (r AgeRange) IsZero() bool { return r.From == 0 && r.To == 0 }

func (r AgeRange) String() string { return r.From.String() + "-" + r.To.String() }

// MarshalText implements encoding.TextMarshaler.
func (r AgeRange) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *AgeRange) UnmarshalText(text []byte) error {
	parsed, err := ParseAgeRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
