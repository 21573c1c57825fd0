package model

import "strings"

// Season selects the seasonal adjustment applied to the F2 layer.
// The zero value is SeasonEquinox.
type Season int

const (
	SeasonEquinox Season = iota
	SeasonWinter
	SeasonSummer
)

// ParseSeason maps a season name onto a Season. Unrecognised names
// resolve to SeasonEquinox.
func ParseSeason(s string) Season {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "winter":
		return SeasonWinter
	case "summer":
		return SeasonSummer
	default:
		return SeasonEquinox
	}
}

func (s Season) String() string {
	switch s {
	case SeasonWinter:
		return "winter"
	case SeasonSummer:
		return "summer"
	default:
		return "equinox"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Season) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Season) UnmarshalText(b []byte) error {
	*s = ParseSeason(string(b))
	return nil
}
