package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// The wire form mirrors the persisted game record: lower-case colour, kind
// and status names, squares as [file, rank] pairs and a null winner when the
// game has none.

func (c Color) MarshalJSON() ([]byte, error) {
	if c == NoColor {
		return []byte("null"), nil
	}
	return json.Marshal(strings.ToLower(c.String()))
}

func (c *Color) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*c = NoColor
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "white", "w":
		*c = White
	case "black", "b":
		*c = Black
	case "", "none":
		*c = NoColor
	default:
		return fmt.Errorf("unknown color %q", s)
	}
	return nil
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("unknown piece kind %d", int8(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for i, n := range kindNames {
		if n != "" && n == name {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece kind %q", name)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", name)
}

func (s Square) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.File, s.Rank})
}

func (s *Square) UnmarshalJSON(b []byte) error {
	var pair []int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("square must be a [file, rank] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("square must be a [file, rank] pair, got %d elements", len(pair))
	}
	s.File, s.Rank = pair[0], pair[1]
	return nil
}
