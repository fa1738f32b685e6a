package models

import (
	"fmt"
	"strings"
)

// ExerciseType is the exercise style of an option contract
type ExerciseType int

const (
	ExerciseAmerican ExerciseType = iota + 1
	ExerciseEuropean
	ExerciseBermudan
	ExerciseAsian
)

var exerciseNames = map[ExerciseType]string{
	ExerciseAmerican: "american",
	ExerciseEuropean: "european",
	ExerciseBermudan: "bermudan",
	ExerciseAsian:    "asian",
}

func (e ExerciseType) String() string {
	if name, ok := exerciseNames[e]; ok {
		return name
	}
	return fmt.Sprintf("exercise(%d)", int(e))
}

// Valid reports whether e is one of the recognised exercise styles
func (e ExerciseType) Valid() bool {
	_, ok := exerciseNames[e]
	return ok
}

// ParseExerciseType parses a case-insensitive exercise style name
func ParseExerciseType(s string) (ExerciseType, error) {
	for e, name := range exerciseNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown exercise type %q", s)
}

func (e ExerciseType) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid exercise type %d", int(e))
	}
	return []byte(e.String()), nil
}

func (e *ExerciseType) UnmarshalText(text []byte) error {
	parsed, err := ParseExerciseType(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// OptionClass distinguishes calls from puts
type OptionClass int

const (
	Call OptionClass = iota + 1
	Put
)

func (c OptionClass) String() string {
	switch c {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Valid reports whether c is Call or Put
func (c OptionClass) Valid() bool {
	return c == Call || c == Put
}

// ParseOptionClass parses "call" or "put", case-insensitively
func ParseOptionClass(s string) (OptionClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	default:
		return 0, fmt.Errorf("unknown option class %q", s)
	}
}

func (c OptionClass) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid option class %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *OptionClass) UnmarshalText(text []byte) error {
	parsed, err := ParseOptionClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TradeSide is the direction of a position. Its numeric value is the sign
// applied to every position-level aggregate.
type TradeSide int

const (
	Long  TradeSide = 1
	Short TradeSide = -1
)

// Value returns +1 for Long and -1 for Short
func (s TradeSide) Value() float64 {
	return float64(s)
}

func (s TradeSide) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Valid reports whether s is Long or Short
func (s TradeSide) Valid() bool {
	return s == Long || s == Short
}

// Opposite returns the other side
func (s TradeSide) Opposite() TradeSide {
	return -s
}

// ParseTradeSide accepts long/short as well as buy/sell
func ParseTradeSide(s string) (TradeSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown trade side %q", s)
	}
}

func (s TradeSide) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid trade side %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *TradeSide) UnmarshalText(text []byte) error {
	parsed, err := ParseTradeSide(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
