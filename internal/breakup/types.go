package breakup

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParameter is wrapped by every constructor or model function that
// rejects a physically meaningless input (non-positive mass, radius, length,
// a confidence level outside (0,1), ...). Check it with errors.Is.
var ErrInvalidParameter = errors.New("invalid parameter")

// Size regime boundaries in metres. Medium is closed on both ends.
const (
	SmallUpperBound = 0.08
	LargeLowerBound = 0.11
)

// BreakupType selects the size and velocity distribution family.
type BreakupType int

const (
	Collision BreakupType = iota
	Explosion
)

func (b BreakupType) String() string {
	switch b {
	case Collision:
		return "collision"
	case Explosion:
		return "explosion"
	default:
		return fmt.Sprintf("BreakupType(%d)", int(b))
	}
}

// ParseBreakupType accepts "collision" or "explosion" (case-insensitive).
func ParseBreakupType(s string) (BreakupType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "collision", "":
		return Collision, nil
	case "explosion":
		return Explosion, nil
	default:
		return 0, fmt.Errorf("%w: unknown breakup type %q", ErrInvalidParameter, s)
	}
}

// FragmentType selects the area-to-mass mixture family used for fragments
// larger than 11 cm.
type FragmentType int

const (
	UpperStage FragmentType = iota
	Spacecraft
)

func (f FragmentType) String() string {
	switch f {
	case UpperStage:
		return "upper_stage"
	case Spacecraft:
		return "spacecraft"
	default:
		return fmt.Sprintf("FragmentType(%d)", int(f))
	}
}

// ParseFragmentType accepts "upper_stage" or "spacecraft".
func ParseFragmentType(s string) (FragmentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upper_stage", "upper-stage", "":
		return UpperStage, nil
	case "spacecraft":
		return Spacecraft, nil
	default:
		return 0, fmt.Errorf("%w: unknown fragment type %q", ErrInvalidParameter, s)
	}
}
