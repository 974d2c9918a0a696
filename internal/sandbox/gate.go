package sandbox

import "fmt"

// Mode is the script execution policy, fixed at construction.
type Mode int

const (
	// ModeNone parses scripts as inert markup and installs no language
	// built-ins on the window.
	ModeNone Mode = iota
	// ModeOutsideOnly exposes an evaluation entry point to the handle
	// holder; document content still never executes.
	ModeOutsideOnly
	// ModeDangerously additionally executes embedded <script> elements and
	// inline handler attributes. The only mode that treats document content
	// as code.
	ModeDangerously
)

// Capabilities is the sandbox policy derived from a Mode, consulted once at
// setup.
type Capabilities struct {
	InstallGlobals bool
	AllowEval      bool
	AutoExecute    bool
}

// Capabilities maps the mode to its capability set.
func (m Mode) Capabilities() Capabilities {
	switch m {
	case ModeOutsideOnly:
		return Capabilities{InstallGlobals: true, AllowEval: true}
	case ModeDangerously:
		return Capabilities{InstallGlobals: true, AllowEval: true, AutoExecute: true}
	default:
		return Capabilities{}
	}
}

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeOutsideOnly:
		return "outside-only"
	case ModeDangerously:
		return "dangerously"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts the wire form of a mode. The empty string means none.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "none":
		return ModeNone, nil
	case "outside-only":
		return ModeOutsideOnly, nil
	case "dangerously":
		return ModeDangerously, nil
	default:
		return ModeNone, fmt.Errorf("unknown script execution mode %q", s)
	}
}
