package domforge

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/domforge/domforge/internal/logging"
	"github.com/domforge/domforge/internal/sandbox"
)

// ChannelJSDOMError is the console channel carrying implementation-
// originated failures: resource load errors, unhandled script exceptions,
// and calls to unimplemented capability stubs. Page-authored console calls
// never use it.
const ChannelJSDOMError = sandbox.ChannelJSDOMError

// Channels recognized by the virtual console, mirroring the standard
// console methods plus the jsdomError channel.
var consoleChannels = []string{
	"error", "warn", "info", "log", "debug", "dir", "trace", "assert",
	ChannelJSDOMError,
}

// ConsoleListener receives the arguments of a single console event.
type ConsoleListener func(args ...any)

// VirtualConsole routes console events to registered listeners. Emission is
// synchronous and ordered; an event on a channel with no listeners is a
// silent no-op, never buffered.
//
// Listeners registered before construction begins observe every event
// emitted during parsing and initial setup. Listeners registered afterwards
// may miss early events, because construction can emit synchronously while
// it parses.
type VirtualConsole struct {
	mu        sync.RWMutex
	listeners map[string][]ConsoleListener
}

// NewVirtualConsole creates a console with no listeners.
func NewVirtualConsole() *VirtualConsole {
	return &VirtualConsole{listeners: make(map[string][]ConsoleListener)}
}

// On registers a listener for a channel. Multiple listeners per channel are
// invoked in registration order. Returns the console for chaining.
func (vc *VirtualConsole) On(channel string, fn ConsoleListener) *VirtualConsole {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.listeners[channel] = append(vc.listeners[channel], fn)
	return vc
}

// Emit synchronously invokes every listener registered for the channel.
func (vc *VirtualConsole) Emit(channel string, args ...any) {
	vc.mu.RLock()
	fns := vc.listeners[channel]
	vc.mu.RUnlock()
	for _, fn := range fns {
		fn(args...)
	}
}

// SendToOptions adjusts SendTo behavior.
type SendToOptions struct {
	// OmitJSDOMErrors drops jsdomError events instead of forwarding them to
	// the target's error level.
	OmitJSDOMErrors bool
}

// SendTo registers, for every recognized channel, a listener forwarding to
// the corresponding level on the target logger. jsdomError events are
// forwarded at error level with synthesized message text unless omitted.
func (vc *VirtualConsole) SendTo(target *zap.Logger, opts *SendToOptions) *VirtualConsole {
	if opts == nil {
		opts = &SendToOptions{}
	}
	for _, ch := range consoleChannels {
		channel := ch
		if channel == ChannelJSDOMError {
			if opts.OmitJSDOMErrors {
				continue
			}
			vc.On(channel, func(args ...any) {
				target.Error("jsdomError: " + joinArgs(args))
			})
			continue
		}
		vc.On(channel, func(args ...any) {
			msg := joinArgs(args)
			switch channel {
			case "error", "assert":
				target.Error(msg)
			case "warn":
				target.Warn(msg)
			case "info", "log":
				target.Info(msg)
			default:
				target.Debug(msg)
			}
		})
	}
	return vc
}

// defaultVirtualConsole is the console used when the caller supplies none:
// pre-wired to the process logger.
func defaultVirtualConsole() *VirtualConsole {
	return NewVirtualConsole().SendTo(logging.NewDefault().Logger, nil)
}

func joinArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return strings.Join(parts, " ")
}
