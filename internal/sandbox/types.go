package sandbox

import "context"

// Emitter delivers console events. Implemented by the environment's virtual
// console; emissions with no listeners are silent no-ops.
type Emitter interface {
	Emit(channel string, args ...any)
}

// Fetcher retrieves the text of an external in-document resource. A nil
// Fetcher disables external script loading.
type Fetcher interface {
	FetchScript(ctx context.Context, url, userAgent, referrer string) (string, error)
}

// Console channel used for implementation-originated failures.
const ChannelJSDOMError = "jsdomError"
