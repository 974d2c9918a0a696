// Package loader fetches bytes for document environments.
//
// It serves two callers: the network-sourced construction path, where a
// failed fetch is fatal to the construction call, and in-document resources
// (external scripts), where a failure is reported and the environment keeps
// going. The loader itself does not make that distinction; it returns the
// terminal response after redirects and lets the caller decide.
//
// Outbound requests carry the environment's User-Agent, the configured
// Referer on the initial request, and cookies from the shared jar. Set-Cookie
// headers on responses are written back into the jar scoped to the response
// URL. Connection handling mirrors browser behavior: a bounded pool with
// keep-alive and a multi-minute idle timeout.
package loader
