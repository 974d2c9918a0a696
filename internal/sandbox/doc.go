// Package sandbox wraps goja with the capability policy a document
// environment enforces at its trust boundary.
//
// The execution mode is decided once, before any content is parsed, and maps
// to a fixed capability set: whether language built-ins exist on the window
// at all, whether the handle exposes an evaluation entry point, and whether
// embedded <script> elements and inline handler attributes execute as
// document content. Script faults never propagate to the construction
// caller; they are reported on the console's jsdomError channel.
package sandbox
