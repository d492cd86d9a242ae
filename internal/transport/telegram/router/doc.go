// Package router turns Telegram text updates into command invocations.
//
// Commands live in a flat lookup table keyed by name and alias. Each
// invocation runs on a bounded worker pool behind a middleware chain that
// recovers panics, logs, applies a timeout and enforces access.
package router
