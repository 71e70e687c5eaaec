// Package shutdown stops the daemon in order: the listener first, then
// the session flush, then storage and log sinks.
package shutdown
