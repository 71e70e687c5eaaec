// Package connection provides the HTTP client used by statehttpd-cli.
//
// Requests authenticate with the stored session cookie when one exists
// and fall back to Basic credentials. Sessions issued by the server are
// written back to the session file.
package connection
