// Package buildinfo provides build-time version information.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/statehttpd/internal/infra/buildinfo.Version=v1.0.0"
//
// Commit and GoVersion fall back to the module build info embedded by the
// toolchain when not injected.
package buildinfo
