// Package handler provides the built-in endpoints of statehttpd.
//
//   - session.go: session probes, login check and logout
//   - status.go: health, system status and metrics exposition
//
// Endpoints are registered on an httpserver.Server with Register.
package handler
