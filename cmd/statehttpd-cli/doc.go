// Package main provides the entry point for statehttpd-cli.
//
// The CLI talks to a statehttpd server over its REST surface:
//
//	statehttpd-cli --user admin --password secret login
//	statehttpd-cli get --field build/version=version /system/status
//	statehttpd-cli post /session/invalidate
//	statehttpd-cli status -o json
package main
