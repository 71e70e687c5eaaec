// Package tlsroots loads TLS material for the server and its clients.
//
//   - server.go: certificate/key loading; failure is reported, never
//     downgraded to plaintext
//   - roots.go: CA pools for clients that talk to a self-signed server
//   - watcher.go: hot reload of the server pair on file change
package tlsroots
