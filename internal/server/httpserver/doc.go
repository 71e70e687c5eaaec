// Package httpserver is the request-dispatch and authentication core.
//
// A Server owns two ordered endpoint registries (authenticated and
// unauthenticated), an alias table, static directories, a mime table and
// the session store. net/http delivers each request to ServeHTTP, which
// drives the transport contract:
//
//	conn, sig := s.Begin(w, r) // alias → static → unauth → auth
//	for chunk := range body {  // only when sig == SignalBody
//	    s.Feed(conn, chunk)
//	}
//	s.Ready(conn)              // CreateStreamResponse or PostComplete
//	s.Complete(conn)           // always, exactly once
//
// Endpoints implement the Endpoint interface; the common variants live in
// the endpoint subpackage.
package httpserver
