// Package endpoint provides the standard httpserver.Endpoint variants:
//
//   - Tracked: one fixed URI serving a value or generator, GET or POST
//     with a summarization document
//   - UnauthTracked: Tracked without cookie refresh, for the
//     unauthenticated registry
//   - PathTracked: matching and generation over path segments
//   - Post, PathPost: POST-only handlers receiving the parsed body
//
// The URI suffix selects the output format (json, prettyjson, ekjson,
// itjson, yaml) and is ignored when matching.
package endpoint
