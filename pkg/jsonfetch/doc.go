// Package jsonfetch issues single HTTP GET requests for JSON documents and
// delivers each outcome through a Future.
//
// A Future settles exactly once. It resolves when the server answers with
// status 200 and rejects otherwise, either with a *StatusError (the request
// completed with another status) or a *TransportError (the request never
// completed). In both rejection cases Wait still hands back the *Response so
// callers can inspect what came over the wire; transport failures carry a
// zero status code.
//
// The fetcher adds no headers, timeouts, retries or caching: every call is one
// request.
package jsonfetch
