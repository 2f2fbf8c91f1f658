// Package server provides HTTP routing and middleware for the web app.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Middleware
//
//   - [RequestIDMiddleware] : tags requests with an X-Request-ID
//   - [LoggingMiddleware] : one log line per request
//   - [RecoverMiddleware] : converts panics into 500 responses
//   - [RateLimitMiddleware] : per-client token buckets backed by golang.org/x/time/rate
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// [Health] is the only one in this package.
package server
