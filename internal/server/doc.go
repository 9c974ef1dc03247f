// Package server provides HTTP routing, middleware and handlers for the picker service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// method-qualified [http.ServeMux] patterns, so handlers can read path values and the matched
// pattern from the request.
//
// [Middleware] wraps handlers in reverse order (last added executes first). [Logging] records
// every request in the HTTP latency histogram; [CORS] wraps the whole router so preflight
// requests are answered before routing.
//
// # Handlers
//
// Custom handlers implement the [Handler] interface, which adds the route patterns they serve:
//
//   - [AuthHandler]: browser login via /auth/start and /auth/callback. The state token is bound
//     to the browser with a signed cookie in addition to the flow's pending map.
//   - [PickerHandler]: create, poll and resolve picker sessions and import selected items.
//     Requests that need a linked Google account answer 401 with auth_required and auth_url.
//   - [FilesHandler]: imported files under /uploads, media statistics and /healthz.
//   - [CallbackHandler]: one-shot callback for logins started from the terminal. It runs on a
//     temporary server and shuts down after the first callback.
//
// [NewAPI] assembles all of them with the Prometheus /metrics endpoint.
package server
