// Package server provides HTTP routing, middleware, sessions and sign-in handling for the web app
// and the CLI login command.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns.
//
// # Route Guard
//
// [Guard.Decide] is a pure function of the request path and an authentication check.
// Paths under [PublicPaths] always pass and never trigger a session lookup. Other paths
// without a session redirect to /login?from=<path>; a signed-in visit to /login redirects home.
//
// # Sessions
//
// [SessionManager] signs a cookie holding only the session id with gorilla/securecookie.
// The session itself (tokens, expiry) lives in the store. Its middleware resolves the
// session lazily, at most once per request.
//
// # Sign-in
//
// [AuthHandler] serves /api/auth/{signin,callback,signout,session} for the browser.
// [OAuthHandler] handles a single callback for the terminal login flow, where a temporary
// server listens on the redirect address until the token arrives.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
