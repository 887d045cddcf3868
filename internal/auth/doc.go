// Package auth provides authentication for operator endpoints.
//
// Operators log in with a username and bcrypt-hashed password and receive
// an HS256-signed JWT. The RequireOperator middleware verifies the token,
// resolves the operator from storage, and injects an OperatorContext into
// the request context for handlers to consume. Requests that fail any of
// these steps are rejected before reaching the handler.
package auth
