// Package session keeps the shell's single authenticated session.
//
// A Manager owns the auth state and everything that has to stay in step
// with it: the persisted copy in session storage, the activity subscription
// that extends the deadline on user input, and the one expiry timer that
// logs the user out when the deadline passes. Read-only predicates
// (IsSecureSession, SecureHeaders, Phase) are exposed through View and
// consumed by Guard.
//
// Every mutation runs under the Manager's mutex, so an activity event, a
// timer callback and the tail of an Authenticate call never interleave.
// Notices, redirects and listeners run after the mutex is released.
package session
