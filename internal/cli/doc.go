// Package cli holds the presentation helpers shared by the disqusctl
// commands.
//
// Errors that carry an exit code (AuthRequiredError, AuthFailedError) print
// actionable guidance. Describe turns client errors into one-line summaries
// and classifies transport failures with ClassifyConnectionError so users
// can tell DNS, TLS, timeout and refused connections apart.
//
// Output helpers print indented JSON, run a spinner that stays silent under
// --quiet, and format token lifetimes.
package cli
