// Package broadcast implements the operator-initiated fan-out of one
// message to a resolved recipient set: selector resolution against the
// user directory, optional per-recipient template substitution, strictly
// sequential delivery through the provider client, and a push stream of
// progress events terminated by a single result.
package broadcast
