// Package ownership arbitrates exclusive streaming sessions.
//
// A session is owned by at most one identity at a time, and at most one
// session across a ledger may be active. The Arbiter applies activation and
// deactivation through a Ledger, publishes the resulting changes, and runs
// an idle watchdog for sessions claimed by a local streaming identity:
// every accepted stream frame calls Keepalive, and a session that sees no
// frame for the configured timeout is deactivated as if its owner had
// stopped it.
//
// The Ledger is implemented by the stores that hold the session state
// (resource-graph entertainment configurations and legacy groups). It runs
// each decision under its own lock so a transition is atomic with respect
// to topology mutations.
package ownership
