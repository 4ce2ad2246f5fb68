// Package board implements the authenticated core of a small club message
// board: credential storage, password verification, server-side sessions,
// a login gate, and the one-time passcode verification that unlocks
// membership.
//
// Sessions:
//   - Sessions are opaque server-side records. The cookie handed to clients
//     carries only a random token plus an HMAC signature; nothing in it can
//     be decoded. SessionManager restores the identity with a fresh user
//     lookup on every request, so account changes show up without re-login.
//
// Verification:
//   - Verifier compares a submitted key against a single process-wide
//     passcode injected at construction. A match flips the user's verified
//     flag exactly once; repeat attempts are accepted as no-ops.
//
// Presentation is an external collaborator: BoardController returns
// redirects and plain data structures, never markup.
package board
