package tui

// MsgLoginResult carries the outcome of a login attempt back into the
// form. A nil Err means the session is established.
type MsgLoginResult struct{ Err error }
