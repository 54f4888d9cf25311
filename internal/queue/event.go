// Package queue defines the messages published to the broker and the
// background consumer that turns them into an audit trail.
package queue

// MemberRegisteredEvent is published after a registration commits. It
// contains enough for downstream consumers (audit log, welcome mail,
// analytics) without querying the primary database.
type MemberRegisteredEvent struct {
	MemberID     uint64 `json:"member_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	RegisteredAt string `json:"registered_at"` // RFC3339 UTC
}
