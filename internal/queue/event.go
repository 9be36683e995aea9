// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// SessionQueueName is the durable queue session events are published to.
const SessionQueueName = "auth.session"

// Session event types.
const (
	EventLogin       = "login"
	EventLoginFailed = "login_failed"
	EventRenew       = "renew"
	EventRenewFailed = "renew_failed"
	EventLogout      = "logout"
	EventLogoutAll   = "logout_all"
	EventTokensSwept = "tokens_swept"
)

// SessionEvent is published whenever a session is started, renewed or
// ended. It never contains token material.
type SessionEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id,omitempty"`
	Username   string `json:"username,omitempty"`
	Role       string `json:"role,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Count      int64  `json:"count,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
