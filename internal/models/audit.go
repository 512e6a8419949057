package models

import "time"

// AuditEntry represents one audit log row. Actor is a username rather
// than a foreign key so entries survive account deletion and so
// unauthenticated actions can be recorded as "anonymous".
type AuditEntry struct {
	ID         int       `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"` // create, update, delete, login
	TargetID   int       `json:"target_id"`
	TargetName string    `json:"target_name"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActorAnonymous is recorded when an action was performed without
// authentication, such as self-registration.
const ActorAnonymous = "anonymous"
