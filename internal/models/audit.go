package models

import "time"

type AuditLog struct {
	ID          int64     `json:"id"`
	ActorUserID *int64    `json:"actor_user_id,omitempty"`
	ActorType   string    `json:"actor_type"` // user/admin/system/queue
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    *string   `json:"entity_id,omitempty"`
	Meta        any       `json:"meta,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
