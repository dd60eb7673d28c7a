package models

import (
	"time"

	"github.com/google/uuid"
)

// Capability names an action a grant allows on one object.
type Capability string

// CapChangePost lets a user edit and delete a single post.
const CapChangePost Capability = "post.change"

// Grant is a per-object capability held by a user.
type Grant struct {
	UserID     uuid.UUID  `json:"user_id"`
	Capability Capability `json:"capability"`
	ObjectID   uuid.UUID  `json:"object_id"`
	CreatedAt  time.Time  `json:"created_at"`
}
