package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Principal is the verified identity attached to a request by the auth middleware.
type Principal struct {
	ID   string
	Role string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	HashedPassword   *string   `json:"-"` // Nil for OAuth-only accounts
	Role             string    `json:"role"`
	CurrentTopicID   *string   `json:"currentTopicId,omitempty"`
	CurrentTopic     *Topic    `json:"currentTopic,omitempty"`
	AssignedSubjects []Subject `json:"assignedSubjects,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
