package entity

import (
	"time"
)

// ChatUser is the profile projection shown next to conversations and messages.
type ChatUser struct {
	ID          string     `json:"id" firestore:"-"`
	DisplayName string     `json:"display_name" firestore:"displayName"`
	PhotoURL    string     `json:"photo_url,omitempty" firestore:"photoURL,omitempty"`
	IsOnline    bool       `json:"is_online" firestore:"isOnline"`
	LastSeen    *time.Time `json:"last_seen,omitempty" firestore:"lastSeen,omitempty"`
}

// Identity is the signed-in user as reported by the authentication provider.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Email       string `json:"email,omitempty"`
}
