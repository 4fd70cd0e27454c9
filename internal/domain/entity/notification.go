package entity

import "time"

const NotificationTypeMessage = "message"

type Notification struct {
	ID             string    `json:"id" firestore:"-"`
	UserID         string    `json:"user_id" firestore:"userId"`
	Type           string    `json:"type" firestore:"type"`
	ActorID        string    `json:"actor_id" firestore:"actorId"`
	ActorName      string    `json:"actor_name,omitempty" firestore:"actorName,omitempty"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	MessageID      string    `json:"message_id" firestore:"messageId"`
	Preview        string    `json:"preview" firestore:"preview"`
	Read           bool      `json:"read" firestore:"read"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}
