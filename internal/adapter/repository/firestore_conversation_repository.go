package repository

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/repository"
	"quillchat/pkg/errors"
)

const conversationsCollection = "conversations"

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(conversationsCollection).Doc(id)
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	return decodeConversation(doc)
}

func (r *firestoreConversationRepository) Ensure(ctx context.Context, id string, participants []string) error {
	_, err := r.doc(id).Create(ctx, map[string]interface{}{
		"participants": participants,
		"unreadCount":  map[string]interface{}{},
		"typingUsers":  []string{},
		"lastActivity": firestore.ServerTimestamp,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return errors.Internal("Failed to create conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) RecordMessage(ctx context.Context, id string, participants []string, msg *entity.Message) error {
	data := map[string]interface{}{
		"participants": participants,
		"lastMessage":  msg,
		"lastActivity": msg.Timestamp,
		"unreadCount": map[string]interface{}{
			msg.ReceiverID: firestore.Increment(1),
		},
	}

	if _, err := r.doc(id).Set(ctx, data, firestore.MergeAll); err != nil {
		return errors.Internal("Failed to update conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) ResetUnread(ctx context.Context, id, userID string) error {
	return r.update(ctx, id, []firestore.Update{
		{FieldPath: firestore.FieldPath{"unreadCount", userID}, Value: 0},
	})
}

func (r *firestoreConversationRepository) SetLastMessage(ctx context.Context, id string, msg *entity.Message) error {
	var value interface{} = firestore.Delete
	if msg != nil {
		value = msg
	}
	return r.update(ctx, id, []firestore.Update{{Path: "lastMessage", Value: value}})
}

func (r *firestoreConversationRepository) SetTyping(ctx context.Context, id, userID string, typing bool) error {
	var value interface{} = firestore.ArrayRemove(userID)
	if typing {
		value = firestore.ArrayUnion(userID)
	}
	return r.update(ctx, id, []firestore.Update{{Path: "typingUsers", Value: value}})
}

func (r *firestoreConversationRepository) update(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := r.doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to update conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) ListenByParticipant(ctx context.Context, userID string, onChange func([]entity.Conversation), onError func(error)) repository.Unsubscribe {
	q := r.client.Collection(conversationsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("lastActivity", firestore.Desc)

	return listen(ctx, q, func(snap *firestore.QuerySnapshot) {
		docs, err := snap.Documents.GetAll()
		if err != nil {
			log.Printf("ListenByParticipant Error: failed to read snapshot for user %s: %v", userID, err)
			return
		}

		conversations := make([]entity.Conversation, 0, len(docs))
		for _, doc := range docs {
			conv, err := decodeConversation(doc)
			if err != nil {
				log.Printf("ListenByParticipant Error: skipping conversation %s: %v", doc.Ref.ID, err)
				continue
			}
			conversations = append(conversations, *conv)
		}
		onChange(conversations)
	}, onError)
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conv.ID = doc.Ref.ID
	if conv.UnreadCount == nil {
		conv.UnreadCount = map[string]int{}
	}
	if conv.TypingUsers == nil {
		conv.TypingUsers = []string{}
	}
	return &conv, nil
}
