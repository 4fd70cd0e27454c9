package repository

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/repository"
	"quillchat/pkg/errors"
)

const messagesCollection = "messages"

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) col() *firestore.CollectionRef {
	return r.client.Collection(messagesCollection)
}

func (r *firestoreMessageRepository) Create(ctx context.Context, msg *entity.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	if _, err := r.col().Doc(msg.ID).Set(ctx, msg); err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, id string) (*entity.Message, error) {
	doc, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	return decodeMessage(doc)
}

func (r *firestoreMessageRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.col().Doc(id).Delete(ctx); err != nil {
		return errors.Internal("Failed to delete message", err)
	}
	return nil
}

func (r *firestoreMessageRepository) ListPage(ctx context.Context, conversationID string, before *entity.MessageCursor, limit int) ([]entity.Message, error) {
	q := r.col().
		Where("conversationId", "==", conversationID).
		OrderBy("timestamp", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)
	if before != nil && !before.IsZero() {
		q = q.StartAfter(before.Timestamp, before.ID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	return r.collect(q.Documents(ctx), conversationID)
}

func (r *firestoreMessageRepository) ListUnread(ctx context.Context, receiverID, conversationID string) ([]entity.Message, error) {
	q := r.col().
		Where("receiverId", "==", receiverID).
		Where("read", "==", false)
	if conversationID != "" {
		q = q.Where("conversationId", "==", conversationID)
	}

	return r.collect(q.Documents(ctx), receiverID)
}

func (r *firestoreMessageRepository) collect(iter *firestore.DocumentIterator, key string) ([]entity.Message, error) {
	defer iter.Stop()

	messages := []entity.Message{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("Firestore error while iterating messages for %s: %v", key, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		msg, err := decodeMessage(doc)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(ids))
	for _, id := range ids {
		job, err := bw.Update(r.col().Doc(id), []firestore.Update{{Path: "read", Value: true}})
		if err != nil {
			bw.End()
			return errors.Internal("Failed to queue read update", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			if status.Code(err) == codes.NotFound {
				// Deleted between the query and the flip.
				continue
			}
			log.Printf("MarkRead Error: message %s: %v", ids[i], err)
			return errors.Internal("Failed to mark messages as read", err)
		}
	}
	return nil
}

func (r *firestoreMessageRepository) ListenLatest(ctx context.Context, conversationID string, onMessage func(entity.Message), onError func(error)) repository.Unsubscribe {
	q := r.col().
		Where("conversationId", "==", conversationID).
		OrderBy("timestamp", firestore.Desc).
		Limit(1)

	return listen(ctx, q, func(snap *firestore.QuerySnapshot) {
		for _, change := range snap.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			msg, err := decodeMessage(change.Doc)
			if err != nil {
				log.Printf("ListenLatest Error: skipping message %s: %v", change.Doc.Ref.ID, err)
				continue
			}
			onMessage(*msg)
		}
	}, onError)
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	msg.ID = doc.Ref.ID
	msg.Status = entity.MessageStatusSent
	return &msg, nil
}
