package repository

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/repository"
	"quillchat/pkg/errors"
)

const usersCollection = "users"

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.ChatUser, error) {
	doc, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	return decodeUser(doc)
}

func (r *firestoreUserRepository) GetMany(ctx context.Context, ids []string) ([]entity.ChatUser, error) {
	if len(ids) == 0 {
		return []entity.ChatUser{}, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, r.client.Collection(usersCollection).Doc(id))
	}

	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, errors.Internal("Failed to get users", err)
	}

	users := make([]entity.ChatUser, 0, len(docs))
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		user, err := decodeUser(doc)
		if err != nil {
			log.Printf("GetMany Error: skipping user %s: %v", doc.Ref.ID, err)
			continue
		}
		users = append(users, *user)
	}
	return users, nil
}

func (r *firestoreUserRepository) SearchByDisplayName(ctx context.Context, prefix string, limit int) ([]entity.ChatUser, error) {
	q := r.client.Collection(usersCollection).
		Where("displayName", ">=", prefix).
		Where("displayName", "<", prefix+"\uf8ff").
		OrderBy("displayName", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	users := []entity.ChatUser{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to search users", err)
		}

		user, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func (r *firestoreUserRepository) Upsert(ctx context.Context, user *entity.ChatUser) error {
	updateData := map[string]interface{}{
		"displayName": user.DisplayName,
	}
	// Only include non-empty fields
	if user.PhotoURL != "" {
		updateData["photoURL"] = user.PhotoURL
	}

	if _, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, updateData, firestore.MergeAll); err != nil {
		return errors.Internal("Failed to update user", err)
	}
	return nil
}

func (r *firestoreUserRepository) SetPresence(ctx context.Context, id string, online bool, at time.Time) error {
	_, err := r.client.Collection(usersCollection).Doc(id).Set(ctx, map[string]interface{}{
		"isOnline": online,
		"lastSeen": at,
	}, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to update presence", err)
	}
	return nil
}

func decodeUser(doc *firestore.DocumentSnapshot) (*entity.ChatUser, error) {
	var user entity.ChatUser
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID
	return &user, nil
}
