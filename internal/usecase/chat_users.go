package usecase

import (
	"context"
	"strings"

	"quillchat/internal/domain/entity"
	"quillchat/internal/domain/state"
	"quillchat/internal/infrastructure/ratelimit"
	"quillchat/pkg/errors"
)

const searchLimit = 20

// GetUser returns the cached profile of id, or nil.
func (uc *ChatUseCase) GetUser(id string) *entity.ChatUser {
	user, ok := uc.store.State().Users[id]
	if !ok {
		return nil
	}
	return &user
}

// FetchUserData returns the profile of id, reading it from the store when it
// is not cached yet.
func (uc *ChatUseCase) FetchUserData(ctx context.Context, id string) (*entity.ChatUser, error) {
	if user := uc.GetUser(id); user != nil {
		return user, nil
	}

	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.store.Dispatch(state.UserUpserted{Users: []entity.ChatUser{*user}})
	return user, nil
}

// FetchUsers reads the profiles of the ids that are not cached in one batch.
func (uc *ChatUseCase) FetchUsers(ctx context.Context, ids []string) error {
	cached := uc.store.State().Users
	seen := make(map[string]bool, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := cached[id]; id == "" || ok || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	users, err := uc.userRepo.GetMany(ctx, missing)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		uc.store.Dispatch(state.UserUpserted{Users: users})
	}
	return nil
}

// SearchUsers finds users by display name prefix, excluding the session user.
func (uc *ChatUseCase) SearchUsers(ctx context.Context, query string) ([]entity.ChatUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		uc.store.Dispatch(state.SearchUpdated{})
		return []entity.ChatUser{}, nil
	}

	allowed, waitTime := uc.rateLimiter.Allow(uc.identity.UID, ratelimit.ActionSearch)
	if !allowed {
		return nil, uc.fail("SearchUsers", errors.TooManyRequests("Too many searches", waitTime))
	}

	uc.store.Dispatch(state.SearchUpdated{Query: query, Searching: true})
	found, err := uc.userRepo.SearchByDisplayName(ctx, query, searchLimit+1)
	if err != nil {
		uc.store.Dispatch(state.SearchUpdated{Query: query})
		return nil, uc.fail("SearchUsers", err)
	}

	results := make([]entity.ChatUser, 0, len(found))
	for _, u := range found {
		if u.ID != uc.identity.UID && len(results) < searchLimit {
			results = append(results, u)
		}
	}

	if len(results) > 0 {
		uc.store.Dispatch(state.UserUpserted{Users: results})
	}
	uc.store.Dispatch(state.SearchUpdated{Query: query, Results: results})
	return results, nil
}
