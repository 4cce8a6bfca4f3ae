package auth

import (
	"context"
	"fmt"

	"join/internal/model"
	"join/internal/store"
)

const usersPath = "users"

// UserStore reads and writes user records in the document store.
type UserStore struct {
	client *store.Client
}

func NewUserStore(client *store.Client) *UserStore {
	return &UserStore{client: client}
}

func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	b, err := s.client.Raw(ctx, usersPath)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	entries, err := store.DecodeCollection[model.User](b)
	if err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]model.User, 0, len(entries))
	for _, e := range entries {
		u := e.Value
		if u.ID == "" {
			u.ID = e.Key
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (model.User, bool, error) {
	users, err := s.List(ctx)
	if err != nil {
		return model.User{}, false, err
	}
	for _, u := range users {
		if normalizeEmail(u.Email) == email {
			return u, true, nil
		}
	}
	return model.User{}, false, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (model.User, bool) {
	var u model.User
	if !s.client.Get(ctx, usersPath+"/"+id, &u) {
		return model.User{}, false
	}
	if u.ID == "" {
		u.ID = id
	}
	return u, true
}

func (s *UserStore) Put(ctx context.Context, u model.User) error {
	return s.client.Put(ctx, usersPath+"/"+u.ID, u)
}
