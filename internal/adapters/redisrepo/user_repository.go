package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/submgr/billing/internal/domain/models"
	apperrors "github.com/submgr/billing/pkg/errors"
)

type periodRecord struct {
	SubID      int64   `json:"sub_id"`
	LastBilled *string `json:"last_billed,omitempty"`
	Joined     *string `json:"joined,omitempty"`
}

type userRecord struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	Billing []periodRecord `json:"billing,omitempty"`
}

// UserRepository persists users under user:<id> keys
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new user repository
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// Get retrieves a user by id
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	data, err := r.store.client.Get(ctx, userKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFound("user", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", id, err)
	}
	return userFromRecord(&rec)
}

// List returns all stored users
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	keys, err := r.store.scanKeys(ctx, userKeyPrefix)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}

		var rec userRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		user, err := userFromRecord(&rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// Save persists a user, creating or overwriting it
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	rec := userToRecord(user)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode user %d: %w", user.ID, err)
	}
	if err := r.store.client.Set(ctx, userKey(user.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save user %d: %w", user.ID, err)
	}
	return nil
}

func userToRecord(user *models.User) *userRecord {
	rec := &userRecord{ID: user.ID, Name: user.Name}
	for _, b := range user.Billing {
		rec.Billing = append(rec.Billing, periodRecord{
			SubID:      b.SubID,
			LastBilled: formatDatePtr(b.LastBilled),
			Joined:     formatDatePtr(b.Joined),
		})
	}
	return rec
}

func userFromRecord(rec *userRecord) (*models.User, error) {
	user := &models.User{ID: rec.ID, Name: rec.Name}
	for _, b := range rec.Billing {
		lastBilled, err := parseDatePtr(b.LastBilled)
		if err != nil {
			return nil, fmt.Errorf("invalid last_billed for sub %d: %w", b.SubID, err)
		}
		joined, err := parseDatePtr(b.Joined)
		if err != nil {
			return nil, fmt.Errorf("invalid joined for sub %d: %w", b.SubID, err)
		}
		user.Billing = append(user.Billing, models.SubscriptionPeriod{
			SubID:      b.SubID,
			LastBilled: lastBilled,
			Joined:     joined,
		})
	}
	return user, nil
}
