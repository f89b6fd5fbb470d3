package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/submgr/billing/internal/domain/models"
	apperrors "github.com/submgr/billing/pkg/errors"
)

type inviteRecord struct {
	ID        string `json:"id"`
	FromUser  int64  `json:"from_user"`
	Used      bool   `json:"used"`
	UsedBy    int64  `json:"used_by,omitempty"`
	IssueDate string `json:"issue_date"`
}

// InviteRepository persists invites under invite:<id> keys
type InviteRepository struct {
	store *Store
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(store *Store) *InviteRepository {
	return &InviteRepository{store: store}
}

func inviteKey(id string) string {
	return inviteKeyPrefix + id
}

// Get retrieves an invite by id
func (r *InviteRepository) Get(ctx context.Context, id string) (*models.Invite, error) {
	data, err := r.store.client.Get(ctx, inviteKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NewNotFound("invite", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get invite %s: %w", id, err)
	}

	var rec inviteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode invite %s: %w", id, err)
	}
	return inviteFromRecord(&rec)
}

// List returns all stored invites
func (r *InviteRepository) List(ctx context.Context) ([]*models.Invite, error) {
	keys, err := r.store.scanKeys(ctx, inviteKeyPrefix)
	if err != nil {
		return nil, err
	}

	invites := make([]*models.Invite, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}

		var rec inviteRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		invite, err := inviteFromRecord(&rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		invites = append(invites, invite)
	}
	return invites, nil
}

// Save persists an invite, creating or overwriting it
func (r *InviteRepository) Save(ctx context.Context, invite *models.Invite) error {
	rec := inviteToRecord(invite)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode invite %s: %w", invite.ID, err)
	}
	if err := r.store.client.Set(ctx, inviteKey(invite.ID), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("save invite %s: %w", invite.ID, err)
	}
	return nil
}

// Expire schedules the invite record for deletion after ttl
func (r *InviteRepository) Expire(ctx context.Context, id string, ttl time.Duration) error {
	if err := r.store.client.Expire(ctx, inviteKey(id), ttl).Err(); err != nil {
		return fmt.Errorf("expire invite %s: %w", id, err)
	}
	return nil
}

// TTL returns the remaining lifetime of the record and whether an expiry is set
func (r *InviteRepository) TTL(ctx context.Context, id string) (time.Duration, bool, error) {
	return r.store.ttlOf(ctx, inviteKey(id))
}

func inviteToRecord(invite *models.Invite) *inviteRecord {
	return &inviteRecord{
		ID:        invite.ID,
		FromUser:  invite.FromUser,
		Used:      invite.Used,
		UsedBy:    invite.UsedBy,
		IssueDate: formatDate(invite.IssueDate),
	}
}

func inviteFromRecord(rec *inviteRecord) (*models.Invite, error) {
	issueDate, err := parseDate(rec.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("invalid issue_date: %w", err)
	}
	return &models.Invite{
		ID:        rec.ID,
		FromUser:  rec.FromUser,
		Used:      rec.Used,
		UsedBy:    rec.UsedBy,
		IssueDate: issueDate,
	}, nil
}
