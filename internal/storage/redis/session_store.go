package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mrilab/scantrig/internal/storage"
)

const (
	sessionKeyPrefix = "scantrig:session:"
	// byStartKey is a sorted set of session IDs scored by start time.
	byStartKey = "scantrig:sessions:by_start"
)

type sessionStore struct {
	client *redis.Client
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (s *sessionStore) Put(ctx context.Context, session storage.Session) error {
	fields, err := sessionFields(session)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(session.ID), fields)
	pipe.ZAdd(ctx, byStartKey, redis.Z{
		Score:  float64(session.StartedAt.UnixNano()),
		Member: session.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.Session, error) {
	data, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, err
	}
	return parseSession(data)
}

func (s *sessionStore) List(ctx context.Context) ([]storage.Session, error) {
	// Newest first.
	ids, err := s.client.ZRevRange(ctx, byStartKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var sessions []storage.Session
	for _, id := range ids {
		data, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		session, err := parseSession(data)
		if err == storage.ErrNotFound {
			continue // index entry for a deleted session
		}
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return storage.ErrNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.ZRem(ctx, byStartKey, id)
	_, err = pipe.Exec(ctx)
	return err
}
