package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/mrilab/scantrig/internal/storage"
)

type sessionStore struct {
	db *bbolt.DB
}

// startKey orders the time index: RFC3339Nano sorts chronologically and the
// ID suffix keeps concurrent starts distinct.
func startKey(session storage.Session) []byte {
	return []byte(session.StartedAt.UTC().Format(time.RFC3339Nano) + "/" + session.ID)
}

func (s *sessionStore) Put(ctx context.Context, session storage.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(bucketSessions)).Put([]byte(session.ID), data); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketByStart)).Put(startKey(session), []byte(session.ID))
	})
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.Session, error) {
	var session *storage.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketSessions)).Get([]byte(id))
		if data == nil {
			return storage.ErrNotFound
		}
		session = &storage.Session{}
		if err := json.Unmarshal(data, session); err != nil {
			return fmt.Errorf("unmarshal session %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionStore) List(ctx context.Context) ([]storage.Session, error) {
	var sessions []storage.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		byID := tx.Bucket([]byte(bucketSessions))
		c := tx.Bucket([]byte(bucketByStart)).Cursor()
		// Walk the time index backwards: newest first.
		for k, id := c.Last(); k != nil; k, id = c.Prev() {
			data := byID.Get(id)
			if data == nil {
				continue // index entry for a deleted session
			}
			var session storage.Session
			if err := json.Unmarshal(data, &session); err != nil {
				return fmt.Errorf("unmarshal session %s: %w", id, err)
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket([]byte(bucketSessions))
		data := sessions.Get([]byte(id))
		if data == nil {
			return storage.ErrNotFound
		}
		var session storage.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("unmarshal session %s: %w", id, err)
		}
		if err := sessions.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketByStart)).Delete(startKey(session))
	})
}
