package bolt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var (
	bucketUsers      = []byte("users")
	bucketUsernames  = []byte("user_names")
	bucketEmails     = []byte("user_emails")
	bucketTasks      = []byte("tasks")
	bucketTaskOwners = []byte("task_owners")
)

// Store is an embedded single-file store for users and tasks. Each write
// operation runs inside one bbolt read-write transaction.
type Store struct {
	db *bbolt.DB
}

// Open initializes the Bolt file and ensures every bucket exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketUsernames, bucketEmails, bucketTasks, bucketTaskOwners} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database can serve a read transaction.
func (s *Store) Ping() error {
	if s == nil || s.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Users returns the user repository backed by this store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

// Tasks returns the task repository backed by this store.
func (s *Store) Tasks() *TaskRepository {
	return &TaskRepository{db: s.db}
}

func ownerKey(userID, taskID string) []byte {
	return []byte(userID + "\x00" + taskID)
}

func ownerPrefix(userID string) []byte {
	return []byte(userID + "\x00")
}

func put(b *bbolt.Bucket, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), payload)
}
