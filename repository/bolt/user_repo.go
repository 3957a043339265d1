package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

type userRecord struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"password_hash"`
	Roles        []domain.Role `json:"roles"`
	Active       bool          `json:"active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func newUserRecord(u *domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Roles:        u.Roles,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Roles:        domain.NormalizeRoles(r.Roles),
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func decodeUser(raw []byte) (domain.User, error) {
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.User{}, err
	}
	return rec.toDomain(), nil
}

// UserRepository implements repository.UserRepository on top of Bolt.
type UserRepository struct {
	db *bbolt.DB
}

var _ repository.UserRepository = (*UserRepository)(nil)

func emailKey(email string) []byte {
	return []byte(strings.ToLower(email))
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var user *domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = loadUser(tx, id)
		return err
	})
	return user, err
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	var user *domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketUsernames).Get([]byte(username))
		if id == nil {
			return domain.ErrUserNotFound
		}
		var err error
		user, err = loadUser(tx, string(id))
		return err
	})
	return user, err
}

func (r *UserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	return r.indexed(bucketUsernames, []byte(username))
}

func (r *UserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return r.indexed(bucketEmails, emailKey(email))
}

func (r *UserRepository) indexed(bucket, key []byte) (bool, error) {
	var found bool
	err := r.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucket).Get(key) != nil
		return nil
	})
	return found, err
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	if len(user.Roles) == 0 {
		return domain.ErrUserHasNoRoles
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(user.ID)) != nil {
			return domain.NewError(domain.ErrCodeConflict, "user id already exists")
		}
		if err := claimIndexes(tx, user, nil); err != nil {
			return err
		}
		return put(tx.Bucket(bucketUsers), user.ID, newUserRecord(user))
	})
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	if len(user.Roles) == 0 {
		return domain.ErrUserHasNoRoles
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		current, err := loadUser(tx, user.ID)
		if err != nil {
			return err
		}
		if err := claimIndexes(tx, user, current); err != nil {
			return err
		}
		return put(tx.Bucket(bucketUsers), user.ID, newUserRecord(user))
	})
}

// claimIndexes reserves the username and email of next, releasing the keys
// held by prev when they changed.
func claimIndexes(tx *bbolt.Tx, next, prev *domain.User) error {
	names := tx.Bucket(bucketUsernames)
	emails := tx.Bucket(bucketEmails)
	id := []byte(next.ID)

	if owner := names.Get([]byte(next.Username)); owner != nil && !bytes.Equal(owner, id) {
		return domain.ErrUsernameTaken
	}
	if owner := emails.Get(emailKey(next.Email)); owner != nil && !bytes.Equal(owner, id) {
		return domain.ErrEmailTaken
	}
	if prev != nil {
		if prev.Username != next.Username {
			if err := names.Delete([]byte(prev.Username)); err != nil {
				return err
			}
		}
		if !strings.EqualFold(prev.Email, next.Email) {
			if err := emails.Delete(emailKey(prev.Email)); err != nil {
				return err
			}
		}
	}
	if err := names.Put([]byte(next.Username), id); err != nil {
		return err
	}
	return emails.Put(emailKey(next.Email), id)
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		user, err := loadUser(tx, id)
		if err != nil {
			return err
		}
		if err := deleteOwnedTasks(tx, id); err != nil {
			return err
		}
		if err := tx.Bucket(bucketUsernames).Delete([]byte(user.Username)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketEmails).Delete(emailKey(user.Email)); err != nil {
			return err
		}
		return tx.Bucket(bucketUsers).Delete([]byte(id))
	})
}

func deleteOwnedTasks(tx *bbolt.Tx, userID string) error {
	owners := tx.Bucket(bucketTaskOwners)
	tasks := tx.Bucket(bucketTasks)
	prefix := ownerPrefix(userID)

	var keys [][]byte
	c := owners.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := tasks.Delete(k[len(prefix):]); err != nil {
			return err
		}
		if err := owners.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	page := filter.Page.Normalize()

	var users []domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(_, v []byte) error {
			user, err := decodeUser(v)
			if err != nil {
				return err
			}
			if filter.Role == "" || user.HasRole(filter.Role) {
				users = append(users, user)
			}
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}

	sortUsers(users, page)
	total := len(users)
	start := page.Offset()
	if start >= total {
		return []domain.User{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return users[start:end], total, nil
}

func sortUsers(users []domain.User, page repository.Page) {
	key := func(u domain.User) string {
		switch page.SortBy {
		case "username":
			return u.Username
		case "email":
			return u.Email
		case "created_at":
			return u.CreatedAt.UTC().Format("20060102150405.000000000")
		default:
			return u.ID
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		if page.Desc {
			return key(users[i]) > key(users[j])
		}
		return key(users[i]) < key(users[j])
	})
}

func (r *UserRepository) Stats(_ context.Context) (domain.UserStats, error) {
	var stats domain.UserStats
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(_, v []byte) error {
			user, err := decodeUser(v)
			if err != nil {
				return err
			}
			stats.TotalUsers++
			if user.Active {
				stats.ActiveUsers++
			}
			return nil
		})
	})
	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers
	return stats, err
}

func loadUser(tx *bbolt.Tx, id string) (*domain.User, error) {
	raw := tx.Bucket(bucketUsers).Get([]byte(id))
	if raw == nil {
		return nil, domain.ErrUserNotFound
	}
	user, err := decodeUser(raw)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
