package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/dmitrijs2005/healthrecords/internal/server/models"
)

// MemoryRepository keeps users in process memory. It backs the server when
// no database DSN is configured and doubles as a test fixture.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]models.User)}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}

	if user.Role == "" {
		user.Role = common.DefaultRole
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = timeNow().UTC()
	r.byID[user.ID] = *user

	return user, nil
}

// Delete removes a user. Used to model accounts removed after token issuance.
func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *MemoryRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *MemoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *MemoryRepository) find(match func(u *models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, common.ErrorNotFound
}

var _ Repository = (*MemoryRepository)(nil)

var timeNow = time.Now
