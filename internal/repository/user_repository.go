package repository

import (
	"sort"
	"strings"
	"sync"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

// UserRepository is the in-memory identity store. Unlike the scheduling
// stores it carries its own lock: user reads are served outside the
// per-staff serialization domain.
type UserRepository struct {
	mu       sync.RWMutex
	items    map[string]*models.User
	username map[string]string
}

// NewUserRepository constructs an empty user store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		items:    make(map[string]*models.User),
		username: make(map[string]string),
	}
}

// Create stores a new user. Usernames are unique, case-insensitively.
func (r *UserRepository) Create(u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, taken := r.username[key]; taken {
		return appErrors.Clone(appErrors.ErrConflict, "username already exists")
	}
	r.items[u.ID] = u
	r.username[key] = u.ID
	return nil
}

// FindByID returns the user with the given id.
func (r *UserRepository) FindByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return u, nil
}

// FindByUsername returns the user with the given username.
func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.username[strings.ToLower(username)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return r.items[id], nil
}

// List returns users matching the filter, ordered by username.
func (r *UserRepository) List(filter models.UserFilter) []*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.User
	search := strings.ToLower(filter.Search)
	for _, u := range r.items {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.FullName), search) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Subjects returns the union of subjects taught by all professors.
func (r *UserRepository) Subjects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, u := range r.items {
		if u.Role != models.RoleProfessor {
			continue
		}
		for _, s := range u.Subjects {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}
