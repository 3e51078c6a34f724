package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"letterflow/internal/lifecycle"
	"letterflow/internal/models"
)

// MemLetterStore is an in-memory lifecycle.LetterStore. UpdateLetter honours
// the conditional-write contract, so concurrency tests behave like the SQL
// store without a database.
type MemLetterStore struct {
	mu       sync.Mutex
	letters  map[string]models.Letter
	progress map[string][]models.ProgressEntry
}

// NewMemLetterStore creates an empty in-memory letter store.
func NewMemLetterStore() *MemLetterStore {
	return &MemLetterStore{
		letters:  make(map[string]models.Letter),
		progress: make(map[string][]models.ProgressEntry),
	}
}

func copyLetter(l models.Letter) models.Letter {
	if l.Assignment != nil {
		a := *l.Assignment
		l.Assignment = &a
	}
	return l
}

// GetLetter returns (nil, nil) for an unknown id.
func (s *MemLetterStore) GetLetter(ctx context.Context, id string) (*models.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.letters[id]
	if !ok {
		return nil, nil
	}
	out := copyLetter(l)
	return &out, nil
}

// CreateLetter stores a new letter.
func (s *MemLetterStore) CreateLetter(ctx context.Context, l *models.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.letters[l.ID]; ok {
		return fmt.Errorf("letter %s already exists", l.ID)
	}
	s.letters[l.ID] = copyLetter(*l)
	return nil
}

// UpdateLetter persists the letter only when its stored status still equals
// expected, returning lifecycle.ErrConflict otherwise.
func (s *MemLetterStore) UpdateLetter(ctx context.Context, l *models.Letter, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.letters[l.ID]
	if !ok {
		return fmt.Errorf("letter %s: %w", l.ID, lifecycle.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("letter %s no longer %s: %w", l.ID, expected, lifecycle.ErrConflict)
	}
	s.letters[l.ID] = copyLetter(*l)
	return nil
}

// AppendProgress appends one progress entry.
func (s *MemLetterStore) AppendProgress(ctx context.Context, e *models.ProgressEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[e.LetterID] = append(s.progress[e.LetterID], *e)
	return nil
}

// ListProgress returns the progress log in append order.
func (s *MemLetterStore) ListProgress(ctx context.Context, letterID string) ([]models.ProgressEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ProgressEntry, len(s.progress[letterID]))
	copy(out, s.progress[letterID])
	return out, nil
}

// All returns every stored letter, ordered by id for deterministic asserts.
func (s *MemLetterStore) All() []models.Letter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Letter, 0, len(s.letters))
	for _, l := range s.letters {
		out = append(out, copyLetter(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MemUserSource is an in-memory directory.UserSource over a fixed snapshot.
type MemUserSource struct {
	mu    sync.Mutex
	users []models.User
}

// NewMemUserSource creates a user source over the given snapshot.
func NewMemUserSource(users []models.User) *MemUserSource {
	return &MemUserSource{users: users}
}

// ListUsers returns the snapshot.
func (s *MemUserSource) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// GetUser returns (nil, nil) for an unknown id.
func (s *MemUserSource) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			u := s.users[i]
			return &u, nil
		}
	}
	return nil, nil
}
