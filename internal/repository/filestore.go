package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"xquest/internal/model"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// FileStore keeps the whole user collection in a single JSON document and
// rewrites it on every mutation. Mutations within the process are serialized;
// concurrent writers in other processes overwrite each other.
type FileStore struct {
	path string

	mu       sync.Mutex
	users    []*model.User
	byID     map[string]*model.User
	byGoogle map[string]*model.User
}

type fileDocument struct {
	Users []*model.User `json:"users"`
}

// OpenFileStore loads path, creating an empty collection when the file does
// not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		byID:     make(map[string]*model.User),
		byGoogle: make(map[string]*model.User),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read user store: %w", err)
	}

	if len(data) == 0 {
		return s, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode user store %s: %w", path, err)
	}

	for _, u := range doc.Users {
		if u.Quests == nil {
			u.Quests = make(map[string]model.QuestStatus)
		}
		s.index(u)
	}

	return s, nil
}

func (s *FileStore) index(u *model.User) {
	s.users = append(s.users, u)
	s.byID[u.ID] = u
	s.byGoogle[u.GoogleID] = u
}

// flush writes the full collection to a temp file and renames it over the
// store path.
func (s *FileStore) flush() error {
	data, err := json.MarshalIndent(fileDocument{Users: s.users}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create user store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close user store: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace user store: %w", err)
	}

	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) FindUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (s *FileStore) FindUserByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byGoogle[googleID]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

// CreateUser inserts user unless a record with the same google id exists, in
// which case the existing record is returned unchanged.
func (s *FileStore) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byGoogle[user.GoogleID]; ok {
		return existing.Clone(), nil
	}

	u := user.Clone()
	if u.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate user id: %w", err)
		}
		u.ID = id.String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	s.index(u)
	if err := s.flush(); err != nil {
		s.unindexLast()
		return nil, err
	}

	return u.Clone(), nil
}

func (s *FileStore) unindexLast() {
	u := s.users[len(s.users)-1]
	s.users = s.users[:len(s.users)-1]
	delete(s.byID, u.ID)
	delete(s.byGoogle, u.GoogleID)
}

func (s *FileStore) UpdateUser(_ context.Context, id string, update model.UserUpdate) (*model.User, error) {
	return s.mutate(id, func(u *model.User) {
		if update.Email != nil {
			u.Email = *update.Email
		}
		if update.Name != nil {
			u.Name = *update.Name
		}
		if update.XID != nil {
			u.XID = *update.XID
		}
		if update.XAccessToken != nil {
			u.XAccessToken = *update.XAccessToken
		}
	})
}

func (s *FileStore) SetQuestStatus(_ context.Context, userID, questID string, status model.QuestStatus) (*model.User, error) {
	return s.mutate(userID, func(u *model.User) {
		u.Quests[questID] = status
	})
}

// CompleteQuest marks the quest completed and credits xp in one write.
func (s *FileStore) CompleteQuest(_ context.Context, userID, questID string, xp int) (*model.User, error) {
	return s.mutate(userID, func(u *model.User) {
		u.Quests[questID] = model.QuestCompleted
		u.XP += xp
	})
}

// mutate applies fn to a copy of the record and swaps it in only once the
// collection has been written.
func (s *FileStore) mutate(id string, fn func(u *model.User)) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := current.Clone()
	fn(next)

	i := s.position(id)
	s.users[i] = next
	s.byID[id] = next
	s.byGoogle[next.GoogleID] = next

	if err := s.flush(); err != nil {
		s.users[i] = current
		s.byID[id] = current
		s.byGoogle[current.GoogleID] = current
		return nil, err
	}

	return next.Clone(), nil
}

func (s *FileStore) position(id string) int {
	for i, u := range s.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}
