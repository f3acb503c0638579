package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"xquest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data", "users.json")
	s, err := OpenFileStore(path)
	require.NoError(t, err)

	return s, path
}

func TestFileStore_CreateUser(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	created, err := s.CreateUser(ctx, &model.User{GoogleID: "g-1", Email: "a@example.com", Name: "Ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 0, created.XP)
	assert.NotNil(t, created.Quests)
	assert.False(t, created.CreatedAt.IsZero())

	again, err := s.CreateUser(ctx, &model.User{GoogleID: "g-1", Email: "other@example.com", Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Ada", again.Name)

	byGoogle, err := s.FindUserByGoogleID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byGoogle.ID)

	second, err := s.CreateUser(ctx, &model.User{GoogleID: "g-2"})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, second.ID)
}

func TestFileStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindUserByGoogleID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SetQuestStatus(ctx, "missing", "q", model.QuestInProgress)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CompleteQuest(ctx, "missing", "q", 10)
	assert.ErrorIs(t, err, ErrNotFound)

	name := "x"
	_, err = s.UpdateUser(ctx, "missing", model.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_Mutations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	u, err := s.CreateUser(ctx, &model.User{GoogleID: "g-1", Email: "a@example.com", Name: "Ada"})
	require.NoError(t, err)

	xID, token := "x-42", "tok"
	updated, err := s.UpdateUser(ctx, u.ID, model.UserUpdate{XID: &xID, XAccessToken: &token})
	require.NoError(t, err)
	assert.Equal(t, "x-42", updated.XID)
	assert.Equal(t, "tok", updated.XAccessToken)
	assert.Equal(t, "Ada", updated.Name)
	assert.Equal(t, "a@example.com", updated.Email)

	updated, err = s.SetQuestStatus(ctx, u.ID, "like_post_1", model.QuestInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.QuestInProgress, updated.QuestStatus("like_post_1"))
	assert.Equal(t, model.QuestNotStarted, updated.QuestStatus("follow_account_1"))

	updated, err = s.CompleteQuest(ctx, u.ID, "like_post_1", 10)
	require.NoError(t, err)
	assert.Equal(t, model.QuestCompleted, updated.QuestStatus("like_post_1"))
	assert.Equal(t, 10, updated.XP)

	updated, err = s.CompleteQuest(ctx, u.ID, "retweet_post_1", 15)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.XP)
	assert.Equal(t, model.QuestCompleted, updated.QuestStatus("retweet_post_1"))
}

func TestFileStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	u, err := s.CreateUser(ctx, &model.User{GoogleID: "g-1"})
	require.NoError(t, err)

	u.XP = 999
	u.Quests["like_post_1"] = model.QuestCompleted

	stored, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.XP)
	assert.Empty(t, stored.Quests)
}

func TestFileStore_Persistence(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	u, err := s.CreateUser(ctx, &model.User{GoogleID: "g-1", Name: "Ada"})
	require.NoError(t, err)
	_, err = s.CompleteQuest(ctx, u.ID, "retweet_post_1", 20)
	require.NoError(t, err)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)

	loaded, err := reopened.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "g-1", loaded.GoogleID)
	assert.Equal(t, 20, loaded.XP)
	assert.Equal(t, model.QuestCompleted, loaded.QuestStatus("retweet_post_1"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_CompleteQuestFailedWrite(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)

	u, err := s.CreateUser(ctx, &model.User{GoogleID: "g-1"})
	require.NoError(t, err)
	_, err = s.SetQuestStatus(ctx, u.ID, "like_post_1", model.QuestInProgress)
	require.NoError(t, err)

	// A regular file where the data dir should be makes every flush fail.
	dir := filepath.Dir(path)
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, nil, 0o600))

	_, err = s.CompleteQuest(ctx, u.ID, "like_post_1", 10)
	require.Error(t, err)

	stored, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.XP)
	assert.Equal(t, model.QuestInProgress, stored.QuestStatus("like_post_1"))
}

func TestOpenFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("const users = [];"), 0o600))

	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestOpenFileStore_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := OpenFileStore(path)
	require.NoError(t, err)

	_, err = s.FindUserByID(context.Background(), "any")
	assert.ErrorIs(t, err, ErrNotFound)
}
