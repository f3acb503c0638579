package repository

import (
	"context"
	"os"
	"testing"

	"xquest/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepository connects to TEST_DATABASE_URL and applies the schema.
// Tests that need it are skipped when no database is configured.
func setupTestRepository(t *testing.T) *Repository {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("pgx", dbURL)
	require.NoError(t, err)

	r := &Repository{db: db}
	require.NoError(t, r.Migrate(context.Background()))
	require.NoError(t, r.Migrate(context.Background()), "migrate must be idempotent")

	t.Cleanup(func() {
		_ = r.Close()
	})

	return r
}

// newGoogleID keeps rows from separate runs apart. The user is deleted
// before the connection is closed since cleanups run last-in first-out.
func newGoogleID(t *testing.T, r *Repository) string {
	t.Helper()

	googleID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		if _, err := r.db.ExecContext(context.Background(), "DELETE FROM users WHERE google_id = $1", googleID); err != nil {
			t.Logf("failed to clean up user %s: %v", googleID, err)
		}
	})

	return googleID
}

func TestRepository_CreateUser(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	googleID := newGoogleID(t, r)

	created, err := r.CreateUser(ctx, &model.User{GoogleID: googleID, Email: "test@example.com", Name: "Ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 0, created.XP)
	assert.Empty(t, created.Quests)
	assert.False(t, created.CreatedAt.IsZero())

	again, err := r.CreateUser(ctx, &model.User{GoogleID: googleID, Email: "other@example.com", Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Ada", again.Name)
	assert.Equal(t, "test@example.com", again.Email)

	byGoogle, err := r.FindUserByGoogleID(ctx, googleID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byGoogle.ID)

	other, err := r.CreateUser(ctx, &model.User{GoogleID: newGoogleID(t, r)})
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func TestRepository_NotFound(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()
	missing := uuid.NewString()

	_, err := r.FindUserByID(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FindUserByGoogleID(ctx, missing)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.SetQuestStatus(ctx, missing, "like_post_1", model.QuestInProgress)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.CompleteQuest(ctx, missing, "like_post_1", 10)
	assert.ErrorIs(t, err, ErrNotFound)

	name := "x"
	_, err = r.UpdateUser(ctx, missing, model.UserUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_UpdateUser(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, &model.User{GoogleID: newGoogleID(t, r), Email: "test@example.com", Name: "Ada"})
	require.NoError(t, err)

	xID, token := "x-42", "tok"
	updated, err := r.UpdateUser(ctx, u.ID, model.UserUpdate{XID: &xID, XAccessToken: &token})
	require.NoError(t, err)
	assert.Equal(t, "x-42", updated.XID)
	assert.Equal(t, "tok", updated.XAccessToken)
	assert.Equal(t, "Ada", updated.Name)
	assert.Equal(t, "test@example.com", updated.Email)

	name := "Grace"
	updated, err = r.UpdateUser(ctx, u.ID, model.UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated.Name)
	assert.Equal(t, "x-42", updated.XID)

	unchanged, err := r.UpdateUser(ctx, u.ID, model.UserUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Grace", unchanged.Name)
}

func TestRepository_QuestProgress(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, &model.User{GoogleID: newGoogleID(t, r)})
	require.NoError(t, err)

	updated, err := r.SetQuestStatus(ctx, u.ID, "like_post_1", model.QuestInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.QuestInProgress, updated.QuestStatus("like_post_1"))
	assert.Equal(t, model.QuestNotStarted, updated.QuestStatus("follow_account_1"))

	// Second write for the same quest updates the row in place.
	updated, err = r.SetQuestStatus(ctx, u.ID, "like_post_1", model.QuestInProgress)
	require.NoError(t, err)
	assert.Len(t, updated.Quests, 1)

	updated, err = r.CompleteQuest(ctx, u.ID, "like_post_1", 10)
	require.NoError(t, err)
	assert.Equal(t, model.QuestCompleted, updated.QuestStatus("like_post_1"))
	assert.Equal(t, 10, updated.XP)

	updated, err = r.CompleteQuest(ctx, u.ID, "retweet_post_1", 15)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.XP)
	assert.Len(t, updated.Quests, 2)

	stored, err := r.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, stored.XP)
	assert.Equal(t, model.QuestCompleted, stored.QuestStatus("retweet_post_1"))
}

func TestRepository_CompleteQuestRollsBack(t *testing.T) {
	r := setupTestRepository(t)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, &model.User{GoogleID: newGoogleID(t, r)})
	require.NoError(t, err)
	_, err = r.SetQuestStatus(ctx, u.ID, "like_post_1", model.QuestInProgress)
	require.NoError(t, err)

	// xp may not go negative, so the credit fails after the status was written.
	_, err = r.CompleteQuest(ctx, u.ID, "like_post_1", -100)
	require.Error(t, err)

	stored, err := r.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.XP)
	assert.Equal(t, model.QuestInProgress, stored.QuestStatus("like_post_1"))
}
