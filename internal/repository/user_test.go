package repository

import (
	"testing"

	"xquest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectUsersQuery(t *testing.T) {
	query, args, err := selectUsers().Where(squirrel.Eq{"u.id": "abc"}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "FROM users u LEFT JOIN user_quests uq ON uq.user_id = u.id")
	assert.Contains(t, query, "WHERE u.id = $1")
	assert.Contains(t, query, "GROUP BY u.id")
	assert.Equal(t, []interface{}{"abc"}, args)
}

func TestUserWithQuests_ToModel(t *testing.T) {
	row := userWithQuests{
		ID:            "u1",
		GoogleID:      "g1",
		XP:            25,
		QuestIDs:      pq.StringArray{"like_post_1", "follow_account_1"},
		QuestStatuses: pq.StringArray{"completed", "in_progress"},
	}

	u := row.toModel()
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, 25, u.XP)
	assert.Equal(t, model.QuestCompleted, u.QuestStatus("like_post_1"))
	assert.Equal(t, model.QuestInProgress, u.QuestStatus("follow_account_1"))
	assert.Equal(t, model.QuestNotStarted, u.QuestStatus("retweet_post_1"))

	empty := (&userWithQuests{ID: "u2"}).toModel()
	assert.NotNil(t, empty.Quests)
	assert.Empty(t, empty.Quests)
}

func TestConfig_GetDatabaseURL(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "app", Password: "secret", Name: "xquest"}
	assert.Equal(t, "postgres://app:secret@db:5432/xquest?sslmode=disable", cfg.GetDatabaseURL())

	cfg.SSLMode = "require"
	assert.Equal(t, "postgres://app:secret@db:5432/xquest?sslmode=require", cfg.GetDatabaseURL())
}
