package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"xquest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type userWithQuests struct {
	ID            string         `db:"id"`
	GoogleID      string         `db:"google_id"`
	Email         string         `db:"email"`
	Name          string         `db:"name"`
	XID           string         `db:"x_id"`
	XAccessToken  string         `db:"x_access_token"`
	XP            int            `db:"xp"`
	CreatedAt     time.Time      `db:"created_at"`
	QuestIDs      pq.StringArray `db:"quest_ids"`
	QuestStatuses pq.StringArray `db:"quest_statuses"`
}

func (u *userWithQuests) toModel() *model.User {
	quests := make(map[string]model.QuestStatus, len(u.QuestIDs))
	for i := range u.QuestIDs {
		quests[u.QuestIDs[i]] = model.QuestStatus(u.QuestStatuses[i])
	}

	return &model.User{
		ID:           u.ID,
		GoogleID:     u.GoogleID,
		Email:        u.Email,
		Name:         u.Name,
		XID:          u.XID,
		XAccessToken: u.XAccessToken,
		XP:           u.XP,
		Quests:       quests,
		CreatedAt:    u.CreatedAt,
	}
}

func selectUsers() squirrel.SelectBuilder {
	return squirrel.Select(
		"u.id",
		"u.google_id",
		"u.email",
		"u.name",
		"u.x_id",
		"u.x_access_token",
		"u.xp",
		"u.created_at",
		"array_agg(uq.quest_id) FILTER (WHERE uq.quest_id IS NOT NULL) as quest_ids",
		"array_agg(uq.status) FILTER (WHERE uq.quest_id IS NOT NULL) as quest_statuses",
	).
		From("users u").
		LeftJoin("user_quests uq ON uq.user_id = u.id").
		GroupBy("u.id").
		PlaceholderFormat(squirrel.Dollar)
}

func getUser(ctx context.Context, q sqlx.QueryerContext, where squirrel.Sqlizer) (*model.User, error) {
	query, args, err := selectUsers().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	var user userWithQuests
	err = sqlx.GetContext(ctx, q, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user.toModel(), nil
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, r.db, squirrel.Eq{"u.id": id})
}

func (r *Repository) FindUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return getUser(ctx, r.db, squirrel.Eq{"u.google_id": googleID})
}

// CreateUser inserts user unless a record with the same google id exists, in
// which case the existing record is returned unchanged.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	var created *model.User

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		id := user.ID
		if id == "" {
			v7, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate user id: %w", err)
			}
			id = v7.String()
		}

		createdAt := user.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		query, args, err := squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"id":             id,
				"google_id":      user.GoogleID,
				"email":          user.Email,
				"name":           user.Name,
				"x_id":           user.XID,
				"x_access_token": user.XAccessToken,
				"xp":             user.XP,
				"created_at":     createdAt,
			}).
			Suffix("ON CONFLICT (google_id) DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user insert query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		created, err = getUser(ctx, tx, squirrel.Eq{"u.google_id": user.GoogleID})
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *Repository) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	fields := make(map[string]interface{})
	if update.Email != nil {
		fields["email"] = *update.Email
	}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.XID != nil {
		fields["x_id"] = *update.XID
	}
	if update.XAccessToken != nil {
		fields["x_access_token"] = *update.XAccessToken
	}

	if len(fields) == 0 {
		return r.FindUserByID(ctx, id)
	}

	var updated *model.User
	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("users").
			SetMap(fields).
			Where(squirrel.Eq{"id": id}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user update query: %w", err)
		}

		if err := execAffectingOne(ctx, tx, query, args...); err != nil {
			return err
		}

		updated, err = getUser(ctx, tx, squirrel.Eq{"u.id": id})
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *Repository) SetQuestStatus(ctx context.Context, userID, questID string, status model.QuestStatus) (*model.User, error) {
	var updated *model.User

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := getUser(ctx, tx, squirrel.Eq{"u.id": userID}); err != nil {
			return err
		}

		if err := upsertQuestStatus(ctx, tx, userID, questID, status); err != nil {
			return err
		}

		var err error
		updated, err = getUser(ctx, tx, squirrel.Eq{"u.id": userID})
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// CompleteQuest credits xp and marks the quest completed in one transaction.
func (r *Repository) CompleteQuest(ctx context.Context, userID, questID string, xp int) (*model.User, error) {
	var updated *model.User

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := getUser(ctx, tx, squirrel.Eq{"u.id": userID}); err != nil {
			return err
		}

		if err := upsertQuestStatus(ctx, tx, userID, questID, model.QuestCompleted); err != nil {
			return err
		}

		if err := addXP(ctx, tx, userID, xp); err != nil {
			return err
		}

		var err error
		updated, err = getUser(ctx, tx, squirrel.Eq{"u.id": userID})
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func upsertQuestStatus(ctx context.Context, tx *sqlx.Tx, userID, questID string, status model.QuestStatus) error {
	query, args, err := squirrel.
		Insert("user_quests").
		Columns("user_id", "quest_id", "status", "updated_at").
		Values(userID, questID, string(status), time.Now().UTC()).
		Suffix("ON CONFLICT (user_id, quest_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest status query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update quest status: %w", err)
	}

	return nil
}

func addXP(ctx context.Context, tx *sqlx.Tx, userID string, xp int) error {
	query, args, err := squirrel.
		Update("users").
		Set("xp", squirrel.Expr("xp + ?", xp)).
		Where(squirrel.Eq{"id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build xp update query: %w", err)
	}

	return execAffectingOne(ctx, tx, query, args...)
}

func execAffectingOne(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute update: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
