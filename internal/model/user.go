package model

import "time"

type User struct {
	ID           string                 `json:"id"`
	GoogleID     string                 `json:"googleId"`
	Email        string                 `json:"email"`
	Name         string                 `json:"name"`
	XID          string                 `json:"xId,omitempty"`
	XAccessToken string                 `json:"xAccessToken,omitempty"`
	XP           int                    `json:"xp"`
	Quests       map[string]QuestStatus `json:"quests"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// HasXLinked reports whether an X account has been linked to the user.
func (u *User) HasXLinked() bool {
	return u.XID != ""
}

// QuestStatus derives the status of questID from the stored progress map.
// A quest without an entry has not been started.
func (u *User) QuestStatus(questID string) QuestStatus {
	if status, ok := u.Quests[questID]; ok {
		return status
	}
	return QuestNotStarted
}

// Clone returns a deep copy so callers can't mutate store-owned maps.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Quests = make(map[string]QuestStatus, len(u.Quests))
	for id, status := range u.Quests {
		c.Quests[id] = status
	}
	return &c
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	Email        *string
	Name         *string
	XID          *string
	XAccessToken *string
}
