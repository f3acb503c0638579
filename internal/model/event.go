package model

import "time"

type QuestEventType string

const (
	EventQuestStarted   QuestEventType = "quest_started"
	EventQuestCompleted QuestEventType = "quest_completed"
)

type QuestEvent struct {
	Type       QuestEventType `json:"type"`
	UserID     string         `json:"userId"`
	QuestID    string         `json:"questId"`
	Status     QuestStatus    `json:"status"`
	XPEarned   int            `json:"xpEarned,omitempty"`
	TotalXP    int            `json:"totalXp"`
	OccurredAt time.Time      `json:"occurredAt"`
}
