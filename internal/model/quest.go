package model

type QuestType string

const (
	QuestTypeLike    QuestType = "like"
	QuestTypeFollow  QuestType = "follow"
	QuestTypeRetweet QuestType = "retweet"
)

type QuestStatus string

const (
	QuestNotStarted QuestStatus = "not_started"
	QuestInProgress QuestStatus = "in_progress"
	QuestCompleted  QuestStatus = "completed"
)

type Quest struct {
	ID           string    `json:"id" yaml:"id"`
	Type         QuestType `json:"type" yaml:"type"`
	Title        string    `json:"title" yaml:"title"`
	TargetPostID string    `json:"target_post_id,omitempty" yaml:"target_post_id"`
	TargetUserID string    `json:"target_user_id,omitempty" yaml:"target_user_id"`
	XP           int       `json:"xp" yaml:"xp"`
}

// Target returns the post or user id the quest points at.
func (q Quest) Target() string {
	if q.Type == QuestTypeFollow {
		return q.TargetUserID
	}
	return q.TargetPostID
}

type QuestProgress struct {
	Quest
	Status QuestStatus `json:"status"`
}

type VerifyResult struct {
	QuestID   string
	Completed bool
	Status    QuestStatus
	XPEarned  int
	TotalXP   int
}
