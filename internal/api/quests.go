package api

import (
	"errors"
	"net/http"

	"xquest/internal/model"
	"xquest/internal/service"
	"xquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type questRoutes struct {
	qs service.QuestServiceI
}

// NewQuestRoutes mounts the quest endpoints. The manage middlewares run only
// in front of start and verify.
func NewQuestRoutes(handler *gin.RouterGroup, qs service.QuestServiceI, manage ...gin.HandlerFunc) {
	r := &questRoutes{qs: qs}

	h := handler.Group("/quests")
	{
		h.GET("", r.ListQuests)
		h.GET("/user/:id", r.GetUserQuests)

		m := h.Group("/manage/:questId")
		m.Use(manage...)
		m.POST("/start", r.StartQuest)
		m.POST("/verify", r.VerifyQuest)
	}
}

type userSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	XP         int    `json:"xp"`
	XID        string `json:"xId,omitempty"`
	HasXLinked bool   `json:"hasXLinked"`
}

func newUserSummary(u *model.User) userSummary {
	return userSummary{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		XP:         u.XP,
		XID:        u.XID,
		HasXLinked: u.HasXLinked(),
	}
}

type userQuestsResponse struct {
	Quests []model.QuestProgress `json:"quests"`
	User   userSummary           `json:"user"`
}

type manageQuestRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type startQuestResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	QuestID string            `json:"questId"`
	Status  model.QuestStatus `json:"status"`
}

type verifyQuestResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	QuestID  string            `json:"questId"`
	Status   model.QuestStatus `json:"status"`
	XPEarned *int              `json:"xpEarned,omitempty"`
	TotalXP  *int              `json:"totalXp,omitempty"`
}

func (r *questRoutes) ListQuests(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"quests": r.qs.Catalog()})
}

func (r *questRoutes) GetUserQuests(c *gin.Context) {
	user, quests, err := r.qs.ListUserQuests(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "get user quests", err)
		return
	}

	c.JSON(http.StatusOK, userQuestsResponse{
		Quests: quests,
		User:   newUserSummary(user),
	})
}

func (r *questRoutes) StartQuest(c *gin.Context) {
	questID := c.Param("questId")

	userID, ok := bindUserID(c)
	if !ok {
		return
	}

	status, err := r.qs.StartQuest(c.Request.Context(), userID, questID)
	if err != nil {
		writeError(c, "start quest", err)
		return
	}

	c.JSON(http.StatusOK, startQuestResponse{
		Success: true,
		Message: "Quest started successfully",
		QuestID: questID,
		Status:  status,
	})
}

func (r *questRoutes) VerifyQuest(c *gin.Context) {
	questID := c.Param("questId")

	userID, ok := bindUserID(c)
	if !ok {
		return
	}

	result, err := r.qs.VerifyQuest(c.Request.Context(), userID, questID)
	if err != nil {
		writeError(c, "verify quest", err)
		return
	}

	if !result.Completed {
		c.JSON(http.StatusOK, verifyQuestResponse{
			Success: false,
			Message: "Quest requirements not met",
			QuestID: questID,
			Status:  result.Status,
		})
		return
	}

	c.JSON(http.StatusOK, verifyQuestResponse{
		Success:  true,
		Message:  "Quest completed successfully",
		QuestID:  questID,
		Status:   result.Status,
		XPEarned: &result.XPEarned,
		TotalXP:  &result.TotalXP,
	})
}

func bindUserID(c *gin.Context) (string, bool) {
	var req manageQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User ID required"})
		return "", false
	}
	return req.UserID, true
}

// writeError maps service errors to responses. Anything unexpected is logged
// and hidden behind a generic 500.
func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, service.ErrQuestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Quest not found"})
	case errors.Is(err, service.ErrAccountNotLinked):
		c.JSON(http.StatusBadRequest, gin.H{"error": "X account not linked"})
	case errors.Is(err, service.ErrMissingCredential):
		c.JSON(http.StatusBadRequest, gin.H{"error": "X access token not found"})
	case errors.Is(err, service.ErrUnsupportedQuestType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported quest type"})
	case errors.Is(err, service.ErrQuestAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "Quest already completed"})
	default:
		logger.Logger().Error("failed to "+op,
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
