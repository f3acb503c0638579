package api

import (
	"net/http"
	"time"

	"xquest/internal/model"
	"xquest/internal/service"
	"xquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	us service.UserServiceI
}

// NewUserRoutes mounts the profile endpoints. The update middlewares guard
// PATCH only.
func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, update ...gin.HandlerFunc) {
	r := &userRoutes{us: us}

	h := handler.Group("/users")
	{
		h.GET("/:id", r.GetUser)
		h.PATCH("/:id", append(update, r.UpdateUser)...)
	}
}

type userResponse struct {
	ID         string                       `json:"id"`
	Name       string                       `json:"name"`
	Email      string                       `json:"email"`
	XP         int                          `json:"xp"`
	XID        string                       `json:"xId,omitempty"`
	HasXLinked bool                         `json:"hasXLinked"`
	Quests     map[string]model.QuestStatus `json:"quests"`
	CreatedAt  time.Time                    `json:"createdAt"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		XP:         u.XP,
		XID:        u.XID,
		HasXLinked: u.HasXLinked(),
		Quests:     u.Quests,
		CreatedAt:  u.CreatedAt,
	}
}

type updateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=100"`
	Email *string `json:"email" binding:"omitempty,email"`
}

func (r *userRoutes) GetUser(c *gin.Context) {
	user, err := r.us.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "get user", err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (r *userRoutes) UpdateUser(c *gin.Context) {
	log := logger.Logger()

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Info("invalid profile update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if req.Name == nil && req.Email == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name or email required"})
		return
	}

	user, err := r.us.UpdateProfile(c.Request.Context(), c.Param("id"), req.Name, req.Email)
	if err != nil {
		writeError(c, "update user", err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}
