package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"UD_contest_bot/internal/middleware"
	"UD_contest_bot/internal/model"
	"UD_contest_bot/internal/repository"
	"UD_contest_bot/internal/service"
	"UD_contest_bot/pkg/auth"
	"UD_contest_bot/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	us          service.UserServiceI
	botUsername string
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.TelegramAuth, authz *middleware.Authorization, botUsername string) {
	r := &userRoutes{us: us, botUsername: botUsername}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/me", r.GetMe)
		h.GET("/leaderboard", r.GetLeaderboard)
		h.GET("/:telegram_id", authz.SelfOrAdmin("telegram_id"), r.GetUserByTelegramID)
		h.GET("/:telegram_id/referrals", authz.SelfOrAdmin("telegram_id"), r.GetUserReferrals)
	}
}

type UserResponse struct {
	TelegramID  int64              `json:"telegram_id"`
	FirstName   string             `json:"first_name"`
	Username    string             `json:"username,omitempty"`
	FullName    *string            `json:"full_name"`
	PhoneNumber *string            `json:"phone_number"`
	Region      *string            `json:"region"`
	StudyStatus *model.StudyStatus `json:"study_status"`
	AgeRange    *model.AgeRange    `json:"age_range"`
	Status      model.UserStatus   `json:"status"`
	ReferrerID  *int64             `json:"referrer_id"`
	Points      int                `json:"points"`
	CreatedAt   time.Time          `json:"created_at"`
	ActivatedAt *time.Time         `json:"activated_at"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		TelegramID:  u.TelegramID,
		FirstName:   u.FirstName,
		Username:    u.Username,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Region:      u.Region,
		StudyStatus: u.StudyStatus,
		AgeRange:    u.AgeRange,
		Status:      u.Status,
		ReferrerID:  u.Referrer.Ptr(),
		Points:      u.Points,
		CreatedAt:   u.CreatedAt,
		ActivatedAt: u.ActivatedAt,
	}
}

func (r *userRoutes) GetMe(c *gin.Context) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		logger.Logger().Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	r.writeUser(c, user.ID)
}

func (r *userRoutes) GetUserByTelegramID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}
	r.writeUser(c, id)
}

func (r *userRoutes) writeUser(c *gin.Context, telegramID int64) {
	log := logger.Logger()

	user, err := r.us.GetUserByTelegramID(c.Request.Context(), telegramID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no user associated with the provided telegram_id"})
		return
	}
	if err != nil {
		log.Error("failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

type ReferralsResponse struct {
	TelegramID     int64    `json:"telegram_id"`
	ReferralLink   string   `json:"referral_link"`
	Pending        int      `json:"pending"`
	Confirmed      int      `json:"confirmed"`
	BonusEarned    int      `json:"bonus_earned"`
	RecentReferees []string `json:"recent_referees"`
}

func (r *userRoutes) GetUserReferrals(c *gin.Context) {
	log := logger.Logger()

	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	stats, err := r.us.GetReferralStats(c.Request.Context(), id)
	if errors.Is(err, service.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no user associated with the provided telegram_id"})
		return
	}
	if err != nil {
		log.Error("failed to get referral stats", zap.Int64("telegram_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get referrals"})
		return
	}

	referees := stats.RecentReferees
	if referees == nil {
		referees = []string{}
	}

	c.JSON(http.StatusOK, ReferralsResponse{
		TelegramID:     id,
		ReferralLink:   ReferralLink(r.botUsername, id),
		Pending:        stats.Pending,
		Confirmed:      stats.Confirmed,
		BonusEarned:    stats.Confirmed * model.ReferralBonus,
		RecentReferees: referees,
	})
}

type LeaderboardEntryResponse struct {
	Rank       int    `json:"rank"`
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Username   string `json:"username,omitempty"`
	Points     int    `json:"points"`
	Referrals  int    `json:"referrals"`
}

func (r *userRoutes) GetLeaderboard(c *gin.Context) {
	log := logger.Logger()

	entries, err := r.us.GetLeaderboard(c.Request.Context())
	if err != nil {
		log.Error("failed to get leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	out := make([]LeaderboardEntryResponse, 0, len(entries))
	for i, e := range entries {
		out = append(out, LeaderboardEntryResponse{
			Rank:       i + 1,
			TelegramID: e.TelegramID,
			Name:       e.Name,
			Username:   e.Username,
			Points:     e.Points,
			Referrals:  e.Referrals,
		})
	}

	c.JSON(http.StatusOK, out)
}

// ReferralLink is the deep link that starts the bot with telegramID as referrer.
func ReferralLink(botUsername string, telegramID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", botUsername, telegramID)
}
