package auth

import (
	"net/http"
	"strings"
	"time"

	"UD_contest_bot/pkg/logger"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"
)

const (
	expTime = 24 * time.Hour

	authScheme = "Telegram "
	// Browsers cannot set headers on websocket handshakes.
	authQueryParam = "auth"

	contextKey = "telegram_user"
)

type TelegramAuth struct {
	botToken  string
	debugMode bool
}

func NewTelegramAuth(botToken string, debugMode bool) *TelegramAuth {
	return &TelegramAuth{
		botToken:  botToken,
		debugMode: debugMode,
	}
}

type TelegramUserData struct {
	ID        int64
	Username  string
	FirstName string
	AuthDate  time.Time
}

// TelegramAuthMiddleware accepts mini app init data from the Authorization header
// ("Telegram <init data>") or from the auth query parameter.
func (t *TelegramAuth) TelegramAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		raw, ok := initDataFromRequest(c)
		if !ok {
			log.Info("missing telegram authorization")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		if !t.debugMode {
			if err := initdata.Validate(raw, t.botToken, expTime); err != nil {
				log.Info("invalid telegram init data", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram auth data"})
				return
			}
		}

		user, err := ExtractTelegramData(raw)
		if err != nil {
			log.Info("failed to extract telegram data", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram data"})
			return
		}

		c.Set(contextKey, user)
		c.Next()
	}
}

func initDataFromRequest(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		raw, ok := strings.CutPrefix(header, authScheme)
		return raw, ok && raw != ""
	}
	raw := c.Query(authQueryParam)
	return raw, raw != ""
}

func ExtractTelegramData(raw string) (*TelegramUserData, error) {
	data, err := initdata.Parse(raw)
	if err != nil {
		return nil, err
	}

	return &TelegramUserData{
		ID:        data.User.ID,
		Username:  data.User.Username,
		FirstName: data.User.FirstName,
		AuthDate:  data.AuthDate(),
	}, nil
}

// UserFromContext returns the user stored by TelegramAuthMiddleware.
func UserFromContext(c *gin.Context) (*TelegramUserData, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*TelegramUserData)
	return user, ok
}

// SetUser stores user the way TelegramAuthMiddleware does.
func SetUser(c *gin.Context, user *TelegramUserData) {
	c.Set(contextKey, user)
}
