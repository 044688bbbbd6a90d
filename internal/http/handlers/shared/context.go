package shared

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextKeyRole   = "session_role"
	ContextKeyUserID = "session_user_id"
)

// GetContextString 从上下文读取字符串
func GetContextString(c *gin.Context, key string) string {
	value, ok := c.Get(key)
	if !ok {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
