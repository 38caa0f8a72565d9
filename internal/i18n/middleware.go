package i18n

import "github.com/gin-gonic/gin"

// Middleware resolves the caller's language from the lang query parameter,
// then Accept-Language, and stores the localizer in the request context.
func (t *Translator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loc := t.Localizer(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Request = c.Request.WithContext(WithLocalizer(c.Request.Context(), loc))
		c.Next()
	}
}
