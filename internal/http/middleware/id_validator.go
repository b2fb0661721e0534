package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// IDValidator проверяет, что параметр с указанным именем — положительное целое.
// Использование: router.GET("/appointments/:id", IDValidator("id"), handler.Get)
func IDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "параметр " + paramName + " обязателен",
			})
			return
		}

		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "параметр " + paramName + " должен быть положительным числом",
			})
			return
		}

		c.Next()
	}
}
