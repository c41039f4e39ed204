package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/utils"
)

// RoleCheck menjaga route group per role. Admin selalu lolos; viewer hanya
// untuk route viewer.
func RoleCheck(allowed ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawRole, exists := c.Get("role")
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		roleStr, _ := rawRole.(string)
		userRole, ok := models.ParseRole(roleStr)
		if !ok {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("unknown role %q", roleStr))
			c.Abort()
			return
		}

		if userRole == models.RoleAdmin {
			c.Next()
			return
		}

		for _, role := range allowed {
			if userRole == role {
				c.Next()
				return
			}
		}

		utils.RespondError(c, http.StatusForbidden, fmt.Errorf("%s access required", allowedLabel(allowed)))
		c.Abort()
	}
}

func allowedLabel(roles []models.Role) string {
	if len(roles) == 1 {
		return string(roles[0])
	}
	label := ""
	for i, role := range roles {
		if i > 0 {
			label += "/"
		}
		label += string(role)
	}
	return label
}
