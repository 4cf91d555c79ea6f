package middleware

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/known-customer/kcc-issuer-service/pkg/server/framework"
)

// Errors handles errors coming out of the call stack. Safe application errors
// have already been responded to by the routers; anything left in the gin error
// list is unexpected and gets logged. A shutdown-worthy error signals the
// server to stop.
func Errors(shutdown chan os.Signal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ginErrors := c.Errors.ByType(gin.ErrorTypeAny)
		if len(ginErrors) == 0 {
			return
		}

		for _, e := range ginErrors {
			if framework.IsShutdown(e.Err) {
				logrus.WithError(e.Err).Error("unsafe error, shutting down")
				shutdown <- os.Interrupt
				return
			}
		}

		logrus.Errorf("request errors: %v", ginErrors)
	}
}
