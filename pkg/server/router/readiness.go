package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/known-customer/kcc-issuer-service/pkg/server/framework"
	svcframework "github.com/known-customer/kcc-issuer-service/pkg/service/framework"
)

type GetReadinessResponse struct {
	// Overall status of the service.
	Status svcframework.Status `json:"status"`

	// A map from the name of each service to its status.
	ServiceStatuses map[svcframework.Type]svcframework.Status `json:"serviceStatuses"`
}

// Readiness godoc
//
// @Summary     Readiness
// @Description Runs a number of application specific checks to see if all the relied upon services are healthy.
// @Tags        HealthCheck
// @Accept      json
// @Produce     json
// @Success     200 {object} GetReadinessResponse
// @Failure     500 {string} string "Internal server error"
// @Router      /readiness [get]
func Readiness(services []svcframework.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		readyServices := 0
		statuses := make(map[svcframework.Type]svcframework.Status, len(services))
		for _, s := range services {
			status := s.Status()
			statuses[s.Type()] = status
			if status.IsReady() {
				readyServices++
			}
		}

		status := svcframework.Status{Status: svcframework.StatusReady, Message: "all services ready"}
		if readyServices < len(services) {
			status = svcframework.Status{
				Status:  svcframework.StatusNotReady,
				Message: fmt.Sprintf("out of [%d] services, [%d] are ready", len(services), readyServices),
			}
		}

		framework.Respond(c, GetReadinessResponse{Status: status, ServiceStatuses: statuses}, http.StatusOK)
	}
}
