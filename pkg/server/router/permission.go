package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/known-customer/kcc-issuer-service/pkg/server/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/service/permission"
)

type PermissionRouter struct {
	service *permission.Service
}

func NewPermissionRouter(s *permission.Service) (*PermissionRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	return &PermissionRouter{service: s}, nil
}

// GetPermission godoc
//
// @Summary     Get Permission
// @Description Consult the authorization gateway for this issuer and return its payload verbatim
// @Tags        PermissionAPI
// @Accept      json
// @Produce     json
// @Success     200 {object} object
// @Failure     502 {string} string "Bad gateway"
// @Router      /get-permission [post]
func (pr PermissionRouter) GetPermission(c *gin.Context) {
	payload, err := pr.service.CheckPermission(c)
	if err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "could not check permission with authorization gateway", http.StatusBadGateway)
		return
	}

	// the flag records that the gateway answered, not what it answered
	if err = pr.service.MarkGranted(c); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "could not persist permission flag", http.StatusInternalServerError)
		return
	}

	framework.Respond(c, json.RawMessage(payload), http.StatusOK)
}
