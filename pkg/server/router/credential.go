package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
	"github.com/known-customer/kcc-issuer-service/pkg/server/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/service/credential"
	svcframework "github.com/known-customer/kcc-issuer-service/pkg/service/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/service/permission"
)

type CredentialRouter struct {
	service    *credential.Service
	permission *permission.Service
}

func NewCredentialRouter(s svcframework.Service, permissionService *permission.Service) (*CredentialRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	credentialService, ok := s.(*credential.Service)
	if !ok {
		return nil, fmt.Errorf("could not create credential router with service type: %s", s.Type())
	}
	if permissionService == nil {
		return nil, errors.New("permission service cannot be nil")
	}
	return &CredentialRouter{service: credentialService, permission: permissionService}, nil
}

type GetCredentialRequest struct {
	// The customer's DID. No format validation is performed.
	CustDID string `json:"custDid" validate:"required" example:"did:key:z6MkiTBz1ymuepAQ4HEHYSF1H8quG5GLVVQR3djdX3mDooWp"`
}

type GetCredentialResponse struct {
	// The DWN's verdict on the record send.
	Status dwn.Status `json:"status"`

	// The queried-back record for the issued credential.
	Record *dwn.Record `json:"record,omitempty"`

	// The id of the record created by the write.
	ID string `json:"id"`

	// The signed Known Customer Credential in `application/vc+jwt` form.
	KCC string `json:"KCC"`
}

// GetCredential godoc
//
// @Summary     Get Known Customer Credential
// @Description Issue a Known Customer Credential for the customer after checking with the authorization gateway
// @Tags        CredentialAPI
// @Accept      json
// @Produce     json
// @Param       request body     GetCredentialRequest true "request body"
// @Success     200     {object} GetCredentialResponse
// @Failure     400     {string} string "Bad request"
// @Failure     502     {string} string "Bad gateway"
// @Router      /get-credential [post]
func (cr CredentialRouter) GetCredential(c *gin.Context) {
	var request GetCredentialRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid get credential request", http.StatusBadRequest)
		return
	}

	if err := cr.ensurePermission(c); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "could not obtain permission from authorization gateway", http.StatusBadGateway)
		return
	}

	issueResponse, err := cr.service.IssueCredential(c, credential.IssueCredentialRequest{CustomerDID: request.CustDID})
	if err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "could not issue credential", http.StatusBadGateway)
		return
	}

	resp := GetCredentialResponse{
		Status: issueResponse.Status,
		Record: issueResponse.Record,
		ID:     issueResponse.RecordID,
		KCC:    issueResponse.CredentialJWT,
	}
	framework.Respond(c, resp, http.StatusOK)
}

// ensurePermission consults the gateway unless the permission flag is already
// set. Any successful round-trip sets the flag; the payload is not inspected.
func (cr CredentialRouter) ensurePermission(c *gin.Context) error {
	granted, err := cr.permission.IsGranted(c)
	if err != nil {
		return err
	}
	if granted {
		return nil
	}

	if _, err = cr.permission.CheckPermission(c); err != nil {
		return err
	}
	if err = cr.permission.MarkGranted(c); err != nil {
		return err
	}
	logrus.Info("permission granted by authorization gateway")
	return nil
}
