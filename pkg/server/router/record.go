package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
	"github.com/known-customer/kcc-issuer-service/pkg/server/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/service/credential"
	svcframework "github.com/known-customer/kcc-issuer-service/pkg/service/framework"
)

type RecordRouter struct {
	service *credential.Service
}

func NewRecordRouter(s svcframework.Service) (*RecordRouter, error) {
	if s == nil {
		return nil, errors.New("service cannot be nil")
	}
	credentialService, ok := s.(*credential.Service)
	if !ok {
		return nil, fmt.Errorf("could not create record router with service type: %s", s.Type())
	}
	return &RecordRouter{service: credentialService}, nil
}

type QueryRecordsRequest struct {
	// The customer's DID. No format validation is performed.
	CustDID string `json:"custDid" validate:"required" example:"did:key:z6MkiTBz1ymuepAQ4HEHYSF1H8quG5GLVVQR3djdX3mDooWp"`
}

type QueryRecordsResponse struct {
	// The most recent credential record issued to the customer, absent when
	// none exist.
	Record *dwn.Record `json:"record,omitempty"`

	// The dereferenced content of that record.
	Content json.RawMessage `json:"content,omitempty"`
}

// QueryRecords godoc
//
// @Summary     Query Credential Records
// @Description Query the customer's DWN for credential records issued by this service
// @Tags        RecordAPI
// @Accept      json
// @Produce     json
// @Param       request body     QueryRecordsRequest true "request body"
// @Success     200     {object} QueryRecordsResponse
// @Failure     400     {string} string "Bad request"
// @Failure     502     {string} string "Bad gateway"
// @Router      / [post]
func (rr RecordRouter) QueryRecords(c *gin.Context) {
	var request QueryRecordsRequest
	if err := framework.Decode(c.Request, &request); err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "invalid query records request", http.StatusBadRequest)
		return
	}

	queryResponse, err := rr.service.QueryRecords(c, credential.QueryRecordsRequest{CustomerDID: request.CustDID})
	if err != nil {
		framework.LoggingRespondErrWithMsg(c, err, "could not query records from customer dwn", http.StatusBadGateway)
		return
	}

	resp := QueryRecordsResponse{Record: queryResponse.Record, Content: queryResponse.Content}
	framework.Respond(c, resp, http.StatusOK)
}
