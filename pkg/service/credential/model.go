package credential

import (
	"github.com/goccy/go-json"

	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
)

type IssueCredentialRequest struct {
	CustomerDID string `json:"customerDid" validate:"required"`
}

type IssueCredentialResponse struct {
	// Status is the DWN's verdict on the record send.
	Status dwn.Status `json:"status"`
	// Record is the queried-back record for the issued credential.
	Record *dwn.Record `json:"record,omitempty"`
	// RecordID identifies the record created by the write.
	RecordID string `json:"recordId"`
	// CredentialJWT is the signed Known Customer Credential.
	CredentialJWT string `json:"credentialJwt"`
}

type QueryRecordsRequest struct {
	CustomerDID string `json:"customerDid" validate:"required"`
}

type QueryRecordsResponse struct {
	// Record is the most recent credential record issued to the customer,
	// nil when none exist.
	Record *dwn.Record `json:"record,omitempty"`
	// Content is the dereferenced data of that record.
	Content json.RawMessage `json:"content,omitempty"`
}
