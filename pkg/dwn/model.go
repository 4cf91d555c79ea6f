// Package dwn is an HTTP client for a remote Decentralized Web Node. The DWN
// owns record storage, replication, and protocol enforcement; this client only
// shapes and sends messages.
package dwn

import (
	"github.com/goccy/go-json"
)

// Roles and record types of the credential-exchange protocol.
const (
	CredentialRecordType = "credential"
	IssuerRole           = "issuer"
	JudgeRole            = "judge"

	VCJWTDataFormat = "application/vc+jwt"
	JSONDataFormat  = "application/json"
)

// ProtocolType names a record type's schema and accepted data formats.
type ProtocolType struct {
	Schema      string   `json:"schema,omitempty"`
	DataFormats []string `json:"dataFormats,omitempty"`
}

// ProtocolAction grants a role the ability to perform actions on a record path.
type ProtocolAction struct {
	Role string   `json:"role,omitempty"`
	Who  string   `json:"who,omitempty"`
	Can  []string `json:"can"`
}

// ProtocolRule is the rule set for a single record path within a protocol.
type ProtocolRule struct {
	Role    bool             `json:"$role,omitempty"`
	Actions []ProtocolAction `json:"$actions,omitempty"`
}

// ProtocolDefinition is the full credential-exchange protocol descriptor the
// remote DWN enforces. It is immutable after registration.
type ProtocolDefinition struct {
	Protocol  string                  `json:"protocol"`
	Published bool                    `json:"published"`
	Types     map[string]ProtocolType `json:"types"`
	Structure map[string]ProtocolRule `json:"structure"`
}

// DefaultProtocolDefinition returns the credential-exchange protocol: issuers
// may create credential records, judges may query and read them.
func DefaultProtocolDefinition(protocolURI, credentialSchema string) ProtocolDefinition {
	return ProtocolDefinition{
		Protocol:  protocolURI,
		Published: true,
		Types: map[string]ProtocolType{
			CredentialRecordType: {
				Schema:      credentialSchema,
				DataFormats: []string{VCJWTDataFormat},
			},
			IssuerRole: {DataFormats: []string{JSONDataFormat}},
			JudgeRole:  {DataFormats: []string{JSONDataFormat}},
		},
		Structure: map[string]ProtocolRule{
			IssuerRole: {Role: true},
			JudgeRole:  {Role: true},
			CredentialRecordType: {
				Actions: []ProtocolAction{
					{Role: IssuerRole, Can: []string{"create"}},
					{Role: JudgeRole, Can: []string{"query", "read"}},
				},
			},
		},
	}
}

// Status reports the outcome of a DWN message, in the DWN's own terms.
type Status struct {
	Code   int    `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// Record is the DWN's handle for a stored or replicated message.
type Record struct {
	ID          string          `json:"recordId"`
	Author      string          `json:"author,omitempty"`
	Recipient   string          `json:"recipient,omitempty"`
	Protocol    string          `json:"protocol,omitempty"`
	Schema      string          `json:"schema,omitempty"`
	DataFormat  string          `json:"dataFormat,omitempty"`
	DateCreated string          `json:"dateCreated,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

type ProtocolsConfigureRequest struct {
	Author     string             `json:"author" validate:"required"`
	Definition ProtocolDefinition `json:"definition" validate:"required"`
}

type ProtocolsConfigureResponse struct {
	Status Status `json:"status"`
}

type RecordsWriteRequest struct {
	MessageID    string          `json:"messageId" validate:"required"`
	Author       string          `json:"author" validate:"required"`
	Recipient    string          `json:"recipient,omitempty"`
	Protocol     string          `json:"protocol,omitempty"`
	ProtocolPath string          `json:"protocolPath,omitempty"`
	ProtocolRole string          `json:"protocolRole,omitempty"`
	Schema       string          `json:"schema,omitempty"`
	DataFormat   string          `json:"dataFormat" validate:"required"`
	Data         json.RawMessage `json:"data,omitempty"`

	// Store false issues the record without persisting it locally on the
	// author's node; durability is the recipient DWN's concern.
	Store     bool `json:"store"`
	Published bool `json:"published"`
}

type RecordsWriteResponse struct {
	Status Status  `json:"status"`
	Record *Record `json:"record,omitempty"`
}

// RecordFilter selects records by dataFormat and author, scoped to a target DID.
type RecordFilter struct {
	DataFormat   string `json:"dataFormat,omitempty"`
	Author       string `json:"author,omitempty"`
	Recipient    string `json:"recipient,omitempty"`
	Protocol     string `json:"protocol,omitempty"`
	ProtocolPath string `json:"protocolPath,omitempty"`
}

type RecordsQueryRequest struct {
	// From is the DID whose DWN is queried.
	From   string       `json:"from" validate:"required"`
	Filter RecordFilter `json:"filter"`
}

type RecordsQueryResponse struct {
	Status  Status   `json:"status"`
	Records []Record `json:"records,omitempty"`
}

type RecordsReadRequest struct {
	From     string `json:"from" validate:"required"`
	RecordID string `json:"recordId" validate:"required"`
}

type RecordsReadResponse struct {
	Status Status          `json:"status"`
	Record *Record         `json:"record,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}
