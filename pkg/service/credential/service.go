// Package credential issues Known Customer Credentials: it builds and signs a
// verifiable credential for a customer DID, publishes it as a record on the
// customer's DWN, and queries issued records back.
package credential

import (
	"context"
	"time"

	credsdk "github.com/TBD54566975/ssi-sdk/credential"
	"github.com/TBD54566975/ssi-sdk/credential/integrity"
	"github.com/TBD54566975/ssi-sdk/crypto"
	"github.com/TBD54566975/ssi-sdk/crypto/jwx"
	sdkutil "github.com/TBD54566975/ssi-sdk/util"
	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/known-customer/kcc-issuer-service/config"
	"github.com/known-customer/kcc-issuer-service/internal/util"
	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
	"github.com/known-customer/kcc-issuer-service/pkg/service/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/service/issuer"
)

const credentialSchemaType = "JsonSchema2023"

type Service struct {
	config config.IssuerServiceConfig
	issuer *issuer.Service
	dwn    *dwn.Client
	clock  clock.Clock
}

func (s *Service) Type() framework.Type {
	return framework.Credential
}

func (s *Service) Status() framework.Status {
	ae := sdkutil.NewAppendError()
	if s.issuer == nil {
		ae.AppendString("no issuer service configured")
	}
	if s.dwn == nil {
		ae.AppendString("no dwn client configured")
	}
	if !ae.IsEmpty() {
		return framework.Status{Status: framework.StatusNotReady, Message: ae.Error().Error()}
	}
	return framework.Status{Status: framework.StatusReady}
}

func NewCredentialService(config config.IssuerServiceConfig, issuerService *issuer.Service, dwnClient *dwn.Client, clk clock.Clock) (*Service, error) {
	if clk == nil {
		clk = clock.New()
	}
	service := Service{config: config, issuer: issuerService, dwn: dwnClient, clock: clk}
	if !service.Status().IsReady() {
		return nil, errors.New(service.Status().Message)
	}
	return &service, nil
}

// IssueCredential builds a KCC for the customer, signs it with the issuer's
// bearer identity, sends it to the customer's DWN without storing it locally,
// and queries the record back.
func (s *Service) IssueCredential(ctx context.Context, request IssueCredentialRequest) (*IssueCredentialResponse, error) {
	logrus.Debugf("issuing credential for customer: %s", util.SanitizeLog(request.CustomerDID))

	identity, err := s.issuer.BearerIdentity(ctx)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not load bearer identity")
	}

	cred, err := s.buildCredential(identity.DIDURI, request.CustomerDID)
	if err != nil {
		return nil, err
	}

	credJWT, err := signCredential(*identity, *cred)
	if err != nil {
		return nil, err
	}

	credData, err := json.Marshal(credJWT)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling credential data")
	}

	writeResponse, err := s.dwn.WriteRecord(ctx, dwn.RecordsWriteRequest{
		MessageID:    uuid.NewString(),
		Author:       identity.DIDURI,
		Recipient:    request.CustomerDID,
		Protocol:     s.config.ProtocolURI,
		ProtocolPath: dwn.CredentialRecordType,
		ProtocolRole: dwn.IssuerRole,
		Schema:       s.config.CredentialSchema,
		DataFormat:   dwn.VCJWTDataFormat,
		Data:         credData,
		Store:        false,
	})
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not send credential record to customer dwn")
	}

	queryResponse, err := s.dwn.QueryRecords(ctx, dwn.RecordsQueryRequest{
		From: request.CustomerDID,
		Filter: dwn.RecordFilter{
			DataFormat: dwn.VCJWTDataFormat,
			Author:     identity.DIDURI,
			Recipient:  request.CustomerDID,
		},
	})
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not query issued records")
	}

	var recordID string
	if writeResponse.Record != nil {
		recordID = writeResponse.Record.ID
	}

	return &IssueCredentialResponse{
		Status:        writeResponse.Status,
		Record:        selectRecord(queryResponse.Records, recordID),
		RecordID:      recordID,
		CredentialJWT: credJWT,
	}, nil
}

// QueryRecords returns the most recent credential record issued to the
// customer together with its dereferenced content.
func (s *Service) QueryRecords(ctx context.Context, request QueryRecordsRequest) (*QueryRecordsResponse, error) {
	logrus.Debugf("querying credential records for customer: %s", util.SanitizeLog(request.CustomerDID))

	didURI, err := s.issuer.DID(ctx)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not load issuer did")
	}

	queryResponse, err := s.dwn.QueryRecords(ctx, dwn.RecordsQueryRequest{
		From: request.CustomerDID,
		Filter: dwn.RecordFilter{
			DataFormat: dwn.VCJWTDataFormat,
			Author:     didURI,
			Recipient:  request.CustomerDID,
		},
	})
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not query issued records")
	}
	if len(queryResponse.Records) == 0 {
		return &QueryRecordsResponse{}, nil
	}

	record := queryResponse.Records[len(queryResponse.Records)-1]
	readResponse, err := s.dwn.ReadRecord(ctx, dwn.RecordsReadRequest{
		From:     request.CustomerDID,
		RecordID: record.ID,
	})
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not read record content")
	}

	return &QueryRecordsResponse{Record: &record, Content: readResponse.Data}, nil
}

// buildCredential assembles the unsigned KCC with the configured claim set and
// a validity window of the configured number of calendar days.
func (s *Service) buildCredential(issuerDID, customerDID string) (*credsdk.VerifiableCredential, error) {
	builder := credsdk.NewVerifiableCredentialBuilder()

	if err := builder.SetIssuer(issuerDID); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not set credential issuer")
	}

	subject := credsdk.CredentialSubject{
		credsdk.VerifiableCredentialIDProperty: customerDID,
		"country":      s.config.Claims.Country,
		"tier":         s.config.Claims.Tier,
		"jurisdiction": s.config.Claims.Jurisdiction,
	}
	if err := builder.SetCredentialSubject(subject); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not set credential subject")
	}

	if err := builder.SetCredentialSchema(credsdk.CredentialSchema{
		ID:   s.config.CredentialSchema,
		Type: credentialSchemaType,
	}); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not set credential schema")
	}

	now := s.clock.Now().UTC()
	if err := builder.SetIssuanceDate(now.Format(time.RFC3339)); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not set credential issuance date")
	}
	if err := builder.SetExpirationDate(util.ExpirationDate(now, s.config.ExpiryDays)); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not set credential expiration date")
	}

	if err := builder.SetEvidence([]any{
		map[string]any{"kind": "document_verification", "checks": []string{"passport", "utility_bill"}},
		map[string]any{"kind": "sanctions_screening", "checks": []string{"PEP", "OFAC"}},
	}); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not set credential evidence")
	}

	cred, err := builder.Build()
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not build credential")
	}
	return cred, nil
}

// signCredential signs the credential as a JWT with the bearer identity's key.
func signCredential(identity issuer.BearerIdentity, cred credsdk.VerifiableCredential) (string, error) {
	privKeyBytes, err := base58.Decode(identity.PrivateKeyBase58)
	if err != nil {
		return "", errors.Wrap(err, "decoding private key")
	}
	privKey, err := crypto.BytesToPrivKey(privKeyBytes, identity.KeyType)
	if err != nil {
		return "", errors.Wrap(err, "reconstructing private key")
	}
	signer, err := jwx.NewJWXSigner(identity.DIDURI, identity.KeyID, privKey)
	if err != nil {
		return "", errors.Wrap(err, "creating signer")
	}
	credTokenBytes, err := integrity.SignVerifiableCredentialJWT(*signer, cred)
	if err != nil {
		return "", errors.Wrap(err, "signing credential")
	}
	return string(credTokenBytes), nil
}

// selectRecord correlates the query-back result with the record the write
// created, falling back to the last entry when no ID matches.
func selectRecord(records []dwn.Record, recordID string) *dwn.Record {
	if len(records) == 0 {
		return nil
	}
	if recordID != "" {
		for i := range records {
			if records[i].ID == recordID {
				return &records[i]
			}
		}
	}
	return &records[len(records)-1]
}
