package credential

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/TBD54566975/ssi-sdk/credential/integrity"
	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"

	"github.com/known-customer/kcc-issuer-service/config"
	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
	"github.com/known-customer/kcc-issuer-service/pkg/service/issuer"
	"github.com/known-customer/kcc-issuer-service/pkg/storage"
)

const (
	testDWNEndpoint = "https://dwn.test.example.com"
	testCustomerDID = "did:key:z6MkCustomer"
)

func testIssuerConfig() config.IssuerServiceConfig {
	return config.IssuerServiceConfig{
		DWNEndpoint:        testDWNEndpoint,
		AuthGatewayBaseURL: "https://auth.test.example.com/authorize",
		ProtocolURI:        "https://kcc.dev/protocols/credential-exchange",
		CredentialSchema:   "https://kcc.dev/schemas/known-customer-credential",
		Claims: config.KCCClaims{
			Country:      "US",
			Tier:         "Tier1",
			Jurisdiction: "US-NY",
		},
		ExpiryDays: 365,
	}
}

// registeredServices spins up an issuer registered against a mocked DWN and a
// credential service with a fixed clock.
func registeredServices(t *testing.T, now time.Time) (*Service, *issuer.Service) {
	gock.New(testDWNEndpoint).
		Post("/protocols-configure").
		Reply(http.StatusOK).
		JSON(dwn.ProtocolsConfigureResponse{Status: dwn.Status{Code: 202}})

	db := storage.NewMemoryDB()
	dwnClient, err := dwn.NewClient(testDWNEndpoint)
	require.NoError(t, err)

	issuerService, err := issuer.NewIssuerService(testIssuerConfig(), db, dwnClient)
	require.NoError(t, err)
	_, err = issuerService.Register(context.Background())
	require.NoError(t, err)

	mockClock := clock.NewMock()
	mockClock.Set(now)

	credentialService, err := NewCredentialService(testIssuerConfig(), issuerService, dwnClient, mockClock)
	require.NoError(t, err)
	return credentialService, issuerService
}

func TestIssueCredential(t *testing.T) {
	defer gock.Off()
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	credentialService, issuerService := registeredServices(t, now)
	ctx := context.Background()

	gock.New(testDWNEndpoint).
		Post("/records-write").
		Reply(http.StatusOK).
		JSON(dwn.RecordsWriteResponse{
			Status: dwn.Status{Code: 202, Detail: "Accepted"},
			Record: &dwn.Record{ID: "record-2", Recipient: testCustomerDID},
		})
	gock.New(testDWNEndpoint).
		Post("/records-query").
		Reply(http.StatusOK).
		JSON(dwn.RecordsQueryResponse{
			Status: dwn.Status{Code: 200},
			Records: []dwn.Record{
				{ID: "record-1"},
				{ID: "record-2", Recipient: testCustomerDID},
				{ID: "record-3"},
			},
		})

	resp, err := credentialService.IssueCredential(ctx, IssueCredentialRequest{CustomerDID: testCustomerDID})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, 202, resp.Status.Code)
	assert.Equal(t, "record-2", resp.RecordID)

	// query-back correlates by record ID, not list position
	require.NotNil(t, resp.Record)
	assert.Equal(t, "record-2", resp.Record.ID)

	// the signed KCC carries the configured claims and a 365-day window
	_, _, cred, err := integrity.ParseVerifiableCredentialFromJWT(resp.CredentialJWT)
	require.NoError(t, err)

	issuerDID, err := issuerService.DID(ctx)
	require.NoError(t, err)
	assert.Equal(t, issuerDID, cred.Issuer)
	assert.Equal(t, testCustomerDID, cred.CredentialSubject["id"])
	assert.Equal(t, "US", cred.CredentialSubject["country"])
	assert.Equal(t, "Tier1", cred.CredentialSubject["tier"])
	assert.Equal(t, "US-NY", cred.CredentialSubject["jurisdiction"])
	assert.Equal(t, now.Format(time.RFC3339), cred.IssuanceDate)
	assert.Equal(t, now.AddDate(0, 0, 365).Format(time.RFC3339), cred.ExpirationDate)
	assert.NotEmpty(t, cred.Evidence)
}

func TestIssueCredentialFallsBackToLastRecord(t *testing.T) {
	defer gock.Off()
	credentialService, _ := registeredServices(t, time.Now())

	gock.New(testDWNEndpoint).
		Post("/records-write").
		Reply(http.StatusOK).
		JSON(dwn.RecordsWriteResponse{Status: dwn.Status{Code: 202}})
	gock.New(testDWNEndpoint).
		Post("/records-query").
		Reply(http.StatusOK).
		JSON(dwn.RecordsQueryResponse{
			Status:  dwn.Status{Code: 200},
			Records: []dwn.Record{{ID: "record-1"}, {ID: "record-2"}},
		})

	resp, err := credentialService.IssueCredential(context.Background(), IssueCredentialRequest{CustomerDID: testCustomerDID})
	require.NoError(t, err)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "record-2", resp.Record.ID)
	assert.Empty(t, resp.RecordID)
}

func TestIssueCredentialDWNFailure(t *testing.T) {
	defer gock.Off()
	credentialService, _ := registeredServices(t, time.Now())

	gock.New(testDWNEndpoint).
		Post("/records-write").
		Reply(http.StatusBadGateway).
		BodyString("dwn unavailable")

	_, err := credentialService.IssueCredential(context.Background(), IssueCredentialRequest{CustomerDID: testCustomerDID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not send credential record")
}

func TestQueryRecords(t *testing.T) {
	defer gock.Off()
	credentialService, _ := registeredServices(t, time.Now())

	content := json.RawMessage(`"eyJhbGciOiJFZERTQSJ9..sig"`)
	gock.New(testDWNEndpoint).
		Post("/records-query").
		Reply(http.StatusOK).
		JSON(dwn.RecordsQueryResponse{
			Status:  dwn.Status{Code: 200},
			Records: []dwn.Record{{ID: "record-1"}, {ID: "record-2"}},
		})
	gock.New(testDWNEndpoint).
		Post("/records-read").
		Reply(http.StatusOK).
		JSON(dwn.RecordsReadResponse{
			Status: dwn.Status{Code: 200},
			Record: &dwn.Record{ID: "record-2"},
			Data:   content,
		})

	resp, err := credentialService.QueryRecords(context.Background(), QueryRecordsRequest{CustomerDID: testCustomerDID})
	require.NoError(t, err)
	require.NotNil(t, resp.Record)

	// the most recent record is returned with its dereferenced content
	assert.Equal(t, "record-2", resp.Record.ID)
	assert.Equal(t, content, resp.Content)
}

func TestQueryRecordsEmpty(t *testing.T) {
	defer gock.Off()
	credentialService, _ := registeredServices(t, time.Now())

	gock.New(testDWNEndpoint).
		Post("/records-query").
		Reply(http.StatusOK).
		JSON(dwn.RecordsQueryResponse{Status: dwn.Status{Code: 200}})

	resp, err := credentialService.QueryRecords(context.Background(), QueryRecordsRequest{CustomerDID: testCustomerDID})
	require.NoError(t, err)
	assert.Nil(t, resp.Record)
	assert.Empty(t, resp.Content)
}

func TestIssueCredentialUnregisteredIssuer(t *testing.T) {
	db := storage.NewMemoryDB()
	dwnClient, err := dwn.NewClient(testDWNEndpoint)
	require.NoError(t, err)
	issuerService, err := issuer.NewIssuerService(testIssuerConfig(), db, dwnClient)
	require.NoError(t, err)

	credentialService, err := NewCredentialService(testIssuerConfig(), issuerService, dwnClient, nil)
	require.NoError(t, err)

	_, err = credentialService.IssueCredential(context.Background(), IssueCredentialRequest{CustomerDID: testCustomerDID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not load bearer identity")
}
