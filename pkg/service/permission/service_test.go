package permission

import (
	"context"
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gopkg.in/h2non/gock.v1"

	"github.com/known-customer/kcc-issuer-service/config"
	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
	"github.com/known-customer/kcc-issuer-service/pkg/service/issuer"
	"github.com/known-customer/kcc-issuer-service/pkg/storage"
)

const (
	testGateway = "https://auth.test.example.com"
	testIssuer  = "did:key:z6MkIssuer"
)

func testPermissionService(t *testing.T) (*Service, storage.ServiceStorage) {
	issuerConfig := config.IssuerServiceConfig{
		DWNEndpoint:        "https://dwn.test.example.com",
		AuthGatewayBaseURL: testGateway + "/authorize",
	}
	db := storage.NewMemoryDB()
	dwnClient, err := dwn.NewClient(issuerConfig.DWNEndpoint)
	require.NoError(t, err)
	issuerService, err := issuer.NewIssuerService(issuerConfig, db, dwnClient)
	require.NoError(t, err)

	service, err := NewPermissionService(issuerConfig, db, issuerService)
	require.NoError(t, err)
	return service, db
}

func TestCheckPermission(t *testing.T) {
	t.Run("granted payload", func(tt *testing.T) {
		defer gock.Off()
		gock.New(testGateway).
			Get("/authorize").
			MatchParam("issuerDid", testIssuer).
			Reply(http.StatusOK).
			JSON(map[string]any{"approved": true, "issuerDid": testIssuer})

		service, db := testPermissionService(tt)
		ctx := context.Background()
		require.NoError(tt, db.Write(ctx, issuer.Namespace, issuer.DIDURIKey, []byte(testIssuer)))

		payload, err := service.CheckPermission(ctx)
		require.NoError(tt, err)

		var got map[string]any
		require.NoError(tt, json.Unmarshal(payload, &got))
		assert.Equal(tt, true, got["approved"])
	})

	t.Run("prefers stored auth url", func(tt *testing.T) {
		defer gock.Off()
		gock.New(testGateway).
			Get("/authorize").
			MatchParam("issuerDid", "did:key:z6MkStored").
			Reply(http.StatusOK).
			JSON(map[string]any{"approved": true})

		service, db := testPermissionService(tt)
		ctx := context.Background()
		storedURL := testGateway + "/authorize?issuerDid=did:key:z6MkStored"
		require.NoError(tt, db.Write(ctx, issuer.Namespace, issuer.AuthURLKey, []byte(storedURL)))

		_, err := service.CheckPermission(ctx)
		assert.NoError(tt, err)
		assert.True(tt, gock.IsDone())
	})

	t.Run("gateway failure is an error", func(tt *testing.T) {
		defer gock.Off()
		gock.New(testGateway).
			Get("/authorize").
			Reply(http.StatusForbidden).
			BodyString("nope")

		service, db := testPermissionService(tt)
		ctx := context.Background()
		require.NoError(tt, db.Write(ctx, issuer.Namespace, issuer.DIDURIKey, []byte(testIssuer)))

		_, err := service.CheckPermission(ctx)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "status 403")
	})

	t.Run("unregistered issuer is an error", func(tt *testing.T) {
		service, _ := testPermissionService(tt)
		_, err := service.CheckPermission(context.Background())
		assert.Error(tt, err)
	})
}

func TestGatewayClientTracesRequests(t *testing.T) {
	service, _ := testPermissionService(t)

	_, ok := service.client.Transport.(*otelhttp.Transport)
	assert.True(t, ok)
}

func TestPermissionFlag(t *testing.T) {
	service, _ := testPermissionService(t)
	ctx := context.Background()

	granted, err := service.IsGranted(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	require.NoError(t, service.MarkGranted(ctx))

	granted, err = service.IsGranted(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	// setting again is idempotent
	require.NoError(t, service.MarkGranted(ctx))
	granted, err = service.IsGranted(ctx)
	require.NoError(t, err)
	assert.True(t, granted)
}
