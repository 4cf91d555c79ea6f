// Package permission consults the remote authorization gateway for the issuer
// DID and tracks the local permission flag.
package permission

import (
	"context"
	"io"
	"net/http"
	"time"

	sdkutil "github.com/TBD54566975/ssi-sdk/util"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/known-customer/kcc-issuer-service/config"
	"github.com/known-customer/kcc-issuer-service/internal/util"
	"github.com/known-customer/kcc-issuer-service/pkg/service/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/service/issuer"
	"github.com/known-customer/kcc-issuer-service/pkg/storage"
)

const defaultRequestTimeout = 30 * time.Second

type Service struct {
	config  config.IssuerServiceConfig
	storage storage.ServiceStorage
	issuer  *issuer.Service
	client  *http.Client
}

func (s *Service) Type() framework.Type {
	return framework.Permission
}

func (s *Service) Status() framework.Status {
	ae := sdkutil.NewAppendError()
	if s.storage == nil {
		ae.AppendString("no storage configured")
	}
	if s.issuer == nil {
		ae.AppendString("no issuer service configured")
	}
	if !ae.IsEmpty() {
		return framework.Status{Status: framework.StatusNotReady, Message: ae.Error().Error()}
	}
	return framework.Status{Status: framework.StatusReady}
}

func NewPermissionService(config config.IssuerServiceConfig, s storage.ServiceStorage, issuerService *issuer.Service) (*Service, error) {
	service := Service{
		config:  config,
		storage: s,
		issuer:  issuerService,
		client:  &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultRequestTimeout,
		},
	}
	if !service.Status().IsReady() {
		return nil, errors.New(service.Status().Message)
	}
	return &service, nil
}

// IsGranted reports whether the local permission flag has been set.
func (s *Service) IsGranted(ctx context.Context) (bool, error) {
	v, err := s.storage.Read(ctx, issuer.Namespace, issuer.PermissionKey)
	if err != nil {
		return false, errors.Wrap(err, "reading permission flag")
	}
	return string(v) == "true", nil
}

// MarkGranted persists the permission flag. The flag is set after any
// successful gateway round-trip without inspecting an approval field; it is
// never re-validated or expired.
func (s *Service) MarkGranted(ctx context.Context) error {
	return s.storage.Write(ctx, issuer.Namespace, issuer.PermissionKey, []byte("true"))
}

// CheckPermission calls the authorization gateway with the issuer DID as a
// query parameter and returns the gateway's JSON payload verbatim. A transport
// failure or non-2xx status is an error.
func (s *Service) CheckPermission(ctx context.Context) (json.RawMessage, error) {
	authURL, err := s.authURL(ctx)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("checking permission with gateway: %s", util.SanitizeLog(authURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building gateway request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not reach authorization gateway")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading gateway response")
	}
	if !util.Is2xxResponse(resp.StatusCode) {
		return nil, errors.Errorf("authorization gateway returned status %d: %s", resp.StatusCode, util.SanitizeLog(string(body)))
	}
	if !json.Valid(body) {
		return nil, errors.New("authorization gateway returned invalid JSON")
	}
	return body, nil
}

// authURL prefers the URL persisted at registration, deriving it from the
// issuer DID when absent.
func (s *Service) authURL(ctx context.Context) (string, error) {
	v, err := s.storage.Read(ctx, issuer.Namespace, issuer.AuthURLKey)
	if err != nil {
		return "", errors.Wrap(err, "reading auth url")
	}
	if len(v) > 0 {
		return string(v), nil
	}
	didURI, err := s.issuer.DID(ctx)
	if err != nil {
		return "", err
	}
	return s.config.AuthURL(didURI), nil
}
