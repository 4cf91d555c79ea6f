// Package issuer owns the service's own identity: a did:key created once per
// local store, the bearer identity used for signing, and the registration of
// the credential-exchange protocol with the remote DWN.
package issuer

import (
	"context"

	"github.com/TBD54566975/ssi-sdk/crypto"
	"github.com/TBD54566975/ssi-sdk/did/key"
	sdkutil "github.com/TBD54566975/ssi-sdk/util"
	"github.com/goccy/go-json"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/known-customer/kcc-issuer-service/config"
	"github.com/known-customer/kcc-issuer-service/internal/util"
	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
	"github.com/known-customer/kcc-issuer-service/pkg/service/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/storage"
)

const (
	// Namespace holds all locally persisted issuer state.
	Namespace = "issuer"

	RegisteredKey = "registered"
	DIDURIKey     = "didURI"
	AuthURLKey    = "authURL"
	IdentityKey   = "identity"
	PermissionKey = "permission"
)

type Service struct {
	config  config.IssuerServiceConfig
	storage storage.ServiceStorage
	dwn     *dwn.Client
}

func (s *Service) Type() framework.Type {
	return framework.Issuer
}

func (s *Service) Status() framework.Status {
	ae := sdkutil.NewAppendError()
	if s.storage == nil {
		ae.AppendString("no storage configured")
	}
	if s.dwn == nil {
		ae.AppendString("no dwn client configured")
	}
	if !ae.IsEmpty() {
		return framework.Status{Status: framework.StatusNotReady, Message: ae.Error().Error()}
	}
	return framework.Status{Status: framework.StatusReady}
}

func NewIssuerService(config config.IssuerServiceConfig, s storage.ServiceStorage, dwnClient *dwn.Client) (*Service, error) {
	service := Service{config: config, storage: s, dwn: dwnClient}
	if !service.Status().IsReady() {
		return nil, errors.New(service.Status().Message)
	}
	return &service, nil
}

// IsRegistered reports whether a prior Register run completed against this store.
func (s *Service) IsRegistered(ctx context.Context) (bool, error) {
	v, err := s.storage.Read(ctx, Namespace, RegisteredKey)
	if err != nil {
		return false, errors.Wrap(err, "reading registered flag")
	}
	return string(v) == "true", nil
}

// Register runs once per local store: it creates the issuer did:key, publishes
// the credential-exchange protocol to the configured DWN, and persists the DID
// URI, the templated authorization URL, and the serialized bearer identity.
// The registered flag is written last; a partial failure leaves it unset so
// the next start reruns registration in full, which can mint a second DID.
func (s *Service) Register(ctx context.Context) (*RegisterResponse, error) {
	registered, err := s.IsRegistered(ctx)
	if err != nil {
		return nil, err
	}
	if registered {
		didURI, err := s.DID(ctx)
		if err != nil {
			return nil, err
		}
		authURL, err := s.storage.Read(ctx, Namespace, AuthURLKey)
		if err != nil {
			return nil, errors.Wrap(err, "reading auth url")
		}
		return &RegisterResponse{DIDURI: didURI, AuthURL: string(authURL), AlreadyRegistered: true}, nil
	}

	logrus.Info("issuer not registered, creating DID and configuring protocol")

	privKey, didKey, err := key.GenerateDIDKey(crypto.Ed25519)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not create did:key")
	}
	doc, err := didKey.Expand()
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not expand did:key document")
	}
	didURI := didKey.String()

	privKeyBytes, err := crypto.PrivKeyToBytes(privKey)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not serialize private key")
	}

	identity := BearerIdentity{
		DIDURI:           didURI,
		Document:         *doc,
		KeyID:            doc.VerificationMethod[0].ID,
		KeyType:          crypto.Ed25519,
		PrivateKeyBase58: base58.Encode(privKeyBytes),
	}

	// the bearer identity blob is serialized with repeated-reference stripping;
	// see util.MarshalSafe for the lossy cases
	identityBytes, err := util.MarshalSafe(identity)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not serialize bearer identity")
	}

	configureResponse, err := s.dwn.ConfigureProtocol(ctx, dwn.ProtocolsConfigureRequest{
		Author:     didURI,
		Definition: dwn.DefaultProtocolDefinition(s.config.ProtocolURI, s.config.CredentialSchema),
	})
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not configure credential-exchange protocol")
	}

	authURL := s.config.AuthURL(didURI)
	writes := map[string][]byte{
		DIDURIKey:   []byte(didURI),
		AuthURLKey:  []byte(authURL),
		IdentityKey: identityBytes,
		// the registered flag is written last on purpose
		RegisteredKey: []byte("true"),
	}
	for _, k := range []string{DIDURIKey, AuthURLKey, IdentityKey, RegisteredKey} {
		if err = s.storage.Write(ctx, Namespace, k, writes[k]); err != nil {
			return nil, sdkutil.LoggingErrorMsg(err, "could not persist issuer state")
		}
	}

	logrus.Infof("issuer registered with did: %s", util.SanitizeLog(didURI))
	return &RegisterResponse{DIDURI: didURI, AuthURL: authURL, ProtocolStatus: &configureResponse.Status}, nil
}

// DID returns the issuer DID URI persisted by Register.
func (s *Service) DID(ctx context.Context) (string, error) {
	v, err := s.storage.Read(ctx, Namespace, DIDURIKey)
	if err != nil {
		return "", errors.Wrap(err, "reading did uri")
	}
	if len(v) == 0 {
		return "", errors.New("issuer is not registered")
	}
	return string(v), nil
}

// BearerIdentity reloads the persisted signing identity.
func (s *Service) BearerIdentity(ctx context.Context) (*BearerIdentity, error) {
	v, err := s.storage.Read(ctx, Namespace, IdentityKey)
	if err != nil {
		return nil, errors.Wrap(err, "reading bearer identity")
	}
	if len(v) == 0 {
		return nil, errors.New("issuer is not registered")
	}
	var identity BearerIdentity
	if err = json.Unmarshal(v, &identity); err != nil {
		return nil, errors.Wrap(err, "unmarshalling bearer identity")
	}
	return &identity, nil
}
