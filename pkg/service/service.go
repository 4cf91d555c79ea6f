// Package service wires the issuer, credential, and permission services to
// their shared storage and DWN client.
package service

import (
	"fmt"

	sdkutil "github.com/TBD54566975/ssi-sdk/util"
	"github.com/pkg/errors"

	"github.com/known-customer/kcc-issuer-service/config"
	"github.com/known-customer/kcc-issuer-service/pkg/dwn"
	"github.com/known-customer/kcc-issuer-service/pkg/service/credential"
	"github.com/known-customer/kcc-issuer-service/pkg/service/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/service/issuer"
	"github.com/known-customer/kcc-issuer-service/pkg/service/permission"
	"github.com/known-customer/kcc-issuer-service/pkg/storage"
)

// KCCService is the top-level container for all instantiated services
type KCCService struct {
	Issuer     *issuer.Service
	Credential *credential.Service
	Permission *permission.Service

	storage storage.ServiceStorage
}

// InstantiateKCCService creates a new instance of the KCC service given a storage provider and services config
func InstantiateKCCService(config config.ServicesConfig) (*KCCService, error) {
	if err := validateServiceConfig(config); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate service")
	}
	service, err := instantiateKCCService(config)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate service")
	}
	return service, nil
}

func validateServiceConfig(config config.ServicesConfig) error {
	if config.StorageProvider == "" {
		return errors.New("no storage provider configured")
	}
	if config.Issuer.DWNEndpoint == "" {
		return errors.New("no dwn endpoint configured")
	}
	if config.Issuer.AuthGatewayBaseURL == "" {
		return errors.New("no authorization gateway configured")
	}
	return nil
}

func instantiateKCCService(config config.ServicesConfig) (*KCCService, error) {
	db, err := storage.NewServiceStorage(storage.Type(config.StorageProvider), storage.Option{
		BoltPath: config.BoltPath,
		Address:  config.RedisAddress,
		Password: config.RedisPassword,
	})
	if err != nil {
		return nil, sdkutil.LoggingErrorMsgf(err, "could not instantiate storage provider: %s", config.StorageProvider)
	}

	dwnClient, err := dwn.NewClient(config.Issuer.DWNEndpoint)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate dwn client")
	}

	issuerService, err := issuer.NewIssuerService(config.Issuer, db, dwnClient)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate the issuer service")
	}

	credentialService, err := credential.NewCredentialService(config.Issuer, issuerService, dwnClient, nil)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate the credential service")
	}

	permissionService, err := permission.NewPermissionService(config.Issuer, db, issuerService)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "could not instantiate the permission service")
	}

	service := KCCService{
		Issuer:     issuerService,
		Credential: credentialService,
		Permission: permissionService,
		storage:    db,
	}
	if err = service.validateServiceStatuses(); err != nil {
		return nil, err
	}
	return &service, nil
}

// validateServiceStatuses iterates through all instantiated services and
// ensures they are ready
func (s *KCCService) validateServiceStatuses() error {
	for _, serviceInstance := range s.GetServices() {
		status := serviceInstance.Status()
		if !status.IsReady() {
			return fmt.Errorf("service<%s> is not ready: %s", serviceInstance.Type(), status.Message)
		}
	}
	return nil
}

// GetServices returns the instantiated service providers
func (s *KCCService) GetServices() []framework.Service {
	return []framework.Service{s.Issuer, s.Credential, s.Permission}
}

// GetStorage returns the underlying storage provider
func (s *KCCService) GetStorage() storage.ServiceStorage {
	return s.storage
}

// Close closes the underlying storage provider
func (s *KCCService) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}
