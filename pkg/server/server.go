// Package server contains the full set of handler functions and routes
// supported by the http api
package server

import (
	"context"
	"os"

	sdkutil "github.com/TBD54566975/ssi-sdk/util"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/known-customer/kcc-issuer-service/config"
	"github.com/known-customer/kcc-issuer-service/pkg/server/framework"
	"github.com/known-customer/kcc-issuer-service/pkg/server/middleware"
	"github.com/known-customer/kcc-issuer-service/pkg/server/router"
	"github.com/known-customer/kcc-issuer-service/pkg/service"
)

const (
	HealthPrefix        = "/health"
	ReadinessPrefix     = "/readiness"
	QueryRecordsPath    = "/"
	GetCredentialPath   = "/get-credential"
	GetPermissionPath   = "/get-permission"
)

// KCCServer exposes all dependencies needed to run a http server and all its services
type KCCServer struct {
	*config.ServerConfig
	*service.KCCService
	*framework.Server
}

// NewKCCServer does two things: instantiates all services and registers their HTTP bindings
func NewKCCServer(shutdown chan os.Signal, cfg config.KCCServiceConfig) (*KCCServer, error) {
	engine := setUpEngine(cfg.Server, shutdown)
	httpServer := framework.NewServer(cfg.Server, engine, shutdown)
	kcc, err := service.InstantiateKCCService(cfg.Services)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "unable to instantiate kcc service")
	}

	engine.GET(HealthPrefix, router.Health)
	engine.GET(ReadinessPrefix, router.Readiness(kcc.GetServices()))

	if err = RecordAPI(engine, kcc); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "unable to instantiate Record API")
	}
	if err = CredentialAPI(engine, kcc); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "unable to instantiate Credential API")
	}
	if err = PermissionAPI(engine, kcc); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "unable to instantiate Permission API")
	}

	return &KCCServer{
		Server:       httpServer,
		KCCService:   kcc,
		ServerConfig: &cfg.Server,
	}, nil
}

// setUpEngine creates the gin engine and sets up the middleware based on config
func setUpEngine(cfg config.ServerConfig, shutdown chan os.Signal) *gin.Engine {
	middlewares := gin.HandlersChain{
		gin.Recovery(),
		middleware.Errors(shutdown),
		middleware.Logger(logrus.StandardLogger()),
		middleware.Metrics(),
	}
	if cfg.JagerEnabled {
		middlewares = append(middlewares, middleware.Tracing())
	}
	if cfg.EnableAllowAllCORS {
		middlewares = append(middlewares, middleware.CORS())
	}

	engine := gin.New()
	engine.Use(middlewares...)

	switch cfg.Environment {
	case config.EnvironmentDev:
		gin.SetMode(gin.DebugMode)
	case config.EnvironmentTest:
		gin.SetMode(gin.TestMode)
	case config.EnvironmentProd:
		gin.SetMode(gin.ReleaseMode)
	}
	return engine
}

// RegisterIssuer performs the one-time issuer bootstrap: DID generation and
// protocol publication. A no-op when the issuer is already registered.
func (s *KCCServer) RegisterIssuer(ctx context.Context) error {
	resp, err := s.Issuer.Register(ctx)
	if err != nil {
		return err
	}
	if resp.AlreadyRegistered {
		logrus.Infof("issuer already registered with did: %s", resp.DIDURI)
	} else {
		logrus.Infof("issuer registered with did: %s", resp.DIDURI)
	}
	return nil
}

// RecordAPI registers the record query route
func RecordAPI(engine *gin.Engine, kcc *service.KCCService) error {
	recordRouter, err := router.NewRecordRouter(kcc.Credential)
	if err != nil {
		return sdkutil.LoggingErrorMsg(err, "creating record router")
	}
	engine.POST(QueryRecordsPath, recordRouter.QueryRecords)
	return nil
}

// CredentialAPI registers the credential issuance route
func CredentialAPI(engine *gin.Engine, kcc *service.KCCService) error {
	credentialRouter, err := router.NewCredentialRouter(kcc.Credential, kcc.Permission)
	if err != nil {
		return sdkutil.LoggingErrorMsg(err, "creating credential router")
	}
	engine.POST(GetCredentialPath, credentialRouter.GetCredential)
	return nil
}

// PermissionAPI registers the permission route
func PermissionAPI(engine *gin.Engine, kcc *service.KCCService) error {
	permissionRouter, err := router.NewPermissionRouter(kcc.Permission)
	if err != nil {
		return sdkutil.LoggingErrorMsg(err, "creating permission router")
	}
	engine.POST(GetPermissionPath, permissionRouter.GetPermission)
	return nil
}
