// Package app assembles services, handlers and the router from a storage
// backend. cmd/api uses it with postgres; tests use the memory store.
package app

import (
	"github.com/jwalitptl/clinic-api/internal/access"
	"github.com/jwalitptl/clinic-api/internal/handler/appointment"
	"github.com/jwalitptl/clinic-api/internal/handler/billing"
	"github.com/jwalitptl/clinic-api/internal/handler/care"
	"github.com/jwalitptl/clinic-api/internal/handler/catalog"
	"github.com/jwalitptl/clinic-api/internal/handler/clinical"
	"github.com/jwalitptl/clinic-api/internal/handler/dashboard"
	entityhandler "github.com/jwalitptl/clinic-api/internal/handler/entity"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/notification"
	"github.com/jwalitptl/clinic-api/internal/handler/operations"
	"github.com/jwalitptl/clinic-api/internal/handler/profile"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/handler/videocall"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/router"
	appointmentsvc "github.com/jwalitptl/clinic-api/internal/service/appointment"
	billingsvc "github.com/jwalitptl/clinic-api/internal/service/billing"
	caresvc "github.com/jwalitptl/clinic-api/internal/service/care"
	catalogsvc "github.com/jwalitptl/clinic-api/internal/service/catalog"
	clinicalsvc "github.com/jwalitptl/clinic-api/internal/service/clinical"
	dashboardsvc "github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/internal/service/entity"
	"github.com/jwalitptl/clinic-api/internal/service/identity"
	notificationsvc "github.com/jwalitptl/clinic-api/internal/service/notification"
	operationssvc "github.com/jwalitptl/clinic-api/internal/service/operations"
	profilesvc "github.com/jwalitptl/clinic-api/internal/service/profile"
	videocallsvc "github.com/jwalitptl/clinic-api/internal/service/videocall"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/validator"
	"github.com/jwalitptl/clinic-api/pkg/videoroom"
)

type Dependencies struct {
	Tables *repository.Tables
	Tx     repository.Transactor
	Rooms  videoroom.Provider
	Tokens auth.JWTService
	// DB backs the readiness probe; nil reports ready.
	DB     health.Pinger
	Logger *logger.Logger
}

// Services are exposed for callers that bypass HTTP, such as tests and the
// CLI.
type Services struct {
	Identity      *identity.Service
	Readers       *entity.Readers
	Notifications notificationsvc.Service
	Appointments  *appointmentsvc.Service
	Clinical      *clinicalsvc.Service
	Billing       *billingsvc.Service
	Catalog       *catalogsvc.Service
	Care          *caresvc.Service
	Operations    *operationssvc.Service
	Profiles      *profilesvc.Service
	VideoCalls    *videocallsvc.Service
	Dashboards    *dashboardsvc.Service
}

func NewServices(deps Dependencies) *Services {
	v := validator.New()
	log := deps.Logger
	readers := entity.NewReaders(deps.Tables, access.Default, log)
	notifications := notificationsvc.NewService(deps.Tables, deps.Tx, v, log)

	return &Services{
		Identity:      identity.NewService(deps.Tables, log),
		Readers:       readers,
		Notifications: notifications,
		Appointments:  appointmentsvc.NewService(deps.Tables, deps.Tx, readers, notifications, v, log),
		Clinical:      clinicalsvc.NewService(deps.Tables, deps.Tx, notifications, v, log),
		Billing:       billingsvc.NewService(deps.Tables, deps.Tx, notifications, v, log),
		Catalog:       catalogsvc.NewService(deps.Tables, deps.Tx, v, log),
		Care:          caresvc.NewService(deps.Tables, deps.Tx, v, log),
		Operations:    operationssvc.NewService(deps.Tables, deps.Tx, v, log),
		Profiles:      profilesvc.NewService(deps.Tables, deps.Tx, v, log),
		VideoCalls:    videocallsvc.NewService(deps.Tables, deps.Tx, deps.Rooms, notifications, v, log),
		Dashboards:    dashboardsvc.NewService(readers, log),
	}
}

// NewRouter builds the HTTP surface over svc.
func NewRouter(deps Dependencies, svc *Services, config router.RouterConfig) *router.Router {
	auth := middleware.NewAuthMiddleware(deps.Tokens, svc.Identity)

	r := router.NewRouter(config, auth,
		[]router.Handler{
			health.NewHandler(deps.DB),
			prometheus.New(nil),
		},
		[]router.Handler{
			dashboard.NewHandler(svc.Dashboards),
			appointment.NewHandler(svc.Appointments),
			videocall.NewHandler(svc.VideoCalls),
			clinical.NewHandler(svc.Clinical),
			billing.NewHandler(svc.Billing),
			catalog.NewHandler(svc.Catalog),
			care.NewHandler(svc.Care),
			operations.NewHandler(svc.Operations),
			profile.NewHandler(svc.Profiles),
			notification.NewHandler(svc.Notifications),
		},
		entityhandler.NewHandler(svc.Readers),
	)
	r.Setup()
	return r
}
