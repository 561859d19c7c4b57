package router

import (
	authsvc "wicked-backend/internal/application/auth"
	dashsvc "wicked-backend/internal/application/dashboard"
	"wicked-backend/internal/application/emails"
	invsvc "wicked-backend/internal/application/invoices"
	notifsvc "wicked-backend/internal/application/notifications"
	paysvc "wicked-backend/internal/application/payments"
	setsvc "wicked-backend/internal/application/settings"
	"wicked-backend/internal/application/statuses"
	"wicked-backend/internal/config"
	"wicked-backend/internal/constants"
	"wicked-backend/internal/events"
	"wicked-backend/internal/infrastructure/database"
	authhandler "wicked-backend/internal/interfaces/handlers/auth"
	dashhandler "wicked-backend/internal/interfaces/handlers/dashboard"
	healthhandler "wicked-backend/internal/interfaces/handlers/health"
	invhandler "wicked-backend/internal/interfaces/handlers/invoices"
	notifhandler "wicked-backend/internal/interfaces/handlers/notifications"
	payhandler "wicked-backend/internal/interfaces/handlers/payments"
	sethandler "wicked-backend/internal/interfaces/handlers/settings"
	"wicked-backend/internal/middleware"
	"wicked-backend/internal/scheduler"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime bundles the long-lived pieces CreateApp builds so main (and
// tests) can reach them after wiring.
type Runtime struct {
	DB        *gorm.DB
	Rdb       *redis.Client
	Bus       *events.Manager
	Engine    *notifsvc.Engine
	Scheduler *scheduler.Scheduler
}

func CreateApp(cfg *config.Config) (*fiber.App, *Runtime, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		SiteURL:           cfg.SiteURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
	}

	hh := &healthhandler.Handlers{DB: db, Rdb: rdb}
	app.Get("/health/json", hh.JSON)

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	rt := &Runtime{DB: db, Rdb: rdb}
	if db == nil || rdb == nil {
		return app, rt, nil
	}

	bus := events.NewManager()
	settingsSvc := &setsvc.Service{DB: db}
	resolver := statuses.New(settingsSvc)
	invoiceSvc := &invsvc.Service{DB: db, Resolver: resolver, Bus: bus}
	paymentSvc := &paysvc.Service{DB: db, Invoices: invoiceSvc}
	dashboardSvc := &dashsvc.Service{DB: db, Resolver: resolver}
	rules := &notifsvc.Rules{
		Settings: settingsSvc,
		License:  notifsvc.KeyLicense{Key: cfg.LicenseKey},
		Bus:      bus,
	}
	engine := &notifsvc.Engine{
		Rules:    rules,
		Invoices: invoiceSvc,
		Resolver: resolver,
		Settings: settingsSvc,
		Mailer:   &emails.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom, FromName: cfg.SiteName},
		Lock:     &notifsvc.RedisRunLock{Rdb: rdb},
		Site: notifsvc.Site{
			Name:        cfg.SiteName,
			URL:         cfg.SiteURL,
			AdminEmail:  cfg.AdminEmail,
			InvoiceSlug: cfg.InvoiceSlug,
		},
	}
	sched := &scheduler.Scheduler{Engine: engine, Bus: bus}
	engine.Nudge = sched.Nudge

	rt.Bus = bus
	rt.Engine = engine
	rt.Scheduler = sched

	// Invoices
	ivh := &invhandler.Handlers{Service: invoiceSvc}
	app.Get("/api/v1/public/invoices/:hash", ivh.GetByHash)
	ig := app.Group("/api/v1/invoices", middleware.RequireAuth())
	ig.Get("/", middleware.AuthorizeCapability(resolver, constants.EditWickedInvoices, constants.ViewWickedReports), ivh.List)
	ig.Post("/", middleware.AuthorizeCapability(resolver, constants.EditWickedInvoices), ivh.Create)
	ig.Get("/:id", middleware.AuthorizeCapability(resolver, constants.EditWickedInvoices, constants.ViewWickedReports), ivh.Get)
	ig.Patch("/:id", middleware.AuthorizeCapability(resolver, constants.EditWickedInvoices), ivh.Update)
	ig.Patch("/:id/status", middleware.AuthorizeCapability(resolver, constants.EditWickedInvoices), ivh.SetStatus)

	// Payments
	ph := &payhandler.Handlers{Service: paymentSvc}
	ig.Post("/:id/payments", middleware.AuthorizeCapability(resolver, constants.EditWickedInvoices), ph.Record)
	ig.Get("/:id/payments", middleware.AuthorizeCapability(resolver, constants.EditWickedInvoices, constants.ViewWickedReports), ph.List)

	// Notifications
	nh := &notifhandler.Handlers{Rules: rules, Engine: engine}
	ng := app.Group("/api/v1/notifications", middleware.RequireAuth())
	ng.Get("/settings", middleware.AuthorizeCapability(resolver, constants.ManageWickedInvoicing, constants.EditWickedSettings), nh.GetSettings)
	ng.Post("/settings", middleware.AuthorizeCapability(resolver, constants.ManageWickedInvoicing, constants.EditWickedSettings), nh.SaveSettings)
	ng.Post("/test-send", middleware.AuthorizeCapability(resolver, constants.ManageWickedInvoicing, constants.EditWickedSettings), nh.TestSend)
	ng.Post("/resend", middleware.AuthorizeCapability(resolver, constants.ManageWickedInvoicing), nh.Resend)

	// Dashboard
	dh := &dashhandler.Handlers{Service: dashboardSvc}
	dg := app.Group("/api/v1/dashboard", middleware.RequireAuth())
	dg.Get("/", middleware.AuthorizeCapability(resolver, constants.ViewWickedReports), dh.Summary)

	// Core settings
	sh := &sethandler.Handlers{Service: settingsSvc}
	sg := app.Group("/api/v1/settings", middleware.RequireAuth())
	sg.Get("/", middleware.AuthorizeCapability(resolver, constants.ManageWickedInvoicing), sh.Get)
	sg.Post("/", middleware.AuthorizeCapability(resolver, constants.ManageWickedInvoicing), sh.Save)

	return app, rt, nil
}
