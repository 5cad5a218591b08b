package main

import (
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/heartpost/greeting-gateway/internal/config"
	"github.com/heartpost/greeting-gateway/internal/generator"
	"github.com/heartpost/greeting-gateway/internal/handlers"
	"github.com/heartpost/greeting-gateway/internal/mailer"
	"github.com/heartpost/greeting-gateway/internal/repository"
	"github.com/heartpost/greeting-gateway/internal/services"
	xhttp "github.com/heartpost/greeting-gateway/pkg/http"
	"github.com/heartpost/greeting-gateway/pkg/logger"
	"github.com/heartpost/greeting-gateway/pkg/pg"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	greetingRepo := repository.NewGreetingRepository(db)
	requestRepo := repository.NewServiceRequestRepository(db)

	var composer generator.ComposerClient
	if config.Get().ComposerUrl != "" {
		composer = generator.NewHTTPComposerClient(config.Get().ComposerUrl, config.Get().ComposerTimeout)
	}
	gen := generator.New(composer)

	m := mailer.New(mailer.Config{
		Host:          config.Get().SMTPHost,
		Port:          config.Get().SMTPPort,
		Username:      config.Get().SMTPUser,
		Password:      config.Get().SMTPPassword,
		FromAddress:   config.Get().SMTPFromAddress,
		FromName:      config.Get().SMTPFromName,
		OperatorEmail: config.Get().OperatorEmail,
	})

	defaultDeliverAt := parseDefaultDeliverAt(config.Get().DeliveryDefaultAt)

	// services
	greetingService := services.NewGreetingService(greetingRepo, gen, defaultDeliverAt)
	requestService := services.NewServiceRequestService(requestRepo, m)

	// v1 handlers
	greetingHandler := handlers.NewGreetingHandler(greetingService)
	requestHandler := handlers.NewServiceRequestHandler(requestService)
	healthHandler := handlers.NewHealthHandler()

	g := s.Router.Group("/api/v1")
	handlers.RegisterGreetingRoutes(g, greetingHandler)
	handlers.RegisterServiceRequestRoutes(g, requestHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func parseDefaultDeliverAt(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		logger.Warn("DELIVERY_DEFAULT_AT is not RFC3339, greetings without deliver_at go out immediately", "value", s, "error", err)
		return time.Time{}
	}
	return t
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
