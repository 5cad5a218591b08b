package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/heartpost/greeting-gateway/internal/config"
	"github.com/heartpost/greeting-gateway/internal/dispatcher"
	"github.com/heartpost/greeting-gateway/internal/mailer"
	"github.com/heartpost/greeting-gateway/internal/processor"
	"github.com/heartpost/greeting-gateway/internal/queue"
	"github.com/heartpost/greeting-gateway/internal/repository"
	"github.com/heartpost/greeting-gateway/pkg/logger"
	"github.com/heartpost/greeting-gateway/pkg/pg"
	"github.com/heartpost/greeting-gateway/pkg/prom"
	"github.com/heartpost/greeting-gateway/pkg/redis"
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

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Kill, os.Interrupt, syscall.SIGTERM)

	greetingRepo := repository.NewGreetingRepository(db)

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	m := mailer.New(mailer.Config{
		Host:          config.Get().SMTPHost,
		Port:          config.Get().SMTPPort,
		Username:      config.Get().SMTPUser,
		Password:      config.Get().SMTPPassword,
		FromAddress:   config.Get().SMTPFromAddress,
		FromName:      config.Get().SMTPFromName,
		OperatorEmail: config.Get().OperatorEmail,
	})

	service, err := processor.NewProcessorService(redisAdap)
	if err != nil {
		logger.Error("failed to run the processor", "error", err)
		return
	}
	service.RegisterProcessor(processor.NewGreetingProcessor(greetingRepo, m))

	disp := dispatcher.New(greetingRepo, q, dispatcher.Config{
		TickInterval: config.Get().DispatchTickInterval,
		BatchSize:    config.Get().DispatchBatchSize,
	})

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	dispCtx, dispCancel := context.WithCancel(context.Background())
	go disp.Run(dispCtx)

	go func() {
		err := service.Start()
		if err != nil {
			logger.Error("failed to start processor", "error", err)
		}
	}()

	select {
	case <-c:
		dispCancel()
		service.Stop()
	}
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
