package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"meeting-chat/internal/broadcast"
	"meeting-chat/internal/config"
	"meeting-chat/internal/db"
	"meeting-chat/internal/events"
	grpcserver "meeting-chat/internal/grpc"
	"meeting-chat/internal/handlers"
	"meeting-chat/internal/logger"
	"meeting-chat/internal/middleware"
	"meeting-chat/internal/observability"
	"meeting-chat/internal/rabbitmq"
	"meeting-chat/internal/registry"
	"meeting-chat/internal/repositories"
	"meeting-chat/internal/telemetry"
	"meeting-chat/internal/trigger"
	"meeting-chat/internal/ws"
)

const (
	auditRoutingKey = "audit.meeting-chat"
	channelBuffer   = 256
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	var (
		connRepo    repositories.ConnectionRepository
		messageRepo repositories.MessageRepository
	)
	switch cfg.StoreBackend {
	case "postgres":
		database, err := db.Connect(cfg.DBDSN, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect db")
		}
		defer database.Close()
		connRepo = repositories.NewConnectionRepo(database)
		messageRepo = repositories.NewMessageRepo(database)
	default:
		connRepo = repositories.NewMemoryConnectionRepo()
		messageRepo = repositories.NewMemoryMessageRepo()
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("event publisher ready")
	audit := telemetry.NewAuditEmitter(publisher, auditRoutingKey, cfg.ServiceName, cfg.Environment, log)

	registrySvc := registry.NewService(connRepo, log)
	hub := ws.NewHub(log)
	dispatcher := broadcast.NewDispatcher(registrySvc, hub, broadcast.Options{
		Workers: cfg.DispatchWorkers,
		Timeout: cfg.DispatchTimeout,
	}, log)
	adapter := trigger.NewAdapter(dispatcher, log)

	var (
		source   events.Source
		notifier handlers.Notifier
	)
	switch cfg.EventSource {
	case "postgres":
		// The insert trigger notifies; the handler publishes nothing.
		source = events.NewPostgresSource(cfg.DBDSN, db.MessageInsertedChannel, log)
	case "amqp":
		source = events.NewAMQPSource(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
		notifier = rabbitmq.NewMessageNotifier(publisher)
	default:
		ch := events.NewChannelSource(channelBuffer, log)
		source = ch
		notifier = ch
	}
	log.Info().Str("store", cfg.StoreBackend).Str("events", cfg.EventSource).Msg("backends selected")

	meetingHandler := handlers.NewMeetingHandler(messageRepo, registrySvc, notifier, audit, log)
	meetingWS := ws.NewMeetingWebSocketHandler(hub, registrySvc, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(log))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/meetings/:meeting_id/messages", meetingHandler.PostMessage)
	router.GET("/meetings/:meeting_id/messages", meetingHandler.ListMessages)
	router.GET("/meetings/:meeting_id/connections", meetingHandler.ListConnections)
	router.GET("/ws/meetings/:meeting_id", meetingWS.Handle)
	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	healthServer := grpcserver.NewHealthServer(log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := adapter.Run(gctx, source)
		if err != nil {
			log.Error().Err(err).Msg("event source stopped")
		}
		return err
	})
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return healthServer.Serve(net.JoinHostPort("", cfg.GRPCPort))
	})
	g.Go(func() error {
		<-gctx.Done()
		healthServer.SetServing(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.CloseAll()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		healthServer.Stop()
		return nil
	})
	healthServer.SetServing(true)

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("shutdown complete")
}
