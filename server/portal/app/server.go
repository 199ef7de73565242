package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/techfranca/francaverso/server/common/auth"
	"github.com/techfranca/francaverso/server/common/infra/cache"
	"github.com/techfranca/francaverso/server/common/infra/db"
	"github.com/techfranca/francaverso/server/common/infra/mq"
	"github.com/techfranca/francaverso/server/common/infra/object"
	"github.com/techfranca/francaverso/server/common/log"
	"github.com/techfranca/francaverso/server/portal/api"
	"github.com/techfranca/francaverso/server/portal/repository"
	"github.com/techfranca/francaverso/server/portal/service"
)

// Run wires the portal together and serves until the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	clients := repository.NewClientRepository(pool)
	chats := repository.NewChatRepository(pool)
	notifications := repository.NewNotificationRepository(pool)
	tools := repository.NewToolRepository(pool)
	downloads := repository.NewDownloadRepository(pool)

	sessions := auth.NewSessionService(cfg.SessionSecret)
	authService, err := service.NewAuthService(users, sessions, cfg.AppPassword)
	if err != nil {
		return err
	}

	hub := service.NewHub()
	if cfg.RedisAddr != "" {
		redisClient := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		if err := cache.Ping(ctx, redisClient); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		defer redisClient.Close()
		hub.UseRedis(redisClient)
		hub.StartSubscriber(ctx)
		defer hub.StopSubscriber()
		log.Infof("realtime events fan out through redis at %s", cfg.RedisAddr)
	}

	chatService := service.NewChatService(chats, notifications, users, hub)
	clientService := service.NewClientService(clients)
	toolService := service.NewToolService(tools)

	objects, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		return fmt.Errorf("create object storage client: %w", err)
	}
	if err := object.EnsureBucket(ctx, objects, cfg.MinioBucket); err != nil {
		return fmt.Errorf("ensure media bucket: %w", err)
	}
	profileService := service.NewProfileService(users, objects, cfg.MinioBucket, cfg.MinioEndpoint, cfg.MinioUseSSL)

	runner := service.NewYTDLPRunner(cfg.YTDLPPath)
	var jobQueue service.JobQueue
	var amqpConn *amqp.Connection
	if cfg.UseMQ {
		amqpConn, err = mq.NewConnection(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer amqpConn.Close()
		queue, err := service.NewAMQPJobQueue(amqpConn)
		if err != nil {
			return err
		}
		defer queue.Close()
		jobQueue = queue
	}
	downloadService := service.NewDownloadService(downloads, runner, jobQueue, cfg.DownloadsDir)
	if cfg.UseMQ {
		if err := service.StartJobConsumer(ctx, amqpConn, downloadService); err != nil {
			return err
		}
		log.Infof("download jobs flow through rabbitmq queue %s", mq.DownloadJobsQueue)
	}

	driveCreds, err := LoadDriveCredentials(cfg.DriveKeyFile)
	if err != nil {
		return err
	}
	driveService := service.NewDriveService(clients, driveCreds, cfg.DriveRootFolderID)

	handler := api.NewHandler(api.Deps{
		Sessions:     sessions,
		Auth:         authService,
		Clients:      clientService,
		Chat:         chatService,
		Profile:      profileService,
		Tools:        toolService,
		Downloads:    downloadService,
		Drive:        driveService,
		Hub:          hub,
		CookieSecure: cfg.CookieSecure,
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.RegisterRoutes(engine)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("portal listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Infof("portal stopped")
	return nil
}
