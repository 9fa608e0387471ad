package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"

	"muse-go/internal/config"
	"muse-go/internal/handlers/apiserver"
	appKafka "muse-go/internal/kafka"
	"muse-go/internal/logging"
	"muse-go/internal/middleware"
	appRedis "muse-go/internal/redis"
	"muse-go/internal/services"
	"muse-go/internal/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatal("无法加载配置", "err", err)
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel, "apiserver")
	log.Info("API 服务器配置加载成功", "version", cfg.AppVersion)

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database, logger)
	if err != nil {
		log.Fatal("无法初始化数据库", "err", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Warn("API 服务器数据库表迁移可能失败", "err", err)
	}

	// 3. 初始化 Redis Client：JWT 黑名单和撤销历史
	redisClient, err := appRedis.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatal("无法连接到 Redis", "err", err)
	}
	defer redisClient.Close()
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)
	swipeHistory := appRedis.NewRedisSwipeHistory(redisClient, cfg.Swipes)

	// 4. 初始化 Repositories
	userRepo := storage.NewGormUserRepository(db)
	songRepo := storage.NewGormSongRepository(db)
	swipeRepo := storage.NewGormSwipeRepository(db)
	discussionRepo := storage.NewGormDiscussionRepository(db)
	msgRepo := storage.NewGormMessageRepository(db)
	purchaseRepo := storage.NewGormPurchaseRepository(db)

	// 5. 初始化 Kafka Producer，聊天事件由 chatserver 推送给在线用户
	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("无法创建 Kafka 生产者", "err", err)
	}
	defer kfkProducer.Close()
	chatEvents := appKafka.NewChatEventPublisher(kfkProducer, cfg.Kafka.ChatEventsTopic)

	// 6. 初始化 Services
	authService := services.NewAuthService(userRepo, tokenBlacklist, cfg.Auth)
	userService := services.NewUserService(userRepo)
	songService := services.NewSongService(db, userRepo, songRepo)
	feedService := services.NewFeedService(songRepo, userRepo, cfg.Feed)
	swipeService := services.NewSwipeService(db, userRepo, songRepo, swipeRepo, swipeHistory)
	libraryService := services.NewLibraryService(swipeRepo, songRepo)
	discussionService := services.NewDiscussionService(db, userRepo, songRepo, discussionRepo, chatEvents)
	messageService := services.NewMessageService(db, msgRepo, discussionRepo, chatEvents)
	purchaseService := services.NewPurchaseService(db, userRepo, songRepo, purchaseRepo, cfg.Payments)
	if cfg.Payments.WebhookSecret == "" {
		log.Warn("PAYMENTS.WEBHOOK_SECRET 未设置，所有支付回调都会被拒绝")
	}

	// 7. 初始化文件存储
	storageService, err := storage.NewLocalStorageService(cfg.Storage)
	if err != nil {
		log.Fatal("无法初始化文件存储服务", "err", err)
	}

	// 8. 初始化 Handlers 和路由
	r := apiserver.NewRouter(apiserver.Handlers{
		Auth:       apiserver.NewAuthHandler(authService),
		User:       apiserver.NewUserHandler(userService),
		Song:       apiserver.NewSongHandler(songService),
		Feed:       apiserver.NewFeedHandler(feedService),
		Swipe:      apiserver.NewSwipeHandler(swipeService, libraryService),
		Discussion: apiserver.NewDiscussionHandler(discussionService, messageService),
		Purchase:   apiserver.NewPurchaseHandler(purchaseService),
		Upload:     apiserver.NewUploadHandler(storageService, cfg.Storage),
	}, middleware.AuthMiddleware(cfg.Auth, tokenBlacklist))

	// 静态文件服务，用于访问上传的封面和音频
	if cfg.Storage.Type == "local" {
		staticPath := strings.TrimSuffix(cfg.Storage.BaseURL, "/") + "/"
		r.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(http.Dir(cfg.Storage.LocalPath))))
		log.Info("提供静态文件服务", "prefix", staticPath, "dir", cfg.Storage.LocalPath)
	}

	// 9. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handlers.CORS(corsOptions...)(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Second * 60,
	}

	go func() {
		log.Info("API 服务器启动", "addr", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("API 服务器启动失败", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到关闭信号，正在关闭 API 服务器...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("API 服务器强制关闭", "err", err)
		return
	}
	log.Info("API 服务器已成功关闭")
}
