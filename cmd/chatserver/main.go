package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"muse-go/internal/config"
	"muse-go/internal/handlers/chatserver"
	appKafka "muse-go/internal/kafka"
	kafkahandlers "muse-go/internal/kafka/handlers"
	"muse-go/internal/logging"
	appRedis "muse-go/internal/redis"
	"muse-go/internal/services"
	"muse-go/internal/storage"
	"muse-go/internal/websocket"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatal("无法加载配置", "err", err)
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel, "chatserver")

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database, logger)
	if err != nil {
		log.Fatal("无法初始化数据库", "err", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatal("无法迁移数据库表", "err", err)
	}

	// 3. Redis 只用于检查已登出的 Token
	redisClient, err := appRedis.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatal("无法连接到 Redis", "err", err)
	}
	defer redisClient.Close()
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)

	// 4. Kafka：本实例写入的消息事件也经过 topic，再由消费者推送给接收者
	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatal("无法创建 Kafka 生产者", "err", err)
	}
	defer kfkProducer.Close()
	chatEvents := appKafka.NewChatEventPublisher(kfkProducer, cfg.Kafka.ChatEventsTopic)

	eventConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatal("无法创建 Kafka 消费者", "err", err)
	}
	defer eventConsumer.Close()

	// 5. Services
	discussionRepo := storage.NewGormDiscussionRepository(db)
	msgRepo := storage.NewGormMessageRepository(db)
	messageService := services.NewMessageService(db, msgRepo, discussionRepo, chatEvents)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// 6. WebSocket Hub
	hub := websocket.NewHub()
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	// 7. 聊天事件消费者
	eventLogic := kafkahandlers.NewChatEventConsumerLogic(hub)
	g.Go(func() error {
		topics := []string{cfg.Kafka.ChatEventsTopic}
		log.Info("Kafka 聊天事件消费者启动", "topic", cfg.Kafka.ChatEventsTopic, "group", cfg.Kafka.ConsumerGroup)
		err := eventConsumer.Consume(gctx, topics, cfg.Kafka.ConsumerGroup, eventLogic.HandleChatEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		return nil
	})

	// 8. HTTP 服务器
	wsHandler := chatserver.NewWebSocketHandler(gctx, hub, messageService, tokenBlacklist, cfg)
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.WebSocketPath, wsHandler.ServeWS)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:           serverAddr,
		Handler:        mux,
		ReadTimeout:    cfg.Server.ReadTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	g.Go(func() error {
		log.Info("Chat HTTP 服务器启动", "addr", serverAddr, "path", cfg.Server.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("chat server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Chat 服务器准备关闭...")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctxShutdown)
	})

	if err := g.Wait(); err != nil {
		log.Error("Chat 服务器异常退出", "err", err)
		os.Exit(1)
	}
	log.Info("Chat 服务器已优雅关闭")
}
