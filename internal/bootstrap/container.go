package bootstrap

import (
	"context"
	"fmt"

	"bank-support-be/internal/config"
	"bank-support-be/internal/controller"
	"bank-support-be/internal/handler"
	"bank-support-be/internal/pkg/logger"
	"bank-support-be/internal/pkg/mailer"
	"bank-support-be/internal/repository/contract"
	"bank-support-be/internal/repository/implementation"
	"bank-support-be/internal/repository/memory"
	"bank-support-be/internal/service"
	"bank-support-be/internal/websocket"
	"bank-support-be/pkg/assistant"
	"bank-support-be/pkg/dialog"
	"bank-support-be/pkg/embedding"
	"bank-support-be/pkg/kb"
	"bank-support-be/pkg/llm/factory"
	pktNats "bank-support-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	ChatController controller.IChatController
	KBController   controller.IKBController
	AgentHandler   *handler.AgentHandler

	// Running once NewContainer returns; nil unless DB and embeddings are configured.
	ConsumerService service.IConsumerService
	// Started by main.
	WebSocketHub *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. db may be nil; Postgres-backed
// features (KB persistence, tickets, similarity search) are then disabled.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger("logs/agent_console.log")
	c := &Container{Logger: sysLogger}

	// 1. Infrastructure
	rdb := connectRedis(ctx, cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		var err error
		if natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL); err != nil {
			sysLogger.Warn("BOOT", "NATS publisher unavailable, using local event bus", map[string]interface{}{"error": err.Error()})
			natsPub = nil
		}
		if natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL); err != nil {
			sysLogger.Warn("BOOT", "NATS subscriber unavailable", map[string]interface{}{"error": err.Error()})
			natsSub = nil
		}
	}

	localBus := service.NewLocalEventBus(sysLogger)
	var eventPublisher service.IEventPublisher = localBus
	if natsPub != nil {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	if natsSub != nil {
		c.closers = append(c.closers, natsSub.Close)
	}

	// 2. Agent console and operator alerts
	hub := websocket.NewHub(rdb, cfg.Notify.AgentConsoleChan, wsLogger)
	c.WebSocketHub = hub
	agentConsole := service.NewAgentConsoleService(hub, wsLogger)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
		sysLogger,
	)
	notifier := service.NewNotifierService(emailService, NotifierOptions(cfg), sysLogger)

	if natsPub != nil && natsSub != nil {
		// Alerts are delivered by cmd/notifier; this process only feeds the console.
		if err := agentConsole.Start(ctx, natsSub); err != nil {
			sysLogger.Error("BOOT", "Agent console subscriber failed", map[string]interface{}{"error": err.Error()})
		}
	} else {
		localBus.Subscribe(agentConsole.Handle)
		localBus.Subscribe(notifier.Handle)
	}

	// 3. Persistence
	var (
		kbRepo     contract.KBEntryRepository
		ticketRepo contract.HandoverTicketRepository
	)
	if db != nil {
		kbRepo = implementation.NewKBEntryRepository(db)
		ticketRepo = implementation.NewHandoverTicketRepository(db)
	}
	sessionRepo := memory.NewSessionRepository(cfg.Chat.SessionTTL)

	// 4. Embedding sync
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
		sysLogger.Info("BOOT", "Using embedding provider", map[string]interface{}{"provider": "ollama", "model": cfg.Ai.EmbeddingModel})
	}

	var jobs service.IPublisherService
	if kbRepo != nil && embeddingProvider != nil {
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
		c.closers = append(c.closers, func() { _ = pubSub.Close() })
		jobs = service.NewPublisherService(pubSub, cfg.Ai.EmbedTopic)
		c.ConsumerService = service.NewConsumerService(pubSub, cfg.Ai.EmbedTopic, kbRepo, embeddingProvider, sysLogger)
		// Subscribe before the KB loads: gochannel drops messages nobody listens to.
		if err := c.ConsumerService.Consume(ctx); err != nil {
			return nil, fmt.Errorf("start embedding consumer: %w", err)
		}
	}

	// 5. Knowledge base
	store, err := kb.NewStore(nil)
	if err != nil {
		return nil, err
	}
	kbService := service.NewKBService(store, kbRepo, embeddingProvider, jobs, eventPublisher, sysLogger)
	if err := kbService.Init(ctx, cfg.Chat.KBFile); err != nil {
		return nil, fmt.Errorf("init knowledge base: %w", err)
	}

	matchCfg := kb.DefaultMatchConfig()
	matchCfg.ExactLimit = cfg.Chat.ExactLimit
	matcher := kb.NewMatcher(matchCfg)

	// 6. Chat
	llmProvider := factory.NewLLMProvider(factory.Settings{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.Ai.LLMAPIKey,
	}, sysLogger)
	sysLogger.Info("BOOT", "Using LLM provider", map[string]interface{}{"provider": llmProvider.Name(), "model": cfg.Ai.LLMModel})

	analytics := service.NewAnalyticsService(rdb, sysLogger)
	chatService := service.NewChatService(
		sessionRepo,
		store,
		matcher,
		assistant.NewAssembler(llmProvider),
		dialog.NewTracker(0, 0, sysLogger),
		analytics,
		eventPublisher,
		service.ChatOptions{
			ProviderTimeout:    cfg.Ai.Timeout,
			NotifyOnEscalation: cfg.Notify.OnEscalation,
		},
		sysLogger,
	)
	handoverService := service.NewHandoverService(sessionRepo, ticketRepo, analytics, eventPublisher, sysLogger)

	// 7. Transport
	c.ChatController = controller.NewChatController(chatService, handoverService, cfg.App.HandoverRateLimit, sysLogger)
	c.KBController = controller.NewKBController(kbService, cfg.Admin.Token, cfg.Admin.JWTSecret)
	c.AgentHandler = handler.NewAgentHandler(hub, handoverService, cfg.Admin.Token, cfg.Admin.JWTSecret, wsLogger)

	return c, nil
}

// NotifierOptions extracts alert targets from the config.
func NotifierOptions(cfg *config.Config) service.NotifierOptions {
	return service.NotifierOptions{
		EscalationEmail: cfg.Notify.EscalationEmail,
		HandoverEmail:   cfg.Notify.HandoverEmail,
		WebhookURL:      cfg.Notify.WebhookURL,
	}
}

// Close releases infrastructure clients in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOT", "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("BOOT", "Redis unavailable, analytics stay in memory", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
