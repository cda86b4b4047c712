// Package main provides the entry point for the relay bot.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/artyone/relaybot/internal/audit"
	"github.com/artyone/relaybot/internal/config"
	"github.com/artyone/relaybot/internal/dispatch"
	"github.com/artyone/relaybot/internal/llm"
	"github.com/artyone/relaybot/internal/pipeline"
	"github.com/artyone/relaybot/internal/queue"
	"github.com/artyone/relaybot/internal/session"
	"github.com/artyone/relaybot/internal/telegram"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

func main() {
	os.Exit(runMain())
}

func runMain() int {
	if os.Getenv("DEBUG") == "1" {
		enableDebugLogging()
		log.Println("Debug logging enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down gracefully...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Printf("Error: %v", err)
		return 1
	}
	return 0
}

func run(ctx context.Context) error {
	log.Println("Relay bot starting...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	components, err := initializeComponents(ctx, cfg)
	if err != nil {
		return err
	}

	startComponents(ctx, components)

	log.Println("Relay bot started successfully. Listening for messages.")

	<-ctx.Done()

	// The parent context is already done, so shutdown needs its own.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	shutdown(shutdownCtx, components)
	return nil
}

// components holds all initialized components.
type components struct {
	transportHandler *telegram.Handler
	queueManager     *queue.Manager
	workerPool       *queue.Pool
	wg               sync.WaitGroup
}

func initializeComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	// 1. Telegram transport
	bot, err := telegram.NewBot(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	log.Printf("Authorized as @%s", bot.Username())

	if err = bot.RegisterCommands(); err != nil {
		log.Printf("Failed to register command menu: %v", err)
	}

	// 2. Completion backend
	client, err := llm.NewClient(llm.Config{
		APIKey:      cfg.BackendAPIKey,
		BaseURL:     cfg.BackendBaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.BackendTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	// 3. Session registry with the admin pre-registered
	registry := session.NewRegistry(cfg.DefaultContext)
	registry.Register(session.Identity(cfg.AdminID))

	// 4. Audit trail
	recorder, err := audit.NewFileRecorder(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit recorder: %w", err)
	}

	// 5. Completion pipeline and dispatch router
	pipe, err := pipeline.New(client, recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	router, err := dispatch.NewRouter(registry, pipe, bot, session.Identity(cfg.AdminID))
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	// 6. Queue manager and worker pool
	queueManager := queue.NewManager(ctx)

	processor := queue.ProcessorFunc(func(ctx context.Context, msg *queue.Message) error {
		return router.Handle(ctx, msg.Incoming())
	})

	workerPool, err := queue.NewPool(cfg.Workers, queueManager, processor)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	// 7. Transport handler feeding the queue
	transportHandler, err := telegram.NewHandler(bot, queueManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport handler: %w", err)
	}

	return &components{
		transportHandler: transportHandler,
		queueManager:     queueManager,
		workerPool:       workerPool,
	}, nil
}

func startComponents(ctx context.Context, c *components) {
	// Start the queue manager first, before workers request messages.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		log.Println("Starting queue manager...")
		c.queueManager.Start()
		log.Println("Queue manager stopped")
	}()

	log.Println("Waiting for queue manager to be ready...")
	c.queueManager.WaitForReady()
	log.Println("Queue manager is ready")

	log.Printf("Starting worker pool with %d workers...", c.workerPool.Size())
	c.workerPool.Start(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		log.Println("Starting telegram handler...")
		if err := c.transportHandler.Start(ctx); err != nil {
			log.Printf("Telegram handler error: %v", err)
		}
	}()
}

func shutdown(ctx context.Context, c *components) {
	log.Println("Shutting down components...")

	c.queueManager.Stop()

	done := make(chan struct{})
	go func() {
		c.workerPool.Wait()
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All components stopped successfully")
	case <-ctx.Done():
		log.Println("Shutdown timeout exceeded")
	}

	log.Println("Shutdown complete")
}
