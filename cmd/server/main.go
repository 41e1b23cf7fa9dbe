package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"corisa-backend/internal/admin"
	"corisa-backend/internal/ai"
	"corisa-backend/internal/auth"
	"corisa-backend/internal/config"
	"corisa-backend/internal/engine"
	"corisa-backend/internal/instrument"
	"corisa-backend/internal/metadata"
	"corisa-backend/internal/store"
	"corisa-backend/internal/webhook"
	"corisa-backend/internal/workspace"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db: %s)", cfg.Server.Port, cfg.Database.Driver)

	// 2. Open the snapshot store and bootstrap system tables
	var db *store.Store
	var snapshots workspace.SnapshotStore
	if !cfg.Database.IsMemory() {
		db, err = store.New(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Bootstrap(ctx); err != nil {
			log.Fatalf("Failed to bootstrap system tables: %v", err)
		}
		snapshots = db
		log.Printf("Database ready (%s)", db.Dialect.Name())
	} else {
		log.Println("WARN: database.driver is memory; revisions are lost on restart")
	}

	// 3. Compile the plan grammar and create the workspace
	validator, err := engine.NewValidator()
	if err != nil {
		log.Fatalf("Failed to compile plan grammar: %v", err)
	}
	ws := workspace.New(validator, snapshots, engine.Options{
		HealSections:  cfg.Engine.HealSections,
		MaxOperations: cfg.Engine.MaxOperations,
	})

	hooks, err := webhook.NewDispatcher(cfg.Webhooks)
	if err != nil {
		log.Fatalf("Invalid webhook config: %v", err)
	}
	if hooks.Len() > 0 {
		ws.SetNotifier(hooks)
		log.Printf("Webhooks enabled (%d endpoints)", hooks.Len())
	}

	// 4. Restore the latest revision, or seed a fresh workspace
	restored, err := ws.Restore(ctx)
	if err != nil {
		log.Fatalf("Failed to restore schema: %v", err)
	}
	switch {
	case restored:
		log.Printf("Schema restored at revision %d", ws.Revision())
	case cfg.Schema.SeedPath != "":
		seedSchema(ctx, ws, cfg.Schema.SeedPath)
	default:
		log.Println("Starting with an empty schema")
	}

	// 5. Instrumentation: events go to the store when there is one
	var sink instrument.EventSink = instrument.NewMemorySink(cfg.Instrumentation.BufferSize * 10)
	if db != nil {
		sink = db
	}
	eventBuffer := instrument.NewEventBuffer(sink, cfg.Instrumentation.BufferSize, cfg.Instrumentation.FlushIntervalMs)
	defer eventBuffer.Stop()
	if cfg.Instrumentation.Enabled {
		instrument.StartCleanup(ctx, sink, cfg.Instrumentation.RetentionDays, 24*time.Hour)
	}

	// 6. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: engine.ErrorHandler,
		BodyLimit:    8 * 1024 * 1024,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(instrument.Middleware(cfg.Instrumentation, eventBuffer))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "revision": ws.Revision()})
	})

	// 8. Auth routes (no token required)
	auth.RegisterAuthRoutes(app, auth.NewAuthHandler(cfg.Auth))
	authMW := auth.Middleware(cfg.Auth)

	// 9. Admin, planner and event routes
	admin.RegisterAdminRoutes(app, admin.NewHandler(ws), authMW)
	ai.RegisterAIRoutes(app, ai.NewHandler(ai.NewProvider(cfg.AI), ws), authMW)
	instrument.RegisterEventRoutes(app, instrument.NewEventHandler(sink), authMW)
	if cfg.AI.Configured() {
		log.Printf("AI planner enabled (model: %s)", cfg.AI.Model)
	}

	// 10. Start server
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("ERROR: shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Printf("ERROR: %v", err)
	}
	hooks.Wait()
}

func seedSchema(ctx context.Context, ws *workspace.Workspace, path string) {
	s, err := metadata.LoadFile(path)
	if err != nil {
		log.Printf("WARN: Failed to load seed schema: %v", err)
		return
	}
	res, err := ws.Seed(ctx, s)
	if err != nil {
		log.Printf("WARN: Failed to seed schema: %v", err)
		return
	}
	if !res.Valid {
		log.Printf("WARN: Seed schema %s rejected: %v", path, res.Errors)
		return
	}
	log.Printf("Schema seeded from %s (revision %d)", path, ws.Revision())
}
