package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shodh-ai/voxagent/internal/config"
	"github.com/shodh-ai/voxagent/internal/log"
	"github.com/shodh-ai/voxagent/pkg/agent"
	"github.com/shodh-ai/voxagent/pkg/model"
	"github.com/shodh-ai/voxagent/pkg/persona"
	"github.com/shodh-ai/voxagent/pkg/room"
	"github.com/shodh-ai/voxagent/pkg/session/archive"
	"github.com/shodh-ai/voxagent/pkg/tool"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides LISTEN_ADDR)")
	serveCmd.Flags().String("page", config.DefaultPagePath, "Default page context for new sessions")
	serveCmd.Flags().String("personas", "", "Directory of persona YAML files (overrides PERSONA_DIR)")
	serveCmd.Flags().String("redis", "", "Redis address for history archival (overrides REDIS_ADDR)")
	serveCmd.Flags().Bool("mock-model", false, "Use a mock model backend (local development without an API key)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	config.LoadDotenv()

	level, _ := cmd.Flags().GetString("log-level")
	log.Init(level)
	logger := log.Component("server")

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = config.ListenAddr()
	}
	defaultPage, _ := cmd.Flags().GetString("page")

	// Personas: built-ins plus whatever YAML the deployment ships.
	catalog := persona.NewCatalog()
	personaDir, _ := cmd.Flags().GetString("personas")
	if personaDir == "" {
		personaDir = config.PersonaDir()
	}
	if err := catalog.LoadDir(personaDir); err != nil {
		return fmt.Errorf("loading personas: %w", err)
	}

	registry := tool.NewRegistry()
	registry.MustRegister(agent.Tools(agent.ToolConfig{
		FeedbackURL: config.Env("SPEECH_FEEDBACK_URL", ""),
		ProgressURL: config.Env("PROGRESS_URL", ""),
	})...)
	logger.Info("tool catalog ready", "tools", registry.Names())

	newBackend, err := backendFactory(cmd)
	if err != nil {
		return err
	}

	redisAddr, _ := cmd.Flags().GetString("redis")
	if redisAddr == "" {
		redisAddr = config.RedisAddr()
	}
	archiver := archive.Connect(context.Background(), redisAddr)
	defer archiver.Close()

	gateway := room.NewGateway()
	orchestrator := agent.New(agent.Options{
		Catalog:     catalog,
		Registry:    registry,
		Gateway:     gateway,
		NewBackend:  newBackend,
		Archiver:    archiver,
		DefaultPage: defaultPage,
	})

	app := fiber.New(fiber.Config{
		AppName:               "agent-server",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
	})

	gateway.RegisterRoutes(app)
	registerAPIRoutes(app, orchestrator, catalog, gateway)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Serve until signalled, then drain.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

// backendFactory picks the model backend for this process.
func backendFactory(cmd *cobra.Command) (agent.BackendFactory, error) {
	if mock, _ := cmd.Flags().GetBool("mock-model"); mock {
		log.Component("server").Warn("using mock model backend")
		return func() (model.Backend, error) {
			return model.NewMock(), nil
		}, nil
	}

	apiKey := config.GoogleAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is not set (use --mock-model for local development)")
	}
	geminiModel := config.Env("GEMINI_MODEL", "")

	return func() (model.Backend, error) {
		if geminiModel != "" {
			return model.NewGemini(apiKey, model.WithModel(geminiModel))
		}
		return model.NewGemini(apiKey)
	}, nil
}

// registerAPIRoutes exposes the read-only admin API.
func registerAPIRoutes(app *fiber.App, orchestrator *agent.Agent, catalog *persona.Catalog, gateway *room.Gateway) {
	api := app.Group("/api")

	api.Get("/personas", func(c *fiber.Ctx) error {
		personas := catalog.List()
		out := make([]fiber.Map, 0, len(personas))
		for _, p := range personas {
			out = append(out, fiber.Map{
				"identity":    p.Identity,
				"description": p.Description,
				"tools":       p.AllowedTools,
			})
		}
		return c.JSON(out)
	})

	api.Get("/sessions", func(c *fiber.Ctx) error {
		store := orchestrator.Store()
		out := make([]fiber.Map, 0)
		for _, roomID := range store.Rooms() {
			state, err := store.Get(roomID)
			if err != nil {
				continue
			}
			entry := fiber.Map{
				"room":    roomID,
				"persona": state.Persona().Identity,
				"page":    state.PageType(),
				"created": state.CreatedAt(),
			}
			if r, ok := gateway.Lookup(roomID); ok {
				entry["participants"] = r.ParticipantCount()
			}
			out = append(out, entry)
		}
		return c.JSON(out)
	})

	api.Get("/sessions/:room/history", func(c *fiber.Ctx) error {
		state, err := orchestrator.Store().Get(c.Params("room"))
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}
		return c.JSON(state.History())
	})
}
