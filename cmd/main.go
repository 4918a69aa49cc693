package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Vovarama1992/tabletalk-host/internal/ai"
	"github.com/Vovarama1992/tabletalk-host/internal/chat"
	"github.com/Vovarama1992/tabletalk-host/internal/config"
	"github.com/Vovarama1992/tabletalk-host/internal/conversation"
	"github.com/Vovarama1992/tabletalk-host/internal/db"
	"github.com/Vovarama1992/tabletalk-host/internal/httpx"
	"github.com/Vovarama1992/tabletalk-host/internal/logging"
	"github.com/Vovarama1992/tabletalk-host/internal/restaurant"
	"github.com/Vovarama1992/tabletalk-host/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	conn, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db open")
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, cfg.DatabaseDriver); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	// --- Restaurant module wiring ---
	restaurantRepo := restaurant.NewRepo(conn)
	restaurantService := restaurant.NewService(restaurantRepo, logging.Component(log, "restaurant"))
	if cfg.SeedDemo {
		if err := restaurantService.SeedDemo(ctx); err != nil {
			log.Fatal().Err(err).Msg("seed demo")
		}
	}

	// --- Conversation module wiring ---
	conversationRepo := conversation.NewRepo(conn)
	conversationService := conversation.NewService(
		conversationRepo,
		restaurantRepo,
		cfg.ConversationListLimit,
		logging.Component(log, "conversation"),
	)

	// --- AI ---
	aiClient := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	}, logging.Component(log, "ai"))
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set, chat and tts will fail")
	}

	// --- Chat module wiring ---
	chatService, err := chat.NewService(
		restaurantRepo,
		conversationRepo,
		aiClient,
		chat.Options{StreamTimeout: cfg.StreamTimeout, MaxMessages: cfg.MaxTurnMessages},
		logging.Component(log, "chat"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("chat service")
	}

	speechService := speech.NewService(aiClient, speech.Options{
		Model:    cfg.TTSModel,
		Voice:    cfg.TTSVoice,
		MaxChars: cfg.TTSMaxChars,
	}, logging.Component(log, "speech"))

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(logging.Component(log, "http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	restaurant.RegisterRoutes(r, restaurant.NewHandler(restaurantService, logging.Component(log, "restaurant")))
	conversation.RegisterRoutes(r, conversation.NewHandler(conversationService, logging.Component(log, "conversation")))
	chat.RegisterRoutes(r, chat.NewHandler(chatService, logging.Component(log, "chat")))
	speech.RegisterRoutes(r, speech.NewHandler(speechService, logging.Component(log, "speech")))

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	// no WriteTimeout: replies are streamed for up to CHAT_STREAM_TIMEOUT
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("driver", cfg.DatabaseDriver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.StreamTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}
