package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/dmytrik/notesApi/internal/auth"
	"github.com/dmytrik/notesApi/internal/config"
	"github.com/dmytrik/notesApi/internal/database"
	"github.com/dmytrik/notesApi/internal/handler"
	"github.com/dmytrik/notesApi/internal/middleware"
	"github.com/dmytrik/notesApi/internal/queue"
	"github.com/dmytrik/notesApi/internal/repository"
	"github.com/dmytrik/notesApi/internal/router"
	"github.com/dmytrik/notesApi/internal/service"
)

func main() {
	// Load .env if present; real deployments rely on the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	notes := repository.NewNoteRepo(db)

	authority := auth.New(auth.Config{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL(),
		RefreshTTL:    cfg.RefreshTTL(),
	}, tokens)

	revisions := service.NewRevisionManager(notes)

	var summarizer service.Summarizer = service.NoopSummarizer{}
	if cfg.SummarizerURL != "" {
		summarizer = service.NewHTTPSummarizer(cfg.SummarizerURL, cfg.SummarizerAPIKey)
	} else {
		log.Println("SUMMARIZER_URL not set; notes will be stored without summaries")
	}

	authHandler := handler.NewAuthHandler(cfg, users, tokens, authority)
	noteHandler := handler.NewNoteHandler(notes, revisions, summarizer, cfg.SummarizerTimeout)

	e := echo.New()

	// Distributed rate limiting degrades to a no-op when Redis is
	// unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, authority)
	router.RegisterNotes(e, noteHandler, authority)

	// Background consumer turns note events into an audit log.
	go func() {
		if err := queue.StartNoteConsumer(); err != nil {
			log.Printf("note consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
