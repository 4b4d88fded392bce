// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"fortyone/internal/auth"
	"fortyone/internal/cache"
	"fortyone/internal/handlers"
	"fortyone/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Redis is optional: without it matches run fine, the historian
	// just never hears about them.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("Redis unavailable, match facts will not be published: %v", err)
	}

	srv := handlers.NewMatchServer(logger)

	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(logger))

	r.Post("/match/create", handlers.CreateMatchHandler(srv))
	r.Get("/match/list", handlers.ListMatchesHandler(srv))
	r.Get("/match/ws/{id}", handlers.MatchWSHandler(logger, srv))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
