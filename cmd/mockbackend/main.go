package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"classroll/internal/config"
	"classroll/internal/mockbackend"
)

func main() {
	// .env is optional.
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	backend := mockbackend.New(mockbackend.Config{
		Username:        cfg.MockUsername,
		Password:        cfg.MockPassword,
		Issuer:          cfg.JWTIssuer,
		SigningKey:      cfg.JWTSigningKey,
		AccessTTL:       cfg.AccessTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		InlineCounts:    os.Getenv("MOCK_INLINE_COUNTS") == "1",
	})

	srv := &http.Server{
		Addr:         cfg.MockAddr,
		Handler:      backend.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("mock backend listening on %s (user %s)", cfg.MockAddr, cfg.MockUsername)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down mock backend...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("mock backend exited")
}
