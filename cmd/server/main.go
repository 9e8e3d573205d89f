package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carepath/internal/app"
	"carepath/internal/config"
	"carepath/internal/transport/rest"
	"carepath/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	log.Printf("Program policy: %d days, default wait %.0fh, languages %v",
		cfg.Policy.TotalDays, cfg.Policy.DefaultWaitHours, cfg.Policy.Languages)

	a, err := app.Open(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close(context.Background())

	wsHub := ws.NewHub()
	a.ProgramService.SetBroadcaster(wsHub)
	log.Println("WebSocket hub started")

	router := rest.NewRouter(&rest.Container{
		AuthService:    a.AuthService,
		ProgramService: a.ProgramService,
		ContentService: a.ContentService,
		WSHub:          wsHub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Printf("Operator auth: username=%s", os.Getenv("HOST_USERNAME"))
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/login")
		log.Println("  POST/GET /v1/programs")
		log.Println("  GET/PUT/POST/DELETE /v1/content/days/...")
		log.Println("  GET/POST/PUT /v1/me/...")
		log.Println("  WS  /v1/ws/operators")
		log.Println("  WS  /v1/ws/participant")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
