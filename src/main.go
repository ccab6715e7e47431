package main

import (
	"budgetsync-server/src/api"
	"budgetsync-server/src/config"
	"budgetsync-server/src/db"
	plaidsvc "budgetsync-server/src/plaid"
	"context"
	"log"
	"net/http"
)

func main() {
	cfg := config.Load()

	// Connect to database
	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("DB connection failed: %v", err)
	}
	defer pool.Close()

	// Apply schema migrations
	if err := db.Migrate(context.Background(), cfg.DatabaseURL); err != nil {
		log.Fatalf("DB migration failed: %v", err)
	}

	// In-memory response cache
	db.InitCache()

	// Plaid client and sync service
	client := plaidsvc.NewClient(plaidsvc.NewPlaidClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv))
	svc := plaidsvc.NewService(client, plaidsvc.NewSQLStore(pool))

	// Router
	router := api.NewRouter(pool, svc, cfg)

	log.Println("API server running on port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
