package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/glowdesk/glowdesk/config"
	"github.com/glowdesk/glowdesk/pkg/database"
	"github.com/glowdesk/glowdesk/pkg/store"
	"github.com/glowdesk/glowdesk/pkg/testdata"
)

func main() {
	count := flag.Int("count", 200, "number of fake clients to create")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	st := store.NewPostgres(db)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize schema: %v", err)
	}

	log.Printf("🌱 Seeding %d clients with appointment history...", *count)
	clients, err := testdata.GenerateClients(ctx, st, testdata.DefaultClientGeneratorConfig(*count))
	if err != nil {
		log.Fatalf("❌ Seeding failed after %d clients: %v", len(clients), err)
	}

	log.Printf("✅ Seeded %d clients", len(clients))
}
