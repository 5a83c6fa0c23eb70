// backend-go/cmd/ingest/main.go
package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/stocklens/backend-go/internal/config"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/internal/repository/postgres"
	"github.com/stocklens/backend-go/internal/shipments"
	"github.com/stocklens/backend-go/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Setup(cfg.Server.Mode)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	shipmentRepo := repository.NewShipmentRepository(db.DB)
	ingestService := shipments.NewIngestService(shipmentRepo)

	r := mux.NewRouter()
	handler := shipments.NewHandler(ingestService)
	handler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Ingest server starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
