// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"rendezvous/internal/adapter/events"
	"rendezvous/internal/adapter/geocode"
	"rendezvous/internal/adapter/memory"
	"rendezvous/internal/adapter/storage"
	"rendezvous/internal/config"
	"rendezvous/internal/domain/event"
	"rendezvous/internal/domain/geo"
	"rendezvous/internal/server"
	collabService "rendezvous/internal/service/collab"
	contentService "rendezvous/internal/service/content"
	geoService "rendezvous/internal/service/geo"
	meetingService "rendezvous/internal/service/meeting"
	sentimentService "rendezvous/internal/service/sentiment"
	"rendezvous/internal/service/social"
)

// stores groups one adapter per component
type stores struct {
	markers   geoService.MarkerStore
	content   contentService.Repository
	meetings  meetingService.Store
	sessions  collabService.Store
	reactions sentimentService.ReactionStore
	heat      sentimentService.HeatStore
}

func main() {
	// Load .env for local development; absence is fine
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize storage adapters
	var st stores
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Println("Using in-memory storage")
		st = memoryStores()
	default:
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		if cfg.Database.Migrate {
			if err := storage.ApplyMigrations(ctx, db); err != nil {
				log.Fatalf("Failed to apply migrations: %v", err)
			}
		}
		st = postgresStores(db)
	}

	if cfg.Redis.URL != "" {
		heat, err := storage.NewRedisHeatStore(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer heat.Close()
		st.heat = heat
	}

	var publisher event.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		natsConn, err := initNATS(cfg.NATS)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsConn.Close()
		publisher = events.NewNATSPublisher(natsConn, cfg.NATS.EventsTopic)
	}

	// Region lookups are skipped entirely without a geocoder key
	var geocoder geo.Geocoder
	if cfg.Geo.GeocoderAPIKey != "" {
		geocoder = geocode.NewGeoapifyClient(cfg.Geo.GeocoderURL, cfg.Geo.GeocoderAPIKey, cfg.Geo.GeocoderTimeout)
	} else {
		log.Println("GEOAPIFY_API_KEY not set; heatmap regions disabled")
	}

	// Initialize services
	index := geoService.NewIndex(st.markers, geoService.IndexConfig{
		DefaultLimit: cfg.Geo.DefaultLimit,
		MaxLimit:     cfg.Geo.MaxLimit,
	})
	regions := geoService.NewRegionFilter(geocoder, cfg.Geo.SupportedRegions)

	service := social.NewService(social.Deps{
		Markers:   index,
		Meetings:  meetingService.NewCoordinator(st.meetings, index),
		Sessions:  collabService.NewSessions(st.sessions),
		Content:   contentService.NewService(st.content),
		Reactions: sentimentService.NewReactions(st.reactions),
		Heatmap: sentimentService.NewHeatmap(st.heat, regions, sentimentService.HeatmapConfig{
			HalfLife: cfg.Heatmap.HalfLife,
		}),
		Events: publisher,
	})

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, service)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}

func memoryStores() stores {
	return stores{
		markers:   memory.NewMarkerStore(),
		content:   memory.NewContentStore(),
		meetings:  memory.NewMeetingStore(),
		sessions:  memory.NewSessionStore(),
		reactions: memory.NewReactionStore(),
		heat:      memory.NewHeatStore(),
	}
}

func postgresStores(db *pgxpool.Pool) stores {
	return stores{
		markers:   storage.NewMarkerStore(db),
		content:   storage.NewContentStore(db),
		meetings:  storage.NewMeetingStore(db),
		sessions:  storage.NewSessionStore(db),
		reactions: storage.NewReactionStore(db),
		heat:      storage.NewHeatStore(db),
	}
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.Name("rendezvous-api"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
