package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"organizer/internal/ai"
	"organizer/internal/api"
	"organizer/internal/auth"
	"organizer/internal/config"
	"organizer/internal/database"
	"organizer/internal/geo"
	"organizer/internal/handlers"
	"organizer/internal/logging"
	"organizer/internal/metrics"
	"organizer/internal/models"
	"organizer/internal/service"
	"organizer/internal/store"
	"organizer/internal/supabase"
	"organizer/internal/websocket"
)

const (
	accessTokenTTL  = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// backends is what the selected store mode provides.
type backends struct {
	store    store.Backend
	blobs    store.Blobs
	auth     handlers.AuthProvider
	database *database.DB

	// localBlobs is set when uploads are kept in memory.
	localBlobs *store.MemoryBlobs
}

func openBackends(ctx context.Context, cfg *config.Config, jwtManager *auth.JWTManager, logger *zap.Logger) (backends, error) {
	var b backends

	hosted := cfg.Supabase.URL != "" && cfg.Supabase.ServiceRoleKey != ""
	if hosted {
		client, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)
		if err != nil {
			return b, err
		}
		b.auth = supabase.NewAuth(client.Auth)
		b.blobs = supabase.NewBlobs(client.Storage)
		if cfg.Store.Backend == "supabase" {
			b.store = supabase.NewBackend(client)
		}
	} else {
		logger.Warn("hosted auth not configured; accounts are kept in memory")
		b.auth = auth.NewLocalProvider(jwtManager)
		b.localBlobs = store.NewMemoryBlobs("http://localhost:"+cfg.Port+"/blobs",
			store.BucketRecipeImages, store.BucketMemoryImages, store.BucketRestaurantImages)
		b.blobs = b.localBlobs
	}

	switch cfg.Store.Backend {
	case "postgres":
		db, err := database.Connect(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			return b, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return b, fmt.Errorf("failed to run migrations: %w", err)
		}
		b.database = db
		b.store = db
	case "memory":
		b.store = store.NewMemoryBackend()
	}
	return b, nil
}

// enrichment is the AI surface the services take. All fields stay nil
// interfaces when no API key is configured.
type enrichment struct {
	restaurants service.RestaurantAI
	recipes     service.RecipeAI
	datePlans   service.DatePlanner
	geocoder    geo.Geocoder
}

func openAI(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (enrichment, error) {
	if cfg.AI.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; AI features are disabled")
		return enrichment{}, nil
	}
	generator, err := ai.NewGenAI(ctx, cfg.AI.APIKey)
	if err != nil {
		return enrichment{}, err
	}
	client := ai.NewClient(generator, ai.Config{
		Model:         cfg.AI.Model,
		RetryAttempts: cfg.AI.RetryAttempts,
		RetryBackoff:  cfg.AI.RetryBackoff,
		RatePerMinute: cfg.AI.RatePerMinute,
		Timeout:       cfg.AI.Timeout,
		City:          cfg.AI.City,
	}, collector, logger.Named("ai"))
	return enrichment{restaurants: client, recipes: client, datePlans: client, geocoder: client}, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	collector := metrics.NewCollector("organizer")
	jwtManager := auth.NewJWTManager(cfg.Supabase.JWTSecret, accessTokenTTL)

	b, err := openBackends(ctx, cfg, jwtManager, logger)
	if err != nil {
		return err
	}
	if b.database != nil {
		defer b.database.Close()
	}

	enrich, err := openAI(ctx, cfg, collector, logger)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(logger.Named("realtime"), collector, cfg.CORS.AllowedOrigins)
	go hub.Run(ctx)

	// Writes publish to the hub directly unless the database trigger feed
	// is the source, in which case the listener publishes instead.
	backend := store.Backend(metrics.InstrumentBackend(b.store, collector))
	if cfg.Realtime.Source == "postgres" {
		listener := database.NewListener(b.database, hub)
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("change listener stopped", zap.Error(err))
			}
		}()
	} else {
		backend = store.NewNotifying(backend, hub, logger.Named("store"))
	}

	homes := make(geo.Homes, 0, len(cfg.Homes.Homes))
	for _, h := range cfg.Homes.Homes {
		homes = append(homes, geo.Home{Name: h.Name, Coordinate: geo.Coordinate{Lat: h.Lat, Lng: h.Lng}})
	}

	profiles := service.NewProfiles(backend)
	lists := service.NewLists(backend)
	restaurants := service.NewRestaurants(backend, b.blobs, enrich.restaurants, enrich.geocoder,
		service.RestaurantsConfig{Homes: homes, DefaultRadiusKm: cfg.Homes.DefaultRadiusKm}, logger.Named("restaurants"))
	hub.AddListener(restaurants.OnChange)
	hub.ResolveCouplesWith(func(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
		profile, err := profiles.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		return profile.CoupleID, nil
	})

	services := api.Services{
		Profiles:     profiles,
		Restaurants:  restaurants,
		Recipes:      service.NewRecipes(backend, b.blobs, lists, enrich.recipes),
		Lists:        lists,
		Memories:     service.NewMemories(backend, b.blobs),
		Expenses:     service.NewExpenses(backend, profiles),
		DatePlans:    service.NewDatePlans(backend, enrich.datePlans),
		Reminders:    service.NewReminders(backend),
		Drinks:       service.NewResource[models.Drink](backend, store.TableDrinks, "created_at"),
		Habits:       service.NewResource[models.Habit](backend, store.TableHabits, "created_at"),
		HabitEntries: service.NewResource[models.HabitEntry](backend, store.TableHabitEntries, "date"),
		Moods:        service.NewResource[models.MoodEntry](backend, store.TableMoodEntries, "date"),
		Jobs:         service.NewResource[models.JobApplication](backend, store.TableJobApplications, "updated_at"),
		CuratedLists: service.NewResource[models.CuratedList](backend, store.TableCuratedLists, "created_at"),
	}

	router := api.SetupRouter(api.Dependencies{
		Config:     cfg,
		JWT:        jwtManager,
		Auth:       b.auth,
		Services:   services,
		Hub:        hub,
		Metrics:    collector,
		Logger:     logger.Named("http"),
		LocalBlobs: b.localBlobs,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.Store.Backend),
			zap.String("realtime", cfg.Realtime.Source))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
