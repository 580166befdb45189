package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"

	"github.com/br-silvano/moveit-next/internal/assets"
	"github.com/br-silvano/moveit-next/internal/challenge"
	"github.com/br-silvano/moveit-next/internal/config"
	"github.com/br-silvano/moveit-next/internal/httpapi"
	sharedauth "github.com/br-silvano/moveit-next/internal/platform/auth"
	"github.com/br-silvano/moveit-next/internal/platform/logging"
	sharedserver "github.com/br-silvano/moveit-next/internal/platform/server"
	"github.com/br-silvano/moveit-next/internal/session"
	"github.com/br-silvano/moveit-next/internal/sound"
	"github.com/br-silvano/moveit-next/internal/store"
)

const serviceName = "moveit-service"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName, cfg.LogLevel)

	var resolver sound.Resolver
	var assetService *assets.Service
	if cfg.Assets.Bucket != "" {
		assetService, err = assets.NewService(ctx, cfg.Assets.Bucket, cfg.Assets.Endpoint)
		if err != nil {
			panic(fmt.Errorf("assets service init error: %w", err))
		}
		if cfg.Assets.SignerKeyFile != "" {
			key, err := os.ReadFile(cfg.Assets.SignerKeyFile)
			if err != nil {
				panic(fmt.Errorf("assets signer key: %w", err))
			}
			assetService.UseSigningKey(cfg.Assets.SignerEmail, key)
		}
		resolver = assetService.SignedURL
	}

	catalog, err := loadCatalog(ctx, cfg, assetService)
	if err != nil {
		panic(fmt.Errorf("catalog error: %w", err))
	}
	logger.Info("challenge catalog loaded", slog.Int("challenges", catalog.Len()))

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("backend init error: %w", err))
	}

	registry, stopSessions := session.NewRegistry(catalog, backend, resolver, session.Config{
		IdleTTL:                cfg.Session.IdleTTL,
		NotificationPermission: cfg.Session.NotificationPermission,
		SoundAsset:             cfg.Assets.SoundAsset,
		Seed:                   cfg.Session.Seed,
	}, logger)

	limiter, stopLimiter := session.NewLimiter(cfg.RateLimit.StartsPerMinute, cfg.RateLimit.Burst)

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	probes := map[string]sharedserver.Probe{"store": backend.Ping}
	if assetService != nil {
		probes["assets"] = assetService.Ping
	}

	router := sharedserver.NewRouter(sharedserver.Options{
		Service: serviceName,
		Logger:  logger,
		Probes:  probes,
	}, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier, sharedauth.MiddlewareOptions{
				TrustUserHeader: cfg.Auth.TrustUserHeader,
			}))

			httpapi.RegisterRoutes(r, httpapi.Dependencies{
				Sessions: registry,
				Catalog:  catalog,
				Limiter:  limiter,
				Profile:  httpapi.Profile{Name: cfg.Profile.Name, AvatarURL: cfg.Profile.AvatarURL},
				Logger:   logger,
			})
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanups := []sharedserver.Cleanup{
		func(context.Context) error {
			stopSessions()
			stopLimiter()
			return nil
		},
		func(context.Context) error { return backend.Close() },
	}
	if assetService != nil {
		cleanups = append(cleanups, func(context.Context) error { return assetService.Close() })
	}

	if err := sharedserver.Run(ctx, srv, logger, cleanups...); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func loadCatalog(ctx context.Context, cfg config.Config, assetService *assets.Service) (*challenge.Catalog, error) {
	switch {
	case cfg.Catalog.File != "":
		return challenge.LoadCatalogFile(cfg.Catalog.File)
	case cfg.Catalog.Bucket != "":
		svc := assetService
		if svc == nil || cfg.Catalog.Bucket != cfg.Assets.Bucket {
			catalogService, err := assets.NewService(ctx, cfg.Catalog.Bucket, cfg.Assets.Endpoint)
			if err != nil {
				return nil, err
			}
			defer catalogService.Close()
			svc = catalogService
		}
		return svc.LoadCatalog(ctx, cfg.Catalog.Object)
	default:
		return challenge.LoadBundledCatalog()
	}
}

func newBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.DataStore {
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}

		var (
			client *firestore.Client
			err    error
		)
		if cfg.Firestore.Database != "" {
			client, err = firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.Firestore.Database)
		} else {
			client, err = firestore.NewClient(ctx, cfg.GCPProjectID)
		}
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		return store.NewFirestore(client), nil
	case config.DataStoreSQLite:
		db, err := store.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DataStoreMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported datastore: %s", cfg.DataStore)
	}
}
