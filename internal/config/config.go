package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/br-silvano/moveit-next/internal/challenge"
	sharedauth "github.com/br-silvano/moveit-next/internal/platform/auth"
	"github.com/br-silvano/moveit-next/internal/platform/envconfig"
)

// Config encapsulates the runtime configuration for the challenge service.
type Config struct {
	Port         string `validate:"required,numeric"`
	LogLevel     string `validate:"omitempty,oneof=debug info warn warning error"`
	GCPProjectID string
	DataStore    DataStore `validate:"required,oneof=memory firestore sqlite"`
	SQLite       SQLiteConfig
	Firestore    FirestoreConfig
	Auth         AuthConfig
	Catalog      CatalogConfig
	Assets       AssetsConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	Profile      ProfileConfig
}

// DataStore enumerates supported persistence backends.
type DataStore string

const (
	// DataStoreMemory keeps progress in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore stores progress in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
	// DataStoreSQLite stores progress in a local SQLite file.
	DataStoreSQLite DataStore = "sqlite"
)

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	Path string
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	EmulatorHost string
	Database     string
}

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     sharedauth.Mode `validate:"required,oneof=clerk noop"`
	JWKSURL  string
	Audience string
	Issuer   string

	// TrustUserHeader accepts X-User-ID from internal callers in place of a token. Enable it
	// only behind a gateway that strips the header from outside requests.
	TrustUserHeader bool
}

// CatalogConfig selects where challenge definitions are loaded from. Bundled is used
// when neither a file nor a bucket object is set.
type CatalogConfig struct {
	File   string
	Bucket string
	Object string
}

// AssetsConfig points sound cues at a Cloud Storage bucket.
type AssetsConfig struct {
	Bucket     string
	Endpoint   string
	SoundAsset string `validate:"required"`

	// SignerEmail and SignerKeyFile sign asset URLs with a service account key.
	SignerEmail   string `validate:"required_with=SignerKeyFile"`
	SignerKeyFile string `validate:"required_with=SignerEmail"`
}

// SessionConfig tunes session lifetime and challenge selection.
type SessionConfig struct {
	IdleTTL                time.Duration        `validate:"gt=0"`
	NotificationPermission challenge.Permission `validate:"oneof=default granted denied"`
	Seed                   uint64
}

// RateLimitConfig throttles challenge starts per user. StartsPerMinute=0 disables it.
type RateLimitConfig struct {
	StartsPerMinute int `validate:"gte=0"`
	Burst           int `validate:"gte=0"`
}

// ProfileConfig is the static profile shown next to the level.
type ProfileConfig struct {
	Name      string `validate:"required"`
	AvatarURL string `validate:"omitempty,url"`
}

// Load reads environment variables into Config with validation.
func Load() (Config, error) {
	idleTTL, err := envconfig.GetDuration("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	startsPerMinute, err := envconfig.GetInt("START_RATE_PER_MINUTE", 30)
	if err != nil {
		return Config{}, err
	}
	burst, err := envconfig.GetInt("START_BURST", 5)
	if err != nil {
		return Config{}, err
	}
	seed, err := envconfig.GetUint64("CHALLENGE_SEED", 0)
	if err != nil {
		return Config{}, err
	}
	trustUserHeader, err := envconfig.GetBool("AUTH_TRUST_USER_HEADER", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		LogLevel:     strings.ToLower(envconfig.Get("LOG_LEVEL", "info")),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", ""),
		DataStore:    DataStore(strings.ToLower(envconfig.Get("DATASTORE", string(DataStoreMemory)))),
		SQLite: SQLiteConfig{
			Path: envconfig.Get("SQLITE_PATH", "data/moveit.db"),
		},
		Firestore: FirestoreConfig{
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
			Database:     envconfig.Get("FIRESTORE_DATABASE", ""),
		},
		Auth: AuthConfig{
			Mode:     sharedauth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", string(sharedauth.ModeNoop)))),
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", ""),
			Audience: envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:   envconfig.Get("CLERK_ISSUER", ""),

			TrustUserHeader: trustUserHeader,
		},
		Catalog: CatalogConfig{
			File:   envconfig.Get("CHALLENGES_FILE", ""),
			Bucket: envconfig.Get("CHALLENGES_BUCKET", ""),
			Object: envconfig.Get("CHALLENGES_OBJECT", "challenges.json"),
		},
		Assets: AssetsConfig{
			Bucket:     envconfig.Get("ASSETS_BUCKET", ""),
			Endpoint:   envconfig.Get("STORAGE_ENDPOINT", ""),
			SoundAsset: envconfig.Get("SOUND_ASSET", challenge.DefaultSoundAsset),

			SignerEmail:   envconfig.Get("ASSETS_SIGNER_EMAIL", ""),
			SignerKeyFile: envconfig.Get("ASSETS_SIGNER_KEY_FILE", ""),
		},
		Session: SessionConfig{
			IdleTTL:                idleTTL,
			NotificationPermission: challenge.Permission(strings.ToLower(envconfig.Get("NOTIFICATION_PERMISSION", string(challenge.PermissionDefault)))),
			Seed:                   seed,
		},
		RateLimit: RateLimitConfig{
			StartsPerMinute: startsPerMinute,
			Burst:           burst,
		},
		Profile: ProfileConfig{
			Name:      envconfig.Get("PROFILE_NAME", "Silvano Souza"),
			AvatarURL: envconfig.Get("PROFILE_AVATAR_URL", "https://avatars.githubusercontent.com/u/51132812?s=460&v=4"),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if err := envconfig.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch cfg.DataStore {
	case DataStoreFirestore:
		if cfg.GCPProjectID == "" {
			return fmt.Errorf("gcp project id required when datastore=firestore")
		}
	case DataStoreSQLite:
		if strings.TrimSpace(cfg.SQLite.Path) == "" {
			return fmt.Errorf("SQLITE_PATH is required when datastore=sqlite")
		}
	}

	if cfg.Auth.Mode == sharedauth.ModeClerk && cfg.Auth.JWKSURL == "" {
		return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
	}

	if cfg.Catalog.File != "" && cfg.Catalog.Bucket != "" {
		return fmt.Errorf("set either CHALLENGES_FILE or CHALLENGES_BUCKET, not both")
	}
	if cfg.Catalog.Bucket != "" && strings.TrimSpace(cfg.Catalog.Object) == "" {
		return fmt.Errorf("CHALLENGES_OBJECT is required when CHALLENGES_BUCKET is set")
	}

	return nil
}
