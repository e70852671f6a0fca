package global

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"chatter/logger"
)

// Config holds every setting the process reads at boot. Values come from the
// environment (CHATTER_* variables), optionally seeded from a .env file.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":5000"`

	MongoURI string `envconfig:"MONGO_URI" default:"mongodb://127.0.0.1:27017"`
	MongoDB  string `envconfig:"MONGO_DB" default:"chatter"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// HMAC key for login tokens and QR pairing tokens.
	JWTSecret  string        `envconfig:"JWT_SECRET" default:"secret"`
	JWTTTL     time.Duration `envconfig:"JWT_TTL" default:"720h"`
	PairingTTL time.Duration `envconfig:"PAIRING_TTL" default:"2m"`

	// OneSignal push credentials; empty disables push delivery.
	OneSignalApp string `envconfig:"ONESIGNAL_APP" default:""`
	OneSignalKey string `envconfig:"ONESIGNAL_KEY" default:""`

	// RapidAPI translation credentials; empty disables translation.
	TranslateHost string `envconfig:"TRANSLATE_HOST" default:"nlp-translation.p.rapidapi.com"`
	TranslateKey  string `envconfig:"TRANSLATE_KEY" default:""`

	// Local directory backing the object store for avatars and chat media.
	MediaDir string `envconfig:"MEDIA_DIR" default:"public"`
}

var conf Config

// Load reads the .env file (if present) and the environment into the
// process-wide config. Call once from main before anything else.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, relying on environment")
	}
	if err := envconfig.Process("chatter", &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func Conf() *Config { return &conf }
