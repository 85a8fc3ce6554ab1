// Package config loads application configuration from environment variables
// into tagged structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11. The
// default .env file is loaded once, if present, and every configuration type
// is parsed at most once per process:
//
//	type AppConfig struct {
//	    BotToken    string `env:"BOT_TOKEN,required"`
//	    StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
//	}
//
//	var cfg AppConfig
//	config.MustLoad(&cfg)
//
// LoadWithPrefix reads the same struct under a variable prefix, which lets a
// backend config type such as redisstore.Config be loaded more than once:
//
//	var cache redisstore.Config
//	err := config.LoadWithPrefix(&cache, "CACHE_")
//
// LoadEnv loads explicit .env files with override semantics, and ResetCache
// clears the cache between tests.
//
// Failures wrap ErrParsingConfig, ErrLoadingEnvFile or ErrNilPointer and can be
// matched with errors.Is.
package config
