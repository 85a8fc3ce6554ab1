package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// cacheEntry holds one parsed configuration. once guards parsing so that
// concurrent loaders of the same key share a single env.Parse call.
type cacheEntry struct {
	once  sync.Once
	value any
	err   error
}

type configCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

var (
	globalCache = &configCache{entries: make(map[string]*cacheEntry)}

	defaultEnvLoaded sync.Once
)

// LoadEnv loads the given .env files into the process environment, overriding
// variables that are already set. Later files win. The implicit load of the
// default .env performed by Load is skipped afterwards.
func LoadEnv(files ...string) error {
	defaultEnvLoaded.Do(func() {})
	if err := godotenv.Overload(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load parses environment variables into v. Each configuration type is parsed
// once per process; later calls return the cached copy.
//
//	type BotConfig struct {
//		Token string `env:"BOT_TOKEN,required"`
//	}
//
//	var cfg BotConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	return LoadWithPrefix(v, "")
}

// LoadWithPrefix is like Load but reads every variable with prefix prepended,
// so one struct type can be loaded for several backends. The cache key
// includes the prefix.
func LoadWithPrefix[T any](v *T, prefix string) error {
	defaultEnvLoaded.Do(func() {
		// the default .env file is optional
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	key := prefix + getTypeName[T]()

	globalCache.mu.Lock()
	entry, ok := globalCache.entries[key]
	if !ok {
		entry = &cacheEntry{}
		globalCache.entries[key] = entry
	}
	globalCache.mu.Unlock()

	entry.once.Do(func() {
		var parsed T
		if err := env.ParseWithOptions(&parsed, env.Options{Prefix: prefix}); err != nil {
			entry.err = errors.Join(ErrParsingConfig, err)
			return
		}
		entry.value = parsed
	})

	if entry.err != nil {
		// drop failed entries so a corrected environment can be retried
		globalCache.mu.Lock()
		if globalCache.entries[key] == entry {
			delete(globalCache.entries, key)
		}
		globalCache.mu.Unlock()
		return entry.err
	}

	cached, ok := entry.value.(T)
	if !ok {
		return ErrInvalidConfigType
	}
	*v = cached
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

// MustLoadWithPrefix works like LoadWithPrefix but panics on failure.
func MustLoadWithPrefix[T any](v *T, prefix string) {
	if err := LoadWithPrefix(v, prefix); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

// ResetCache drops every cached configuration. Intended for tests.
func ResetCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	globalCache.entries = make(map[string]*cacheEntry)
}

func getTypeName[T any]() string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String()
}
