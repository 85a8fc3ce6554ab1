package redisstore

import "time"

type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"` // ConnectionURL in the format "redis://:password@localhost:6379/0".
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`                      // RetryAttempts is the number of connection attempts.
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`                     // RetryInterval is the pause between connection attempts.
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`                   // ConnectTimeout bounds the whole connection procedure.
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"scenario"`                   // KeyPrefix namespaces magazine, state and lock keys.
	LockTTL        time.Duration `env:"REDIS_LOCK_TTL" envDefault:"30s"`                          // LockTTL expires locks left behind by crashed instances; held locks are renewed.
	LockRefresh    time.Duration `env:"REDIS_LOCK_REFRESH" envDefault:"10s"`                      // LockRefresh is the renewal interval of a held lock.
}
