package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.Mutex
	cache  = make(map[reflect.Type]any)
	dotenv sync.Once
)

// Load populates cfg from environment variables. Each configuration type
// is parsed once; later calls for the same type return the cached value.
// A .env file in the working directory is loaded before the first parse.
func Load[T any](cfg *T) error {
	dotenv.Do(func() {
		// Missing .env is not an error; the environment wins anyway.
		_ = godotenv.Load()
	})

	mu.Lock()
	defer mu.Unlock()

	t := reflect.TypeOf(*cfg)
	if cached, ok := cache[t]; ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("load %s from environment: %w", t, err)
	}

	cache[t] = *cfg
	return nil
}

// MustLoad is Load that panics on failure, for use during startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
