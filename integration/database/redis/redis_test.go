package redis

import (
	"context"
	"errors"
	"testing"
)

func TestConnectValidation(t *testing.T) {
	t.Run("empty URL", func(t *testing.T) {
		_, err := Connect(context.Background(), Config{})
		if !errors.Is(err, ErrEmptyConnectionURL) {
			t.Fatalf("expected ErrEmptyConnectionURL, got %v", err)
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := Connect(context.Background(), Config{ConnectionURL: "http://localhost:6379"})
		if !errors.Is(err, ErrFailedToParseRedisConnString) {
			t.Fatalf("expected ErrFailedToParseRedisConnString, got %v", err)
		}
	})

	t.Run("malformed URL", func(t *testing.T) {
		_, err := Connect(context.Background(), Config{ConnectionURL: "redis://user@host:not-a-port/0"})
		if !errors.Is(err, ErrFailedToParseRedisConnString) {
			t.Fatalf("expected ErrFailedToParseRedisConnString, got %v", err)
		}
	})
}
