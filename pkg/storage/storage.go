package storage

import (
	"context"
	"fmt"
	"strings"
)

type Type string

const (
	Bolt   Type = "bolt"
	Redis  Type = "redis"
	Memory Type = "memory"
)

// Option carries provider-specific settings. BoltPath applies to the bolt
// provider, Address and Password to redis.
type Option struct {
	BoltPath string
	Address  string
	Password string
}

// ServiceStorage describes the api for storage independent of DB providers
type ServiceStorage interface {
	Close() error
	Write(ctx context.Context, namespace, key string, value []byte) error
	Read(ctx context.Context, namespace, key string) ([]byte, error)
	ReadAll(ctx context.Context, namespace string) (map[string][]byte, error)
	Exists(ctx context.Context, namespace, key string) (bool, error)
	Delete(ctx context.Context, namespace, key string) error
}

// NewServiceStorage returns a ServiceStorage backed by the given provider.
func NewServiceStorage(provider Type, option Option) (ServiceStorage, error) {
	switch provider {
	case Bolt, "":
		return NewBoltDB(option.BoltPath)
	case Redis:
		return NewRedisDB(option.Address, option.Password)
	case Memory:
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", provider)
	}
}

// MakeNamespace takes a set of possible namespace values and combines them as a convention
func MakeNamespace(ns ...string) string {
	return strings.Join(ns, "-")
}
