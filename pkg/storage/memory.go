package storage

import (
	"context"
	"sync"
)

// MemoryDB is an in memory implementation of ServiceStorage that is safe for
// concurrent use. It is intended for tests.
type MemoryDB struct {
	maps sync.Map
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{}
}

func (f *MemoryDB) Close() error {
	return nil
}

func (f *MemoryDB) namespace(namespace string) *sync.Map {
	m, _ := f.maps.LoadOrStore(namespace, &sync.Map{})
	return m.(*sync.Map)
}

func (f *MemoryDB) Write(_ context.Context, namespace, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	f.namespace(namespace).Store(key, stored)
	return nil
}

func (f *MemoryDB) Read(_ context.Context, namespace, key string) ([]byte, error) {
	v, ok := f.namespace(namespace).Load(key)
	if !ok {
		return nil, nil
	}
	return v.([]byte), nil
}

func (f *MemoryDB) ReadAll(_ context.Context, namespace string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	f.namespace(namespace).Range(func(key, value any) bool {
		result[key.(string)] = value.([]byte)
		return true
	})
	return result, nil
}

func (f *MemoryDB) Exists(_ context.Context, namespace, key string) (bool, error) {
	_, ok := f.namespace(namespace).Load(key)
	return ok, nil
}

func (f *MemoryDB) Delete(_ context.Context, namespace, key string) error {
	f.namespace(namespace).Delete(key)
	return nil
}
