package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"enact/internal/app/model"

	"gorm.io/gorm"
)

var ErrKeyNotFound = errors.New("payload key not found")

type StoredKey struct {
	Handle        string
	ConditionHash string
	Key           [32]byte
}

type KeyStore interface {
	Put(ctx context.Context, key StoredKey) error
	Get(ctx context.Context, handle string) (StoredKey, error)
	// Delete removes the key for handle; a missing key is not an error.
	Delete(ctx context.Context, handle string) error
}

type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]StoredKey
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]StoredKey)}
}

func (m *MemoryKeyStore) Put(_ context.Context, key StoredKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.Handle] = key
	return nil
}

func (m *MemoryKeyStore) Get(_ context.Context, handle string) (StoredKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[handle]
	if !ok {
		return StoredKey{}, fmt.Errorf("%w: %s", ErrKeyNotFound, handle)
	}
	return key, nil
}

func (m *MemoryKeyStore) Delete(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, handle)
	return nil
}

type GormKeyStore struct {
	db  *gorm.DB
	now func() int64
}

func NewGormKeyStore(db *gorm.DB, now func() int64) *GormKeyStore {
	return &GormKeyStore{db: db, now: now}
}

func (g *GormKeyStore) Put(ctx context.Context, key StoredKey) error {
	return g.db.WithContext(ctx).Create(&model.NetworkKey{
		Handle:        key.Handle,
		ConditionHash: key.ConditionHash,
		Key:           key.Key[:],
		CreatedAt:     g.now(),
	}).Error
}

func (g *GormKeyStore) Get(ctx context.Context, handle string) (StoredKey, error) {
	var record model.NetworkKey
	err := g.db.WithContext(ctx).First(&record, "handle = ?", handle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StoredKey{}, fmt.Errorf("%w: %s", ErrKeyNotFound, handle)
	}
	if err != nil {
		return StoredKey{}, err
	}
	if len(record.Key) != 32 {
		return StoredKey{}, fmt.Errorf("stored key %s has length %d", handle, len(record.Key))
	}

	out := StoredKey{Handle: record.Handle, ConditionHash: record.ConditionHash}
	copy(out.Key[:], record.Key)
	return out, nil
}

func (g *GormKeyStore) Delete(ctx context.Context, handle string) error {
	return g.db.WithContext(ctx).Where("handle = ?", handle).Delete(&model.NetworkKey{}).Error
}
