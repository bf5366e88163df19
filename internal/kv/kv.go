// 包 kv：持久化配置的键值后端（文件/内存/Redis/PostgreSQL）
// 背景：整个商户列表作为一个 JSON blob 写在固定键下，后端只需 Get/Set/Delete 三个操作。
package kv

import (
	"context"
	"errors"
	"sync"

	"coverage-grid/internal/metrics"
)

// ErrNotFound：键不存在
var ErrNotFound = errors.New("kv: key not found")

// Store：键值后端最小契约
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
}

func observe(backend, op string, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "miss"
	case err != nil:
		status = "error"
	}
	metrics.KVOpsTotal.WithLabelValues(backend, op, status).Inc()
}

// Memory：进程内实现，用于测试与 KV_BACKEND=memory
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemory() *Memory { return &Memory{m: make(map[string][]byte)} }

func (s *Memory) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		observe("memory", "get", ErrNotFound)
		return nil, ErrNotFound
	}
	observe("memory", "get", nil)
	return append([]byte(nil), v...), nil
}

func (s *Memory) Set(_ context.Context, key string, val []byte) error {
	s.mu.Lock()
	s.m[key] = append([]byte(nil), val...)
	s.mu.Unlock()
	observe("memory", "set", nil)
	return nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	observe("memory", "del", nil)
	return nil
}
