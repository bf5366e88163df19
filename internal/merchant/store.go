package merchant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"coverage-grid/internal/kv"
	"coverage-grid/internal/logger"
)

// StorageKey：持久化配置的固定键
const StorageKey = "deliveryConfigV2"

var ErrUnknownMerchant = errors.New("unknown merchant")

// Store：有序商户列表 + 当前活动商户
// 约束：列表每次变化都整体写回 kv；活动 id 若不在列表中则回落到第一个商户
type Store struct {
	mu        sync.RWMutex
	kv        kv.Store
	defaults  []Merchant
	merchants []Merchant
	activeID  string
}

// Open：有存储 blob 时原样解析使用（不做迁移与校验），否则使用 defaults
// 约束：blob 解析失败返回错误，不静默回退
func Open(ctx context.Context, s kv.Store, defaults []Merchant) (*Store, error) {
	if len(defaults) == 0 {
		return nil, errors.New("merchant defaults are empty")
	}
	st := &Store{kv: s, defaults: cloneAll(defaults)}
	b, err := s.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		st.merchants = cloneAll(defaults)
		logger.L().Info("merchant_defaults_used", "count", len(defaults))
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", StorageKey, err)
	default:
		var ms []Merchant
		if err := json.Unmarshal(b, &ms); err != nil {
			return nil, fmt.Errorf("parse stored %s: %w", StorageKey, err)
		}
		st.merchants = ms
		logger.L().Info("merchant_config_loaded", "count", len(ms))
	}
	st.activeID = defaults[0].ID
	st.fixActive()
	return st, nil
}

func cloneAll(ms []Merchant) []Merchant {
	out := make([]Merchant, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

func (s *Store) indexOf(id string) int {
	for i := range s.merchants {
		if s.merchants[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) fixActive() {
	if s.indexOf(s.activeID) < 0 && len(s.merchants) > 0 {
		s.activeID = s.merchants[0].ID
	}
}

// List：列表快照
func (s *Store) List() []Merchant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.merchants)
}

func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active：当前活动商户；列表为空时 ok=false
func (s *Store) Active() (Merchant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.activeID); i >= 0 {
		return s.merchants[i].Clone(), true
	}
	return Merchant{}, false
}

func (s *Store) Get(id string) (Merchant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.merchants[i].Clone(), true
	}
	return Merchant{}, false
}

// SetActive：只切换活动 id，不改动任何商户数据
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMerchant, id)
	}
	s.activeID = id
	return nil
}

// Patch：合并到当前活动商户，其他商户不变
func (s *Store) Patch(ctx context.Context, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(s.activeID)
	if i < 0 {
		return fmt.Errorf("%w: no active merchant", ErrUnknownMerchant)
	}
	s.merchants[i] = p.Apply(s.merchants[i])
	return s.save(ctx)
}

// Toggle：在显式指定的商户上切换区划代码
func (s *Store) Toggle(ctx context.Context, merchantID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(merchantID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMerchant, merchantID)
	}
	m := s.merchants[i].Clone()
	m.Codes = ToggleCode(m.Codes, code)
	s.merchants[i] = m
	return s.save(ctx)
}

// Reset：删除持久化 blob，恢复默认列表，活动商户回到第一个默认商户
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchants = cloneAll(s.defaults)
	s.activeID = s.defaults[0].ID
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		logger.L().Error("merchant_reset_delete_error", "err", err)
		return fmt.Errorf("delete %s: %w", StorageKey, err)
	}
	logger.L().Info("merchant_reset", "count", len(s.merchants))
	return nil
}

func (s *Store) save(ctx context.Context) error {
	s.fixActive()
	b, err := json.Marshal(s.merchants)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, StorageKey, b); err != nil {
		logger.L().Error("merchant_save_error", "err", err)
		return fmt.Errorf("save %s: %w", StorageKey, err)
	}
	logger.L().Debug("merchant_saved", "bytes", len(b))
	return nil
}
