// 包 controller：把地图与面板事件映射为商户存储的修改，并在每次修改后同步重算覆盖区
// 约束：所有事件经同一把锁串行处理；控制器是商户存储唯一的修改方
package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"coverage-grid/internal/coverage"
	"coverage-grid/internal/logger"
	"coverage-grid/internal/merchant"
	"coverage-grid/internal/metrics"

	"github.com/paulmach/orb"
)

const (
	MinRadiusMiles  = 0
	MaxRadiusMiles  = 15
	RadiusStepMiles = 0.5
)

var (
	ErrStaleBinding = errors.New("stale click binding")
	ErrRadiusRange  = errors.New("radius out of range")
	ErrEmptyCode    = errors.New("empty district code")
)

// Binding：点击处理器绑定时捕获的商户 id 与绑定代次
// 活动商户每次变化都会生成新的代次，旧绑定随之失效
type Binding struct {
	MerchantID string `json:"merchantId"`
	Epoch      uint64 `json:"epoch"`
}

// State：一次一致的只读快照
type State struct {
	Merchants    []merchant.Merchant `json:"merchants"`
	ActiveID     string              `json:"activeId"`
	MoveMode     bool                `json:"moveMode"`
	Binding      Binding             `json:"binding"`
	RadiusMeters float64             `json:"radiusMeters"`
	Mask         coverage.Mask       `json:"mask"`
}

type Controller struct {
	mu       sync.Mutex
	store    *merchant.Store
	computer *coverage.Computer
	moveMode bool
	binding  Binding
	mask     coverage.Mask
}

func New(store *merchant.Store, computer *coverage.Computer) *Controller {
	c := &Controller{store: store, computer: computer}
	c.rebind()
	c.recompute()
	return c
}

// rebind：活动商户变化后重新建立绑定
func (c *Controller) rebind() {
	c.binding = Binding{MerchantID: c.store.ActiveID(), Epoch: c.binding.Epoch + 1}
	logger.L().Debug("click_rebind", "merchant", c.binding.MerchantID, "epoch", c.binding.Epoch)
}

func (c *Controller) recompute() {
	m, ok := c.store.Active()
	if !ok {
		c.mask = coverage.Mask{}
		return
	}
	c.mask = c.computer.Compute(m)
}

// event：统一的加锁、计数与重算
func (c *Controller) event(name string, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.store.ActiveID()
	err := fn()
	if c.store.ActiveID() != before {
		c.rebind()
	}
	c.recompute()
	status := "ok"
	if err != nil {
		status = "error"
		logger.L().Debug("controller_event_error", "event", name, "err", err)
	}
	metrics.ControllerEventsTotal.WithLabelValues(name, status).Inc()
	return err
}

// Binding：当前有效绑定
func (c *Controller) Binding() Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binding
}

func (c *Controller) MoveMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moveMode
}

// Mask：活动商户的当前覆盖区
func (c *Controller) Mask() coverage.Mask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mask
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		Merchants: c.store.List(),
		ActiveID:  c.store.ActiveID(),
		MoveMode:  c.moveMode,
		Binding:   c.binding,
		Mask:      c.mask,
	}
	if m, ok := c.store.Active(); ok {
		s.RadiusMeters = m.RadiusMeters()
	}
	return s
}

// ClickDistrict：区划多边形点击
// 移动模式关闭：在绑定的商户上切换该代码；开启：点击用于移动圆心，不影响选择
func (c *Controller) ClickDistrict(ctx context.Context, b Binding, code string, at orb.Point) error {
	return c.event("click_district", func() error {
		if b.Epoch != c.binding.Epoch || b.MerchantID != c.binding.MerchantID {
			return fmt.Errorf("%w: epoch %d, current %d", ErrStaleBinding, b.Epoch, c.binding.Epoch)
		}
		if c.moveMode {
			center := merchant.FromPoint(at)
			return c.store.Patch(ctx, merchant.Patch{Center: &center})
		}
		if code == "" {
			return ErrEmptyCode
		}
		return c.store.Toggle(ctx, b.MerchantID, code)
	})
}

// ClickMap：地图空白处点击，仅移动模式下生效
func (c *Controller) ClickMap(ctx context.Context, at orb.Point) error {
	return c.event("click_map", func() error {
		if !c.moveMode {
			return nil
		}
		center := merchant.FromPoint(at)
		return c.store.Patch(ctx, merchant.Patch{Center: &center})
	})
}

// SnapRadius：校验 [0, 15] 并吸附到 0.5 步长
func SnapRadius(miles float64) (float64, error) {
	if math.IsNaN(miles) || miles < MinRadiusMiles || miles > MaxRadiusMiles {
		return 0, fmt.Errorf("%w: %v", ErrRadiusRange, miles)
	}
	return math.Round(miles/RadiusStepMiles) * RadiusStepMiles, nil
}

func (c *Controller) SetRadius(ctx context.Context, miles float64) error {
	return c.event("set_radius", func() error {
		r, err := SnapRadius(miles)
		if err != nil {
			return err
		}
		return c.store.Patch(ctx, merchant.Patch{RadiusMiles: &r})
	})
}

// SelectMerchant：只切换活动商户
func (c *Controller) SelectMerchant(id string) error {
	return c.event("select_merchant", func() error {
		return c.store.SetActive(id)
	})
}

func (c *Controller) SetMoveMode(on bool) {
	_ = c.event("set_move_mode", func() error {
		c.moveMode = on
		return nil
	})
}

// RemoveCode：面板中移除某个代码，等价于对活动商户关闭该代码
func (c *Controller) RemoveCode(ctx context.Context, code string) error {
	return c.event("remove_code", func() error {
		m, ok := c.store.Active()
		if !ok || !m.HasCode(code) {
			return nil
		}
		return c.store.Toggle(ctx, m.ID, code)
	})
}

func (c *Controller) ClearActive(ctx context.Context) error {
	return c.event("clear_active", func() error {
		empty := []string{}
		return c.store.Patch(ctx, merchant.Patch{Codes: &empty})
	})
}

// Reset：恢复默认商户并关闭移动模式；活动 id 变化时由 event 重新绑定
func (c *Controller) Reset(ctx context.Context) error {
	return c.event("reset", func() error {
		c.moveMode = false
		return c.store.Reset(ctx)
	})
}
