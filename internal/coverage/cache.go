package coverage

import (
	"container/list"
	"strconv"
	"strings"
	"sync"

	"coverage-grid/internal/merchant"
)

// maskCache：进程内 LRU，键为决定覆盖区的全部输入（圆心、半径、代码顺序）
// 目录加载后只读，因此条目无需过期；容量 <= 0 时不缓存
type maskCache struct {
	mu   sync.Mutex
	cap  int
	lst  *list.List
	dict map[string]*list.Element
}

type cacheEntry struct {
	k string
	v Mask
}

func newMaskCache(capacity int) *maskCache {
	return &maskCache{cap: capacity, lst: list.New(), dict: make(map[string]*list.Element)}
}

func cacheKey(m merchant.Merchant) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(m.Center.Lat(), 'f', -1, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(m.Center.Lng(), 'f', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(m.RadiusMiles, 'f', -1, 64))
	for _, code := range m.Codes {
		b.WriteByte('|')
		b.WriteString(code)
	}
	return b.String()
}

func (c *maskCache) get(k string) (Mask, bool) {
	if c.cap <= 0 {
		return Mask{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		c.lst.MoveToFront(e)
		return e.Value.(cacheEntry).v, true
	}
	return Mask{}, false
}

func (c *maskCache) set(k string, v Mask) {
	if c.cap <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		e.Value = cacheEntry{k: k, v: v}
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(cacheEntry{k: k, v: v})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(cacheEntry).k)
		c.lst.Remove(back)
	}
}

func (c *maskCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
