package middleware

import (
	"net"
	"net/http"
	"os"
	"strings"

	"coverage-grid/internal/logger"
)

// AllowList：来源地址白名单
// 编辑器没有登录，修改类接口直接改写商户配置；部署在共享网络时用网段限制访问者
type AllowList struct {
	nets         []*net.IPNet
	realIPHeader string
}

// ParseAllowList：逗号分隔的 IP 或 CIDR，单 IP 视为 /32 或 /128；无效项忽略
func ParseAllowList(spec, realIPHeader string) *AllowList {
	a := &AllowList{realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, p := range strings.Split(spec, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			if ip := net.ParseIP(p); ip != nil {
				bits := 128
				if ip.To4() != nil {
					bits = 32
				}
				a.nets = append(a.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			}
			continue
		}
		if _, n, err := net.ParseCIDR(p); err == nil {
			a.nets = append(a.nets, n)
		}
	}
	return a
}

func (a *AllowList) Allowed(ip net.IP) bool {
	for _, n := range a.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP：优先指定头的首个有效 IP，其次 RemoteAddr
func (a *AllowList) clientIP(r *http.Request) net.IP {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first, _, _ := strings.Cut(raw, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

func (a *AllowList) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.clientIP(r)
		if ip == nil || !a.Allowed(ip) {
			logger.L().Debug("access_denied", "remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Guard：EDITOR_ALLOW 非空时启用白名单（EDITOR_REAL_IP_HEADER 指定代理头）
func Guard(next http.Handler) http.Handler {
	spec := os.Getenv("EDITOR_ALLOW")
	if spec == "" {
		return next
	}
	a := ParseAllowList(spec, os.Getenv("EDITOR_REAL_IP_HEADER"))
	logger.L().Info("editor_allowlist_enabled", "entries", len(a.nets))
	return a.Handler(next)
}
