package api

import (
	"net/http"
	"strconv"

	"coverage-grid/internal/utils"
)

const (
	defaultTileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	defaultTileAttribution = "&copy; OpenStreetMap contributors"
)

// ConfigJS：向前端暴露 API 基础路径与瓦片源，避免前端硬编码
// 约束：瓦片服务为第三方，署名必须随地图展示
func ConfigJS(apiBase string) http.HandlerFunc {
	body := "window.__API_BASE__=" + strconv.Quote(apiBase) + "\n" +
		"window.__TILE_URL__=" + strconv.Quote(utils.EnvOr("TILE_URL", defaultTileURL)) + "\n" +
		"window.__TILE_ATTRIBUTION__=" + strconv.Quote(utils.EnvOr("TILE_ATTRIBUTION", defaultTileAttribution)) + "\n"
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte(body))
	}
}
