// 包 api：集中注册 HTTP 路由；每个路由对应一个界面事件，修改类请求返回最新状态快照
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"coverage-grid/internal/controller"
	"coverage-grid/internal/coverage"
	"coverage-grid/internal/export"
	"coverage-grid/internal/logger"
	"coverage-grid/internal/merchant"

	"github.com/paulmach/orb"
)

const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "bad json: " + err.Error()})
		return false
	}
	return true
}

// statusFor：控制器错误 → HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrStaleBinding):
		return http.StatusConflict
	case errors.Is(err, controller.ErrRadiusRange), errors.Is(err, controller.ErrEmptyCode):
		return http.StatusBadRequest
	case errors.Is(err, merchant.ErrUnknownMerchant):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// BuildRoutes：独立 ServeMux，由主入口挂载到 API_BASE 前缀下
func BuildRoutes(ctl *controller.Controller, comp *coverage.Computer) *http.ServeMux {
	mux := http.NewServeMux()
	cat := comp.Catalog()

	respond := func(w http.ResponseWriter, err error) {
		if err != nil {
			st := statusFor(err)
			if st >= 500 {
				logger.L().Error("api_event_error", "err", err)
			}
			writeJSON(w, st, errorResp{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, ctl.State())
	}

	mux.HandleFunc("GET /state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctl.State())
	})

	mux.HandleFunc("GET /districts", func(w http.ResponseWriter, r *http.Request) {
		st := ctl.State()
		var selected []string
		for _, m := range st.Merchants {
			if m.ID == st.ActiveID {
				selected = m.Codes
			}
		}
		writeJSON(w, http.StatusOK, cat.FeatureCollection(selected))
	})

	// 未携带 code 时按点击坐标在目录中查找，多个命中取最上层（最后绘制）的区划
	mux.HandleFunc("POST /districts/click", func(w http.ResponseWriter, r *http.Request) {
		var req clickDistrictReq
		if !decode(w, r, &req) {
			return
		}
		at := orb.Point{req.Lng, req.Lat}
		code := req.Code
		if code == "" && !ctl.MoveMode() {
			if hits := cat.Lookup(at); len(hits) > 0 {
				code = hits[len(hits)-1]
			}
		}
		respond(w, ctl.ClickDistrict(r.Context(), req.Binding, code, at))
	})

	mux.HandleFunc("POST /map/click", func(w http.ResponseWriter, r *http.Request) {
		var req clickMapReq
		if !decode(w, r, &req) {
			return
		}
		respond(w, ctl.ClickMap(r.Context(), orb.Point{req.Lng, req.Lat}))
	})

	mux.HandleFunc("POST /radius", func(w http.ResponseWriter, r *http.Request) {
		var req radiusReq
		if !decode(w, r, &req) {
			return
		}
		if req.RadiusMiles == nil {
			writeJSON(w, http.StatusBadRequest, errorResp{Error: "radiusMiles required"})
			return
		}
		respond(w, ctl.SetRadius(r.Context(), *req.RadiusMiles))
	})

	mux.HandleFunc("POST /active", func(w http.ResponseWriter, r *http.Request) {
		var req activeReq
		if !decode(w, r, &req) {
			return
		}
		respond(w, ctl.SelectMerchant(req.ID))
	})

	mux.HandleFunc("POST /move-mode", func(w http.ResponseWriter, r *http.Request) {
		var req moveModeReq
		if !decode(w, r, &req) {
			return
		}
		ctl.SetMoveMode(req.On)
		respond(w, nil)
	})

	mux.HandleFunc("DELETE /codes/{code}", func(w http.ResponseWriter, r *http.Request) {
		respond(w, ctl.RemoveCode(r.Context(), r.PathValue("code")))
	})

	mux.HandleFunc("POST /clear", func(w http.ResponseWriter, r *http.Request) {
		respond(w, ctl.ClearActive(r.Context()))
	})

	mux.HandleFunc("POST /reset", func(w http.ResponseWriter, r *http.Request) {
		respond(w, ctl.Reset(r.Context()))
	})

	mux.HandleFunc("GET /export", func(w http.ResponseWriter, r *http.Request) {
		doc := export.Build(comp, ctl.State().Merchants)
		w.Header().Set("content-type", "application/json; charset=utf-8")
		w.Header().Set("content-disposition", `attachment; filename="`+export.Filename+`"`)
		w.Header().Set("cache-control", "no-store")
		if err := doc.Write(w); err != nil {
			logger.L().Error("export_write_error", "err", err)
		}
	})

	return mux
}
