package api

import "coverage-grid/internal/controller"

// 文档注释：请求体结构（对内）
// 约束：坐标统一为 WGS84 纬度/经度，字段名与前端地图事件一致
type clickDistrictReq struct {
	Binding controller.Binding `json:"binding"`
	Code    string             `json:"code"`
	Lat     float64            `json:"lat"`
	Lng     float64            `json:"lng"`
}

type clickMapReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type radiusReq struct {
	RadiusMiles *float64 `json:"radiusMiles"`
}

type activeReq struct {
	ID string `json:"id"`
}

type moveModeReq struct {
	On bool `json:"on"`
}

type errorResp struct {
	Error string `json:"error"`
}
