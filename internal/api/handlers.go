// Package api 抓取引擎的HTTP接口
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/RecoveryAshes/AdSpider/internal/core"
	"github.com/RecoveryAshes/AdSpider/internal/intelligence"
	"github.com/RecoveryAshes/AdSpider/internal/models"
	"github.com/RecoveryAshes/AdSpider/internal/utils"
	"github.com/gorilla/mux"
)

// Handler HTTP接口处理器
type Handler struct {
	engine    *core.Engine
	scheduled *core.ScheduledScraper
}

// NewHandler 创建处理器
func NewHandler(engine *core.Engine, scheduled *core.ScheduledScraper) *Handler {
	return &Handler{engine: engine, scheduled: scheduled}
}

// Router 注册全部路由
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/spiders", h.handleSpiders).Methods(http.MethodGet)
	api.HandleFunc("/scrape", h.handleScrape).Methods(http.MethodGet)
	api.HandleFunc("/results", h.handleResults).Methods(http.MethodGet)
	api.HandleFunc("/results", h.handleClearResults).Methods(http.MethodDelete)
	api.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/insights", h.handleInsights).Methods(http.MethodGet)
	api.HandleFunc("/schedules", h.handleListSchedules).Methods(http.MethodGet)
	api.HandleFunc("/schedules", h.handleCreateSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}", h.handleStopSchedule).Methods(http.MethodDelete)

	r.Use(loggingMiddleware)
	return r
}

// errorResponse 错误响应体
type errorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"upstream_status,omitempty"`
}

// scrapeResponse 抓取响应体
type scrapeResponse struct {
	Record     *models.SpiderRecord     `json:"record"`
	Normalized *models.NormalizedRecord `json:"normalized"`
	Duplicate  bool                     `json:"duplicate"`
	Insight    *intelligence.Insight    `json:"insight,omitempty"`
}

// scheduleRequest 创建定时任务请求体
type scheduleRequest struct {
	Spider          string `json:"spider"`
	URL             string `json:"url"`
	IntervalSeconds int    `json:"interval_seconds"`
}

func (h *Handler) handleSpiders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"spiders": h.engine.Registry().Names()})
}

func (h *Handler) handleScrape(w http.ResponseWriter, r *http.Request) {
	spiderName := r.URL.Query().Get("spider")
	targetURL := r.URL.Query().Get("url")

	if _, err := h.engine.Registry().GetOrFail(spiderName); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err := models.ValidateURL(targetURL); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := h.engine.Run(r.Context(), spiderName, targetURL)
	if err != nil {
		writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, scrapeResponse{
		Record:     result.Record,
		Normalized: result.Normalized,
		Duplicate:  result.Duplicate,
		Insight:    result.Insight,
	})
}

// writeRunError 把抓取错误映射为HTTP状态码
func writeRunError(w http.ResponseWriter, err error) {
	var statusErr *models.HTTPStatusError
	switch {
	case errors.Is(err, models.ErrSpiderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &statusErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), StatusCode: statusErr.StatusCode})
	default:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	records := h.engine.Store().All()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(records), "records": records})
}

func (h *Handler) handleClearResults(w http.ResponseWriter, r *http.Request) {
	h.engine.Store().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights := h.engine.Insights()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(insights),
		"winning_ratio": intelligence.WinningRatio(insights),
		"insights":      insights,
	})
}

func (h *Handler) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"schedules": h.scheduled.List()})
}

func (h *Handler) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "请求体不是合法JSON: " + err.Error()})
		return
	}

	// 定时任务的生命周期独立于本次请求
	task, err := h.scheduled.Start(context.WithoutCancel(r.Context()), req.Spider, req.URL, time.Duration(req.IntervalSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, models.ErrSpiderNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": task.ID, "task": task})
}

func (h *Handler) handleStopSchedule(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.scheduled.Stop(id); err != nil {
		if errors.Is(err, core.ErrScheduleNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON 写入JSON响应
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		utils.Warnf("写入响应失败: %v", err)
	}
}

// loggingMiddleware 记录请求耗时
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		utils.Debugf("%s %s (%s)", r.Method, r.URL.RequestURI(), time.Since(start))
	})
}
