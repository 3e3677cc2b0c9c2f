package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"holosim-indexer/internal/metrics"
	"holosim-indexer/internal/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceName    = "holosim-ixproc"
	serviceVersion = "0.1.0"
)

// CounterSource 提供每个程序的指令计数快照
type CounterSource interface {
	Counters() map[string]uint64
}

// StatusServer 对外提供 /health、/stats、/metrics
type StatusServer struct {
	srv      *http.Server
	counters CounterSource
	now      func() time.Time
}

func New(addr string, counters CounterSource) *StatusServer {
	s := &StatusServer{counters: counters, now: time.Now}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.Handler())
	return instrument(mux)
}

// Start 阻塞直到 Stop
func (s *StatusServer) Start() {
	logger.Infof("[StatusServer] 监听 %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("[StatusServer] 退出: %v", err)
	}
}

func (s *StatusServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Warnf("[StatusServer] shutdown: %v", err)
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, healthResponse{Status: "healthy", Service: serviceName, Version: serviceVersion})
}

type programStat struct {
	ProgramID        string `json:"program_id"`
	InstructionCount uint64 `json:"instruction_count"`
}

type statsResponse struct {
	Stats     []programStat `json:"stats"`
	Timestamp string        `json:"timestamp"`
}

func (s *StatusServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := statsResponse{Stats: []programStat{}, Timestamp: s.now().UTC().Format(time.RFC3339)}
	if s.counters != nil {
		for program, n := range s.counters.Counters() {
			resp.Stats = append(resp.Stats, programStat{ProgramID: program, InstructionCount: n})
		}
	}
	sort.Slice(resp.Stats, func(i, j int) bool { return resp.Stats[i].ProgramID < resp.Stats[j].ProgramID })
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("[StatusServer] 写响应失败: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HttpRequests.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
	})
}
