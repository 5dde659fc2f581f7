// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/calibration"
	"github.com/relabs-tech/magcal/internal/metrics"
)

// runState is what /api/calibration reports.
type runState struct {
	orch *calibration.Orchestrator

	mu     sync.RWMutex
	result *calibration.Result
	err    error
	done   bool
}

type statusResponse struct {
	Phase  string              `json:"phase"`
	Done   bool                `json:"done"`
	Result *calibration.Result `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func (s *runState) finish(res *calibration.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result, s.err, s.done = res, err, true
}

func (s *runState) status() statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := statusResponse{Phase: s.orch.Phase().String(), Done: s.done, Result: s.result}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

func newMux(ws http.Handler, state *runState) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/calibration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state.status()); err != nil {
			log.Printf("json encode error: %v", err)
		}
	})
	return mux
}

func startWebServer(port int, ws http.Handler, state *runState) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: newMux(ws, state),
	}
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("web server: %v", err)
		}
	}()
	return srv
}

// holdWebServer keeps srv answering until stop fires when linger is set,
// then closes it.
func holdWebServer(srv *http.Server, linger bool, stop <-chan os.Signal) {
	if linger {
		log.Printf("web server: serving result on %s until interrupted", srv.Addr)
		<-stop
	}
	if err := srv.Close(); err != nil {
		log.Warnf("web server: close: %v", err)
	}
}
