// Package api serves the daemon's HTTP surface: link state snapshots, the
// fused sample stream, tuning inspection, and the reset control.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/config"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/fuse"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/link"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/stream"
)

type Server struct {
	sup    *link.Supervisor
	fused  *stream.Broadcast[fuse.SyncedPoint]
	tuning *config.TuningConfig
}

func NewServer(sup *link.Supervisor, fused *stream.Broadcast[fuse.SyncedPoint], tuning *config.TuningConfig) *Server {
	return &Server{
		sup:    sup,
		fused:  fused,
		tuning: tuning,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/states", s.listStates)
	mux.HandleFunc("/stream", s.streamFused)
	mux.HandleFunc("/tuning", s.showTuning)
	mux.HandleFunc("/reset", s.resetLinks)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("HeartSync ring daemon"))
}

// stateView flattens a ConnectionState variant into one JSON shape with a
// status discriminator.
type stateView struct {
	Status  string `json:"status"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Attempt int    `json:"attempt,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func viewOf(st link.ConnectionState) stateView {
	switch v := st.(type) {
	case link.Connected:
		return stateView{Status: "connected", Name: v.Name, Address: v.Address}
	case link.Reconnecting:
		return stateView{Status: "reconnecting", Name: v.Name, Address: v.Address, Attempt: v.Attempt, Reason: v.Reason}
	case link.Disconnected:
		return stateView{Status: "disconnected", Reason: v.Reason}
	default:
		return stateView{Status: "unknown"}
	}
}

func (s *Server) listStates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.sup.States().Snapshot()
	out := make(map[string]stateView, len(snap))
	for hand, st := range snap {
		out[string(hand)] = viewOf(st)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, "Failed to encode states", http.StatusInternalServerError)
	}
}

// streamFused issues Server-Sent Events carrying fused sample points.
func (s *Server) streamFused(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.fused.Subscribe()
	defer s.fused.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case p, ok := <-c:
			if !ok {
				return
			}
			payload, err := json.Marshal(p)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) showTuning(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.tuning); err != nil {
		http.Error(w, "Failed to encode tuning", http.StatusInternalServerError)
	}
}

// resetLinks drops both connections; the supervisor's retry loops bring
// them back up from scratch.
func (s *Server) resetLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.sup.ResetAll()
	io.WriteString(w, "Reset issued; links will reconnect")
}
