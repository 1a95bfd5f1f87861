package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/cutover/pkg/cluster"
	"github.com/cuemby/cutover/pkg/metrics"
	"github.com/cuemby/cutover/pkg/registry"
	"github.com/cuemby/cutover/pkg/types"
)

// Server provides the HTTP status surface of a deployment run: a
// liveness endpoint, the current routing state, and Prometheus metrics.
type Server struct {
	gateway   cluster.Gateway
	registry  *registry.Registry
	namespace string
	mux       *http.ServeMux
}

// NewServer creates a status server for the stable service that the
// registry watches.
func NewServer(gateway cluster.Gateway, reg *registry.Registry, namespace string) *Server {
	mux := http.NewServeMux()
	s := &Server{
		gateway:   gateway,
		registry:  reg,
		namespace: namespace,
		mux:       mux,
	}

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.Handle("/metrics", metrics.Handler())

	return s
}

// Start serves until the listener fails.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// Handler returns the HTTP handler for embedding in other servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// EnvironmentStatus summarizes one environment's pods.
type EnvironmentStatus struct {
	Pods      int  `json:"pods"`
	ReadyPods int  `json:"readyPods"`
	Active    bool `json:"active"`
}

// StatusResponse is the routing state payload.
type StatusResponse struct {
	Service           string                       `json:"service"`
	ActiveEnvironment string                       `json:"activeEnvironment,omitempty"`
	Environments      map[string]EnvironmentStatus `json:"environments"`
	Timestamp         time.Time                    `json:"timestamp"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	routing, err := s.registry.Current(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	response := StatusResponse{
		Service:           routing.ServiceName,
		ActiveEnvironment: string(routing.ActiveEnvironment),
		Environments:      make(map[string]EnvironmentStatus),
		Timestamp:         time.Now(),
	}

	for _, env := range []types.Environment{types.EnvironmentBlue, types.EnvironmentGreen} {
		pods, err := s.gateway.GetPods(r.Context(), s.namespace, env.Selector())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		status := EnvironmentStatus{
			Pods:   len(pods),
			Active: routing.ActiveEnvironment == env,
		}
		for _, pod := range pods {
			if pod.Ready {
				status.ReadyPods++
			}
		}
		response.Environments[string(env)] = status
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
