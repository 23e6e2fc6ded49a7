// Package web exposes the social graph over HTTP.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dan-solli/socialgraph/pkg/logging"
	"github.com/dan-solli/socialgraph/pkg/socialgraph"
)

// Server translates HTTP requests into service calls and serializes results.
type Server struct {
	router  *mux.Router
	service *socialgraph.Service
	httpSrv *http.Server
}

// NewServer creates a new web server over the given service. A non-nil
// registry is served at /metrics.
func NewServer(service *socialgraph.Service, registry *prometheus.Registry) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		service: service,
	}
	s.setupRoutes(registry)
	return s
}

func (s *Server) setupRoutes(registry *prometheus.Registry) {
	s.router.HandleFunc("/users", s.handleCreateUser).Methods("POST")
	s.router.HandleFunc("/users/{user_str_id}/friends", s.handleFriends).Methods("GET")
	s.router.HandleFunc("/users/{user_str_id}/friends-of-friends", s.handleFriendsOfFriends).Methods("GET")
	s.router.HandleFunc("/connections", s.handleCreateConnection).Methods("POST")
	s.router.HandleFunc("/connections", s.handleRemoveConnection).Methods("DELETE")
	s.router.HandleFunc("/connections/degree", s.handleDegree).Methods("GET")

	if registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
}

// Handler returns the full handler chain, including request logging.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Start serves HTTP on the given port until Shutdown is called.
func (s *Server) Start(port int) error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	logging.Info("server listening", "addr", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service error kind to an HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	switch socialgraph.ClassifyError(err) {
	case socialgraph.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case socialgraph.KindConflict:
		writeError(w, http.StatusConflict, err.Error())
	case socialgraph.KindInvalidArgument:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type createUserRequest struct {
	UserStrID   string `json:"user_str_id"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserStrID == "" || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "user_str_id and display_name are required")
		return
	}

	user, err := s.service.CreateUser(r.Context(), req.UserStrID, req.DisplayName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"internal_db_id": user.InternalID,
		"user_str_id":    user.ExternalID,
		"status":         "created",
	})
}

type connectionRequest struct {
	User1StrID string `json:"user1_str_id"`
	User2StrID string `json:"user2_str_id"`
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User1StrID == "" || req.User2StrID == "" {
		writeError(w, http.StatusBadRequest, "user1_str_id and user2_str_id are required")
		return
	}

	if _, err := s.service.Connect(r.Context(), req.User1StrID, req.User2StrID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "connection_added"})
}

func (s *Server) handleRemoveConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User1StrID == "" || req.User2StrID == "" {
		writeError(w, http.StatusBadRequest, "user1_str_id and user2_str_id are required")
		return
	}

	if err := s.service.Disconnect(r.Context(), req.User1StrID, req.User2StrID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "connection_removed"})
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["user_str_id"]

	friends, err := s.service.Friends(r.Context(), externalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, friends)
}

func (s *Server) handleFriendsOfFriends(w http.ResponseWriter, r *http.Request) {
	externalID := mux.Vars(r)["user_str_id"]

	friends, err := s.service.FriendsOfFriends(r.Context(), externalID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, friends)
}

func (s *Server) handleDegree(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from_user_str_id")
	to := r.URL.Query().Get("to_user_str_id")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "from_user_str_id and to_user_str_id are required")
		return
	}

	degree, err := s.service.Degree(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Unreachable is a defined outcome, not an error
	if degree == socialgraph.Unreachable {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"degree":  degree,
			"message": "not_connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"degree": degree})
}
