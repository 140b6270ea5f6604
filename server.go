package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Server handles incoming HTTP requests for interacting with the
// configured modem through its gateway
type Server struct {
	Logger  *slog.Logger
	Gateway *Gateway
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /info", s.handleInfo)
	mux.HandleFunc("POST /sms", s.handleSMS)
	mux.HandleFunc("POST /functionality", s.handleFunctionality)
	mux.HandleFunc("POST /sleep", s.handleSleep)
	mux.HandleFunc("POST /power-off", s.handlePowerOff)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	s.sendJSON(w, resp, statusCode)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, s.Gateway.Status(r.Context()), http.StatusOK)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, s.Gateway.Info(r.Context()), http.StatusOK)
}

// handleSMS processes incoming HTTP POST requests to send SMS messages
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	var req SMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.To == "" || req.Message == "" {
		s.sendError(w, errMissingFields.Error(), http.StatusBadRequest)
		return
	}

	id, err := s.Gateway.SendSMS(r.Context(), req)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type SMSResponse struct {
		ID string `json:"id"`
	}
	s.sendJSON(w, SMSResponse{ID: id}, http.StatusOK)
}

func (s *Server) handleFunctionality(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode *int `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Mode == nil {
		s.sendError(w, "'mode' field is required", http.StatusBadRequest)
		return
	}

	if err := s.Gateway.SetFunctionality(r.Context(), *req.Mode); err != nil {
		s.Logger.Error("Failed to set functionality", "mode", *req.Mode, "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSleep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.Gateway.SetSleep(r.Context(), req.Enabled); err != nil {
		s.Logger.Error("Failed to set sleep mode", "enabled", req.Enabled, "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	if err := s.Gateway.PowerOff(r.Context()); err != nil {
		s.Logger.Error("Failed to power off modem", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.Logger.Info("Modem powered off")
	w.WriteHeader(http.StatusNoContent)
}
