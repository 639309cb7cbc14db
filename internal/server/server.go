// Package server exposes the voice-command pipeline over HTTP: command
// submission, consultation processing, notification queries, health probes,
// and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ProSamhacker/hospitalmanagement/internal/consult"
	"github.com/ProSamhacker/hospitalmanagement/internal/health"
	"github.com/ProSamhacker/hospitalmanagement/internal/notify"
	"github.com/ProSamhacker/hospitalmanagement/internal/observe"
	"github.com/ProSamhacker/hospitalmanagement/internal/orchestrator"
	"github.com/ProSamhacker/hospitalmanagement/internal/store"
)

// maxBodyBytes caps request bodies; commands and transcripts are short text.
const maxBodyBytes = 1 << 20

// Server is the HTTP front of the pipeline.
type Server struct {
	orch          *orchestrator.Orchestrator
	consults      *consult.Service
	notifications store.NotificationStore
	prescriptions store.PrescriptionStore
	health        *health.Handler
	metrics       *observe.Metrics
	log           *slog.Logger
}

// New creates a Server. A nil logger falls back to [slog.Default]; nil
// metrics fall back to [observe.DefaultMetrics].
func New(orch *orchestrator.Orchestrator, consults *consult.Service, ns store.NotificationStore, ps store.PrescriptionStore, h *health.Handler, m *observe.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Server{
		orch:          orch,
		consults:      consults,
		notifications: ns,
		prescriptions: ps,
		health:        h,
		metrics:       m,
		log:           log,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	r.Get("/healthz", s.health.Healthz)
	r.Get("/readyz", s.health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/commands", s.handleCommand)
		r.Post("/consultations", s.handleConsultation)
		r.Post("/messages", s.handleMessage)
		r.Get("/appointments/{id}/prescriptions", s.handlePrescriptions)
		r.Route("/notifications/{recipient}", func(r chi.Router) {
			r.Get("/", s.handleNotifications)
			r.Get("/unread", s.handleUnreadCount)
			r.Post("/read", s.handleMarkAllRead)
		})
	})

	return r
}

type commandRequest struct {
	Text string `json:"text"`
}

type commandResponse struct {
	Message string             `json:"message"`
	Records []store.Medication `json:"records"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	res, err := s.orch.Handle(r.Context(), req.Text)
	if err != nil {
		s.log.Error("command handling failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "command handling failed")
		return
	}

	s.writeJSON(w, http.StatusOK, commandResponse{
		Message: res.Message,
		Records: res.Records,
	})
}

type consultationRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	Transcript    string `json:"transcript"`
}

func (s *Server) handleConsultation(w http.ResponseWriter, r *http.Request) {
	var req consultationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Transcript == "" || req.AppointmentID == 0 {
		s.writeError(w, http.StatusBadRequest, "appointment_id and transcript are required")
		return
	}

	res, err := s.consults.ProcessConsultation(r.Context(), req.AppointmentID, req.PatientID, req.Transcript)
	if err != nil {
		s.log.Error("consultation processing failed",
			"appointment_id", req.AppointmentID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "consultation processing failed")
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type messageRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	SenderRole    string `json:"sender_role"`
	DoctorID      string `json:"doctor_id"`
	PatientID     string `json:"patient_id"`
	Content       string `json:"content"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	s.consults.SendMessage(r.Context(), notify.MessageSent{
		AppointmentID: req.AppointmentID,
		SenderRole:    notify.Role(req.SenderRole),
		DoctorID:      req.DoctorID,
		PatientID:     req.PatientID,
		Content:       req.Content,
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePrescriptions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	list, err := s.prescriptions.ListPrescriptionsByAppointment(r.Context(), id)
	if err != nil {
		s.log.Error("prescription listing failed", "appointment_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "prescription listing failed")
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	events, err := s.notifications.ListNotifications(r.Context(), recipient)
	if err != nil {
		s.log.Error("notification listing failed", "recipient", recipient, "error", err)
		s.writeError(w, http.StatusInternalServerError, "notification listing failed")
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	n, err := s.notifications.UnreadCount(r.Context(), recipient)
	if err != nil {
		s.log.Error("unread count failed", "recipient", recipient, "error", err)
		s.writeError(w, http.StatusInternalServerError, "unread count failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	recipient := chi.URLParam(r, "recipient")
	if err := s.notifications.MarkAllRead(r.Context(), recipient); err != nil {
		s.log.Error("mark all read failed", "recipient", recipient, "error", err)
		s.writeError(w, http.StatusInternalServerError, "mark all read failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads the JSON request body into v, writing a 400 response and
// returning false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// Run serves the router on addr until ctx is cancelled, then shuts down
// gracefully. TLS is enabled when certFile and keyFile are both non-empty.
func (s *Server) Run(ctx context.Context, addr, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
