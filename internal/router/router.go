package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/writeitgreat/proposal-eval/internal/handlers"
	"github.com/writeitgreat/proposal-eval/internal/middleware"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

func NewRouter(subHandler *handlers.SubmissionHandler, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	// Routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Submission endpoints
	api.HandleFunc("/submissions", subHandler.CreateSubmission).Methods(http.MethodPost)
	api.HandleFunc("/submissions/{id}/status", subHandler.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/submissions/{id}/report", subHandler.GetReport).Methods(http.MethodGet)
	api.HandleFunc("/submissions/{id}/retry", subHandler.RetrySubmission).Methods(http.MethodPost)

	return r
}
