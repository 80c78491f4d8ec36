// Package api assembles the HTTP surface: the chat webhook, the profile
// administration API, dispatch job status, health and metrics.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-chat/internal/api/handlers"
	"github.com/dvloznov/finance-chat/internal/api/middleware"
)

// Deps holds everything the router serves.
type Deps struct {
	Chat  *handlers.ChatHandler
	Users *handlers.UsersHandler
	Jobs  *handlers.JobsHandler

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// AuthToken guards /api/*. Empty disables auth.
	AuthToken string
	Log       zerolog.Logger
}

// NewRouter builds the chi router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recovery(d.Log),
		middleware.Logger(d.Log),
		middleware.RequestID,
		middleware.CORS,
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(d.AuthToken))

		r.Post("/chat", d.Chat.Chat)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", d.Users.GetUser)
			r.Put("/", d.Users.UpdateUser)
			r.Delete("/", d.Users.DeleteUser)
			r.Patch("/defaults", d.Users.UpdateDefaults)
			r.Post("/instructions", d.Users.AddInstruction)
			r.Delete("/instructions/{index}", d.Users.RemoveInstruction)
			r.Post("/accounts", d.Users.AddAccount)
			r.Post("/funds", d.Users.AddFund)
		})

		r.Get("/jobs", d.Jobs.ListJobs)
		r.Get("/jobs/{id}", d.Jobs.GetJob)
	})

	return r
}
