package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AnshRaj112/plant-journal-backend/internal/handlers"
)

// Deps are the handlers and guards mounted on the router.
type Deps struct {
	Plants       *handlers.PlantHandler
	Auth         *handlers.AuthHandler
	RequireAdmin func(http.Handler) http.Handler
	// CommentLimit caps public comment posts per IP per minute; 0 disables it.
	CommentLimit int
}

func SetupRoutes(r chi.Router, d Deps) {
	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Plant journal backend is running"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Admin auth
	r.Post(handlers.LoginPath, d.Auth.AdminLogin)

	r.Route("/api/plants", func(r chi.Router) {
		// Public reads and comments
		r.Get("/", d.Plants.ListPlants)
		r.With(commentLimiter(d.CommentLimit)...).Post("/{id}/comments", d.Plants.AddComment)

		// Admin only
		r.Group(func(r chi.Router) {
			r.Use(d.RequireAdmin)
			r.Post("/", d.Plants.CreatePlant)
			r.Put("/{id}", d.Plants.UpdatePlant)
			r.Delete("/{id}", d.Plants.DeletePlant)
			r.Delete("/{id}/comments/{commentId}", d.Plants.DeleteComment)
		})
	})
}

func commentLimiter(perMinute int) []func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return nil
	}
	return []func(http.Handler) http.Handler{httprate.LimitByIP(perMinute, time.Minute)}
}
