package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/example/automarket/internal/api/middleware"
	"github.com/example/automarket/internal/auth"
	"github.com/example/automarket/internal/model"
)

// NewRouter wires every endpoint. Public routes carry optional auth so
// staff listings can include unpublished entries; everything else requires
// a valid access token.
func NewRouter(
	handlers *Handlers,
	authHandlers *AuthHandlers,
	consultationHandlers *ConsultationHandlers,
	chatHandlers *ChatHandlers,
	jwtService *auth.JWTService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandlers.Register)
		r.Post("/login", authHandlers.Login)
		r.Post("/refresh", authHandlers.Refresh)
		r.Post("/verify-email", authHandlers.VerifyEmail)
		r.Post("/password-reset/request", authHandlers.RequestPasswordReset)
		r.Post("/password-reset/confirm", authHandlers.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Post("/logout", authHandlers.Logout)
			r.Get("/me", authHandlers.Me)
		})
	})

	// Catalog: public reads, admin writes
	r.Route("/accessories", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthMiddleware(jwtService))
			r.Get("/", handlers.GetAccessories)
			r.Get("/{id}", handlers.GetAccessory)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Post("/", handlers.CreateAccessory)
			r.Put("/{id}", handlers.UpdateAccessory)
			r.Delete("/{id}", handlers.DeleteAccessory)
		})
	})

	r.Route("/cars", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuthMiddleware(jwtService))
			r.Get("/", handlers.GetCars)
			r.Get("/{id}", handlers.GetCar)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Post("/", handlers.CreateCar)
			r.Put("/{id}", handlers.UpdateCar)
			r.Delete("/{id}", handlers.DeleteCar)
		})
	})

	// Everything below requires authentication
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService))

		r.Get("/cart", handlers.GetCart)
		r.Post("/cart/items", handlers.AddToCart)
		r.Delete("/cart/items/{accessoryID}", handlers.RemoveFromCart)

		r.Post("/checkout", handlers.Checkout)
		r.Get("/purchases", handlers.GetPurchases)
		r.Get("/purchases/{id}", handlers.GetPurchase)

		r.Route("/consultations", func(r chi.Router) {
			r.Post("/", consultationHandlers.CreateConsultation)
			r.Get("/", consultationHandlers.GetConsultations)
			r.Get("/{id}", consultationHandlers.GetConsultation)
			r.With(middleware.RequireRole(model.RoleAdmin)).
				Post("/{id}/assign", consultationHandlers.AssignConsultation)
			r.With(middleware.RequireRole(model.RoleAdvisor)).
				Post("/{id}/respond", consultationHandlers.RespondConsultation)
		})

		r.Get("/messages/consultation/{id}", chatHandlers.GetMessageHistory)
		r.Get("/ws", chatHandlers.ServeWS)

		r.Get("/notifications", handlers.GetNotifications)
		r.Post("/notifications/{id}/read", handlers.MarkNotificationRead)

		r.With(middleware.RequireRole(model.RoleAdmin)).
			Put("/users/{id}/role", authHandlers.SetUserRole)
	})

	return r
}
