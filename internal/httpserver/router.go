package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"socialchat/internal/config"
	"socialchat/internal/domain"
	"socialchat/internal/notify"
	"socialchat/internal/security"
	"socialchat/internal/service"
	"socialchat/internal/store/sqlite"
	"socialchat/internal/ws"
)

// NewRouter constructs the main HTTP router and wires repositories,
// services, the socket endpoint, and middleware.
func NewRouter(cfg *config.Config, db *sql.DB, registry *ws.Registry, tokenSvc *security.TokenService, encryptor *security.Encryptor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Repositories
	userRepo := sqlite.NewUserRepo(db)
	friendRepo := sqlite.NewFriendRepo(db)
	blockRepo := sqlite.NewBlockRepo(db)
	groupRepo := sqlite.NewGroupRepo(db)
	msgRepo := sqlite.NewMessageRepo(db)

	// Services
	presence := ws.NewPresence(registry)
	dispatcher := notify.NewDispatcher(userRepo, cfg.PushEndpoint)
	gate := service.NewAuthorizationGate(friendRepo, blockRepo, groupRepo)
	msgSvc := service.NewMessageService(gate, msgRepo, userRepo, groupRepo, registry, presence, dispatcher, encryptor, cfg.MaxContentLength)
	historySvc := service.NewHistoryService(friendRepo, groupRepo, msgRepo, encryptor, cfg.HistoryPageLimit, cfg.MaxHistoryPageLimit)
	friendSvc := service.NewFriendService(friendRepo, userRepo, registry)
	groupSvc := service.NewGroupService(groupRepo, userRepo, registry)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName,
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Request timeouts only apply to the REST surface. The /ws upgrade
		// must stay outside any Timeout middleware or the socket's request
		// context would expire mid-session.
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(AuthMiddleware(tokenSvc, userRepo))

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", handleSendMessage(msgSvc))
			r.Post("/read", handleMarkBatchRead(msgSvc))
			r.Get("/{otherUserID}", handleDirectHistory(historySvc))
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", handleListFriends(friendSvc))
			r.Post("/requests", handleSendFriendRequest(friendSvc))
			r.Get("/requests", handleListFriendRequests(friendSvc))
			r.Post("/requests/{requestID}/respond", handleRespondFriendRequest(friendSvc))
			r.Get("/status/{otherUserID}", handlePairStatus(friendSvc))
		})

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", handleCreateGroup(groupSvc))
			r.Get("/", handleMyGroups(groupSvc))
			r.Get("/invites", handlePendingInvites(groupSvc))
			r.Post("/invites/respond", handleRespondInvite(groupSvc))
			r.Get("/{groupID}/messages", handleGroupHistory(historySvc))
		})

		r.Put("/users/me/push-token", handleSetPushToken(userRepo))
	})

	r.Get("/ws", ws.MakeHandler(registry, tokenSvc, userRepo, msgSvc, ws.HandlerOptions{
		AllowedOrigins:     cfg.CORSOrigins,
		EventRatePerSecond: cfg.EventRatePerSecond,
		EventBurst:         cfg.EventBurst,
	}))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps sentinel errors onto the HTTP status taxonomy.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrMessageDeleted):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
