package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/handler"
	"github.com/dukerupert/familypoints/internal/middleware"
	"github.com/dukerupert/familypoints/internal/push"
	"github.com/dukerupert/familypoints/internal/store"
	"github.com/dukerupert/familypoints/internal/upload"
	ws "github.com/dukerupert/familypoints/internal/websocket"
)

const apiPrefix = "/api/v1"

// Options carries what the server needs beyond the database.
type Options struct {
	Issuer         *auth.Issuer
	Storage        upload.Storage
	UploadMaxBytes int64
	// StaticDir is served under /static/uploads/ when evidence is stored
	// locally. Empty disables the file server.
	StaticDir   string
	PushService *push.Service
	CORSOrigins []string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	authH         *handler.AuthHandler
	childH        *handler.ChildHandler
	taskH         *handler.TaskHandler
	submissionH   *handler.SubmissionHandler
	rewardH       *handler.RewardHandler
	settingsH     *handler.SettingsHandler
	announcementH *handler.AnnouncementHandler
	uploadH       *handler.UploadHandler
	pushH         *handler.PushHandler
	userStore     *store.UserStore
	issuer        *auth.Issuer
	rateLimiter   *middleware.RateLimiter
	opts          Options
	logger        *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	submissionStore := store.NewSubmissionStore(db)
	rewardStore := store.NewRewardStore(db)
	ledgerStore := store.NewLedgerStore(db)
	badgeStore := store.NewBadgeStore(db)
	settingsStore := store.NewSettingsStore(db)
	announcementStore := store.NewAnnouncementStore(db)
	pushStore := store.NewPushStore(db)

	// Push notifications are optional; without VAPID keys nothing is sent.
	var notifier handler.Notifier
	if opts.PushService != nil {
		notifier = push.NewNotifier(opts.PushService, pushStore, logger.With("component", "push"))
	}

	return &Server{
		db:            db,
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, settingsStore, opts.Issuer, logger.With("component", "auth")),
		childH:        handler.NewChildHandler(userStore, ledgerStore, settingsStore, badgeStore, submissionStore, hub, logger.With("component", "child")),
		taskH:         handler.NewTaskHandler(taskStore, hub, logger.With("component", "task")),
		submissionH:   handler.NewSubmissionHandler(submissionStore, taskStore, badgeStore, hub, notifier, logger.With("component", "submission")),
		rewardH:       handler.NewRewardHandler(rewardStore, hub, notifier, logger.With("component", "reward")),
		settingsH:     handler.NewSettingsHandler(settingsStore, hub, logger.With("component", "settings")),
		announcementH: handler.NewAnnouncementHandler(announcementStore, hub, logger.With("component", "announcement")),
		uploadH:       handler.NewUploadHandler(opts.Storage, opts.UploadMaxBytes, logger.With("component", "upload")),
		pushH:         handler.NewPushHandler(pushStore, opts.PushService, logger.With("component", "push_handler")),
		userStore:     userStore,
		issuer:        opts.Issuer,
		rateLimiter:   middleware.NewRateLimiter(),
		opts:          opts,
		logger:        logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST "+apiPrefix+"/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST "+apiPrefix+"/auth/register-parent", s.rateLimitedHandler(s.authH.RegisterParent))
	outerMux.HandleFunc("GET /healthz", s.healthHandler)
	if s.opts.StaticDir != "" {
		outerMux.Handle("GET /static/uploads/", http.StripPrefix("/static/uploads/", http.FileServer(http.Dir(s.opts.StaticDir))))
	}

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.issuer, s.userStore)
	outerMux.Handle(apiPrefix+"/", authMiddleware(protectedMux))

	var h http.Handler = outerMux
	h = middleware.CORS(s.opts.CORSOrigins)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":            status,
		"websocket_clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func parent(h http.HandlerFunc) http.Handler { return middleware.RequireParent(h) }

func child(h http.HandlerFunc) http.Handler { return middleware.RequireChild(h) }

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	p := apiPrefix

	mux.HandleFunc("GET "+p+"/users/me", s.authH.Me)

	// Children
	mux.Handle("POST "+p+"/children", parent(s.childH.Create))
	mux.Handle("GET "+p+"/children", parent(s.childH.List))
	mux.HandleFunc("GET "+p+"/children/{id}", s.childH.Get)
	mux.Handle("DELETE "+p+"/children/{id}", parent(s.childH.Delete))
	mux.HandleFunc("GET "+p+"/children/{id}/summary", s.childH.Summary)
	mux.HandleFunc("GET "+p+"/children/{id}/ledger", s.childH.Ledger)

	// Tasks
	mux.Handle("POST "+p+"/tasks", parent(s.taskH.Create))
	mux.HandleFunc("GET "+p+"/tasks", s.taskH.List)
	mux.HandleFunc("GET "+p+"/tasks/{id}", s.taskH.Get)
	mux.Handle("PUT "+p+"/tasks/{id}", parent(s.taskH.Update))
	mux.Handle("DELETE "+p+"/tasks/{id}", parent(s.taskH.Delete))

	// Submissions
	mux.Handle("POST "+p+"/submissions", child(s.submissionH.Create))
	mux.Handle("GET "+p+"/submissions/my", child(s.submissionH.ListMine))
	mux.Handle("GET "+p+"/submissions/pending", parent(s.submissionH.ListPending))
	mux.Handle("POST "+p+"/submissions/{id}/approve", parent(s.submissionH.Approve))
	mux.Handle("POST "+p+"/submissions/{id}/reject", parent(s.submissionH.Reject))

	// Rewards and redemptions
	mux.Handle("POST "+p+"/rewards", parent(s.rewardH.Create))
	mux.HandleFunc("GET "+p+"/rewards", s.rewardH.List)
	mux.Handle("PUT "+p+"/rewards/{id}", parent(s.rewardH.Update))
	mux.Handle("DELETE "+p+"/rewards/{id}", parent(s.rewardH.Delete))
	mux.Handle("POST "+p+"/rewards/{id}/redeem", child(s.rewardH.Redeem))
	mux.Handle("GET "+p+"/rewards/redemptions/pending", parent(s.rewardH.ListPendingRedemptions))
	mux.Handle("GET "+p+"/rewards/redemptions/my", child(s.rewardH.ListMyRedemptions))
	mux.Handle("POST "+p+"/rewards/redemptions/{id}/approve", parent(s.rewardH.ApproveRedemption))
	mux.Handle("POST "+p+"/rewards/redemptions/{id}/reject", parent(s.rewardH.RejectRedemption))

	// Settings
	mux.HandleFunc("GET "+p+"/settings", s.settingsH.Get)
	mux.Handle("PUT "+p+"/settings", parent(s.settingsH.Update))

	// Announcements
	mux.HandleFunc("GET "+p+"/announcements", s.announcementH.List)
	mux.Handle("POST "+p+"/announcements", parent(s.announcementH.Create))
	mux.HandleFunc("DELETE "+p+"/announcements/{id}", s.announcementH.Delete)
	mux.Handle("POST "+p+"/announcements/{id}/read", child(s.announcementH.Read))

	// Uploads
	mux.HandleFunc("POST "+p+"/uploads", s.uploadH.Upload)

	// Push notifications
	mux.HandleFunc("GET "+p+"/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.Handle("POST "+p+"/push/subscribe", parent(s.pushH.Subscribe))
	mux.Handle("GET "+p+"/push/subscriptions", parent(s.pushH.ListSubscriptions))
	mux.Handle("DELETE "+p+"/push/subscriptions/{id}", parent(s.pushH.Unsubscribe))

	// WebSocket
	mux.HandleFunc("GET "+p+"/ws", ws.HandleWebSocket(s.hub, originHosts(s.opts.CORSOrigins), s.logger.With("component", "websocket")))
}

// originHosts turns configured CORS origins into the host patterns the
// WebSocket handshake checks against.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
