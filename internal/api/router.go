package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/qrbase/server/internal/api/handlers"
	"github.com/qrbase/server/internal/api/middleware"
	"github.com/qrbase/server/internal/auth"
	"github.com/qrbase/server/internal/config"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/feedback"
	"github.com/qrbase/server/internal/domain/registrations"
	"github.com/qrbase/server/internal/domain/reports"
	"github.com/qrbase/server/internal/domain/speakers"
	"github.com/qrbase/server/internal/domain/users"
	"github.com/qrbase/server/internal/metrics"
	"github.com/qrbase/server/internal/uploads"
)

// Deps carries everything the router wires together. The serve command
// builds it once; tests build it with fakes.
type Deps struct {
	Config config.Config
	Logger zerolog.Logger
	Pool   *pgxpool.Pool

	JWT *auth.JWTManager

	Users         *users.Service
	Events        *events.Service
	Registrations *registrations.Service
	Speakers      *speakers.Service
	Feedback      *feedback.Service
	Reports       *reports.Service
	Uploads       *uploads.Store

	Version   string
	GitCommit string
}

// NewRouter assembles the full HTTP surface: middleware chain, API
// routes, static uploads and the ops endpoints.
func NewRouter(d Deps) http.Handler {
	env := d.Config.Environment

	authHandler := handlers.NewAuthHandler(d.Users, d.JWT, d.Logger, env)
	usersHandler := handlers.NewUsersHandler(d.Users, d.Logger, env)
	eventsHandler := handlers.NewEventsHandler(d.Events, d.Registrations, d.Feedback, d.Logger, env)
	ticketsHandler := handlers.NewTicketsHandler(d.Registrations, d.Events, d.Users, d.Logger, env)
	checkinHandler := handlers.NewCheckinHandler(d.Registrations, d.Events, d.Logger, env)
	attendanceHandler := handlers.NewAttendanceHandler(d.Registrations, d.Logger, env)
	speakersHandler := handlers.NewSpeakersHandler(d.Speakers, d.Logger, env)
	feedbackHandler := handlers.NewFeedbackHandler(d.Feedback, d.Events, d.Logger, env)
	exportHandler := handlers.NewExportHandler(d.Reports, d.Events, d.Logger, env)
	uploadsHandler := handlers.NewUploadsHandler(d.Uploads, d.Logger, env)
	healthChecker := handlers.NewHealthChecker(d.Pool, d.Version, d.GitCommit)

	authed := middleware.Authenticate(d.JWT, env)
	require := func(perm auth.Permission, h http.HandlerFunc) http.Handler {
		return authed(middleware.RequirePermission(perm, env)(h))
	}
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)

	mux := http.NewServeMux()

	// Ops surface.
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz())
	mux.Handle("/api/v1/health", healthChecker.Health())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Public uploads.
	if d.Uploads != nil {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(d.Uploads.Dir()))))
	}

	// Auth.
	mux.Handle("/api/v1/register", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Register),
	}))
	mux.Handle("/api/v1/login", methodMux(map[string]http.Handler{
		http.MethodPost: loginTier(http.HandlerFunc(authHandler.Login)),
	}))

	// Profile.
	mux.Handle("/api/v1/me", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(usersHandler.Me)),
		http.MethodPut: authed(http.HandlerFunc(usersHandler.UpdateMe)),
	}))
	mux.Handle("/api/v1/me/password", methodMux(map[string]http.Handler{
		http.MethodPut: authed(http.HandlerFunc(usersHandler.ChangePassword)),
	}))

	// Team roster.
	mux.Handle("/api/v1/team", methodMux(map[string]http.Handler{
		http.MethodGet:  require(auth.PermManageTeam, usersHandler.Team),
		http.MethodPost: require(auth.PermManageTeam, usersHandler.AddTeamMember),
	}))
	mux.Handle("/api/v1/team/{id}", methodMux(map[string]http.Handler{
		http.MethodDelete: require(auth.PermManageTeam, usersHandler.RemoveTeamMember),
	}))

	// Events.
	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  require(auth.PermManageEvents, eventsHandler.List),
		http.MethodPost: require(auth.PermManageEvents, eventsHandler.Create),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    require(auth.PermManageEvents, eventsHandler.Get),
		http.MethodPut:    require(auth.PermManageEvents, eventsHandler.Update),
		http.MethodDelete: require(auth.PermManageEvents, eventsHandler.Delete),
	}))
	mux.Handle("/api/v1/events/{id}/module", methodMux(map[string]http.Handler{
		http.MethodGet: require(auth.PermManageEvents, eventsHandler.Module),
	}))
	mux.Handle("/api/v1/dashboard/stats", methodMux(map[string]http.Handler{
		http.MethodGet: require(auth.PermManageEvents, eventsHandler.DashboardStats),
	}))

	// Ticketing.
	mux.Handle("/api/v1/events/join", methodMux(map[string]http.Handler{
		http.MethodPost: require(auth.PermJoinEvents, ticketsHandler.Join),
	}))
	mux.Handle("/api/v1/tickets", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(ticketsHandler.MyTickets)),
	}))
	mux.Handle("/api/v1/tickets/{id}/qr", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(ticketsHandler.QR)),
	}))
	mux.Handle("/api/v1/tickets/{id}/pdf", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(ticketsHandler.PDF)),
	}))

	// Check-in.
	mux.Handle("/api/v1/events/{id}/scan", methodMux(map[string]http.Handler{
		http.MethodPost: require(auth.PermCheckIn, checkinHandler.Scan),
	}))
	mux.Handle("/api/v1/events/{id}/walk-in", methodMux(map[string]http.Handler{
		http.MethodPost: require(auth.PermCheckIn, checkinHandler.WalkIn),
	}))
	mux.Handle("/api/v1/registrations/{id}/checkin", methodMux(map[string]http.Handler{
		http.MethodPost: require(auth.PermCheckIn, checkinHandler.ManualCheckIn),
	}))

	// Attendance requests.
	mux.Handle("/api/v1/attendance-requests", methodMux(map[string]http.Handler{
		http.MethodGet:  require(auth.PermManageAttendees, attendanceHandler.List),
		http.MethodPost: authed(http.HandlerFunc(attendanceHandler.SubmitProof)),
	}))
	mux.Handle("/api/v1/attendance-requests/{id}", methodMux(map[string]http.Handler{
		http.MethodPut: require(auth.PermManageAttendees, attendanceHandler.Update),
	}))

	// Speakers.
	mux.Handle("/api/v1/speakers", methodMux(map[string]http.Handler{
		http.MethodGet:  require(auth.PermManageSpeakers, speakersHandler.List),
		http.MethodPost: require(auth.PermManageSpeakers, speakersHandler.Create),
	}))
	mux.Handle("/api/v1/speakers/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    require(auth.PermManageSpeakers, speakersHandler.Get),
		http.MethodPut:    require(auth.PermManageSpeakers, speakersHandler.Update),
		http.MethodDelete: require(auth.PermManageSpeakers, speakersHandler.Delete),
	}))

	// Feedback.
	mux.Handle("/api/v1/events/{id}/feedback-form", methodMux(map[string]http.Handler{
		http.MethodGet:  authed(http.HandlerFunc(feedbackHandler.GetForm)),
		http.MethodPost: require(auth.PermManageEvents, feedbackHandler.SaveForm),
	}))
	mux.Handle("/api/v1/events/{id}/feedback", methodMux(map[string]http.Handler{
		http.MethodPost: require(auth.PermSubmitFeedback, feedbackHandler.Submit),
	}))

	// Export.
	mux.Handle("/api/v1/events/{id}/export", methodMux(map[string]http.Handler{
		http.MethodGet: require(auth.PermExportReports, exportHandler.CSV),
	}))

	// Uploads.
	uploadSize := middleware.UploadRequestSize()
	mux.Handle("/api/v1/uploads/events", methodMux(map[string]http.Handler{
		http.MethodPost: require(auth.PermManageEvents, uploadsHandler.EventImage),
	}))
	mux.Handle("/api/v1/uploads/speakers", methodMux(map[string]http.Handler{
		http.MethodPost: require(auth.PermManageSpeakers, uploadsHandler.SpeakerPhoto),
	}))

	// Outer chain, innermost listed last.
	var handler http.Handler = mux
	handler = middleware.RateLimit(d.Config.RateLimit)(handler)
	handler = sizeByRoute(uploadSize, middleware.PublicRequestSize(), handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.CORS(d.Config.CORS, d.Logger)(handler)
	handler = middleware.RequestLogging(d.Logger)(handler)
	handler = middleware.CorrelationID(d.Logger)(handler)
	return handler
}

// sizeByRoute applies the larger upload body cap only on the upload
// endpoints; everything else gets the default cap.
func sizeByRoute(uploadSize, defaultSize func(http.Handler) http.Handler, next http.Handler) http.Handler {
	uploadWrapped := uploadSize(next)
	defaultWrapped := defaultSize(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v1/uploads/") {
			uploadWrapped.ServeHTTP(w, r)
			return
		}
		defaultWrapped.ServeHTTP(w, r)
	})
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
