// Package httpapi exposes the user endpoints, the health report and the
// admin-only manual reconciliation over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/usersync/internal/common"
	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/identity"
	"github.com/dmitrijs2005/usersync/internal/server/models"
	"github.com/dmitrijs2005/usersync/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*services.UserRecord, error)
	FindUserByEmail(ctx context.Context, email string) (*services.UserRecord, error)
}

// BackupQueue schedules the backup write after a primary operation.
type BackupQueue interface {
	AfterPrimary(ctx context.Context, id, email string)
}

type Syncer interface {
	Sync(ctx context.Context, source string) (*services.Report, error)
	LastReport() *services.Report
}

type HealthChecker interface {
	CheckConnection(ctx context.Context) bool
}

// Deps groups the collaborators of the handler.
type Deps struct {
	Users     UserLookup
	Queue     BackupQueue
	Syncer    Syncer
	Health    HealthChecker
	Scheduler func() string
	SecretKey []byte
	Logger    logging.Logger
}

type Handler struct {
	users     UserLookup
	queue     BackupQueue
	syncer    Syncer
	health    HealthChecker
	scheduler func() string
	secret    []byte
	logger    logging.Logger
	now       func() time.Time
}

func NewHandler(d Deps) *Handler {
	sched := d.Scheduler
	if sched == nil {
		sched = func() string { return "disabled" }
	}
	return &Handler{
		users:     d.Users,
		queue:     d.Queue,
		syncer:    d.Syncer,
		health:    d.Health,
		scheduler: sched,
		secret:    d.SecretKey,
		logger:    d.Logger.With("module", "http"),
		now:       time.Now,
	}
}

// Routes builds the chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.root)
	r.Route("/api", func(api chi.Router) {
		api.Get("/health", h.healthReport)

		api.Route("/users", func(u chi.Router) {
			u.Post("/", h.saveUser)
			u.Get("/email/{email}", h.getUserByEmail)
			u.Get("/{id}", h.getUser)
		})

		api.Route("/admin", func(a chi.Router) {
			a.Use(h.requireAdmin)
			a.Post("/sync", h.triggerSync)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found - "+r.URL.Path)
	})

	return r
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "online",
		"message":   "user sync service is running",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

type healthData struct {
	BackupStore    bool             `json:"backup_store"`
	LastSync       *services.Report `json:"last_sync"`
	SchedulerState string           `json:"scheduler_state"`
}

func (h *Handler) healthReport(w http.ResponseWriter, r *http.Request) {
	data := healthData{
		BackupStore:    h.health.CheckConnection(r.Context()),
		SchedulerState: h.scheduler(),
	}
	if h.syncer != nil {
		data.LastSync = h.syncer.LastReport()
	}

	code, msg := http.StatusOK, "ok"
	if !data.BackupStore {
		code, msg = http.StatusServiceUnavailable, "backup store unreachable"
	}
	writeOK(w, code, msg, data)
}

type saveUserRequest struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (h *Handler) saveUser(w http.ResponseWriter, r *http.Request) {
	var req saveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "id and email are required")
		return
	}

	h.queue.AfterPrimary(r.Context(), req.ID, req.Email)
	writeOK(w, http.StatusAccepted, "user queued for backup", req)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), chi.URLParam(r, "id"))
	h.writeLookup(w, r, u, err)
}

func (h *Handler) getUserByEmail(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.FindUserByEmail(r.Context(), chi.URLParam(r, "email"))
	h.writeLookup(w, r, u, err)
}

func (h *Handler) writeLookup(w http.ResponseWriter, r *http.Request, u *services.UserRecord, err error) {
	switch {
	case err == nil:
		writeOK(w, http.StatusOK, "", u)
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "missing lookup key")
	default:
		h.logger.Error(r.Context(), "user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = models.SourceIdentity
	}

	rep, err := h.syncer.Sync(r.Context(), source)
	switch {
	case err == nil:
		writeOK(w, http.StatusOK, "sync finished", rep)
	case errors.Is(err, common.ErrSyncInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(r.Context(), "manual sync failed", "source", source, "error", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Status: statusError, Message: err.Error(), Data: rep})
	}
}
