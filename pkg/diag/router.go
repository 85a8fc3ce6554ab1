package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

// HealthCheck reports whether a backing dependency is usable.
type HealthCheck func(context.Context) error

type routerConfig struct {
	checks []HealthCheck
	log    *slog.Logger
}

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

// WithHealthChecks adds readiness checks run by GET /healthz.
func WithHealthChecks(checks ...HealthCheck) RouterOption {
	return func(c *routerConfig) { c.checks = append(c.checks, checks...) }
}

func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewRouter exposes health, the transitions table and actor histories of fsm.
//
//	GET /healthz                         ALIVE, READY or NOT_READY
//	GET /transitions.csv                 ?encoding=windows-1251&trim=false&empty=-
//	GET /actors/{user}/{chat}/magazine   JSON history, "none" for an absent id
func NewRouter(fsm *scenario.FSM, opts ...RouterOption) chi.Router {
	cfg := &routerConfig{log: logger.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	h := &handlers{fsm: fsm, log: cfg.log.With(logger.Component("diag"))}

	r := chi.NewRouter()
	r.Get("/healthz", h.health(cfg.checks))
	r.Get("/transitions.csv", h.transitions)
	r.Get("/actors/{user}/{chat}/magazine", h.magazine)
	return r
}

type handlers struct {
	fsm *scenario.FSM
	log *slog.Logger
}

// health serves liveness when no checks are configured and readiness otherwise.
func (h *handlers) health(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				h.log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				writeText(w, http.StatusServiceUnavailable, "NOT_READY")
				return
			}
		}
		if len(checks) == 0 {
			writeText(w, http.StatusOK, "ALIVE")
			return
		}
		writeText(w, http.StatusOK, "READY")
	}
}

func (h *handlers) transitions(w http.ResponseWriter, r *http.Request) {
	table := h.fsm.Table()
	if len(table.Signals()) == 0 {
		writeText(w, http.StatusNotFound, "no transitions registered")
		return
	}

	q := r.URL.Query()
	opts := []scenario.ExportOption{scenario.WithEncoding(q.Get("encoding"))}
	if q.Has("empty") {
		opts = append(opts, scenario.WithEmptyCell(q.Get("empty")))
	}
	if v := q.Get("trim"); v != "" {
		trim, err := strconv.ParseBool(v)
		if err != nil {
			writeText(w, http.StatusBadRequest, "invalid trim value")
			return
		}
		opts = append(opts, scenario.WithTrimSuffix(trim))
	}

	// buffered so an unknown encoding still yields a clean error response
	var buf bytes.Buffer
	if err := table.ExportCSV(&buf, opts...); err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transitions.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type magazineResponse struct {
	Actor        string   `json:"actor"`
	CurrentState string   `json:"current_state"`
	Entries      []string `json:"entries"`
}

func (h *handlers) magazine(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(chi.URLParam(r, "user"))
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid user id")
		return
	}
	chatID, err := parseID(chi.URLParam(r, "chat"))
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	ctx := r.Context()
	actor := scenario.NewActor(userID, chatID)
	mag := h.fsm.Magazine(actor)
	if err := mag.Load(ctx); err != nil {
		if scenario.IsMagazineNotInitialized(err) {
			writeText(w, http.StatusNotFound, "magazine not initialized")
			return
		}
		h.log.ErrorContext(ctx, "failed to load magazine", logger.Error(err), logger.UserID(userID), logger.ChatID(chatID))
		writeText(w, http.StatusInternalServerError, "failed to load magazine")
		return
	}

	entries, _ := mag.Entries()
	current, _ := mag.CurrentState()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(magazineResponse{
		Actor:        actor.String(),
		CurrentState: current,
		Entries:      entries,
	})
}

func parseID(v string) (int64, error) {
	if v == "none" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
