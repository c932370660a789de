package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/vadimtrunov/CriticsPicks/internal/config"
	"github.com/vadimtrunov/CriticsPicks/internal/core"
	"github.com/vadimtrunov/CriticsPicks/internal/picks"
	"github.com/vadimtrunov/CriticsPicks/internal/session"
)

// SessionCookie names the cookie carrying the dashboard session ID.
const SessionCookie = "criticspicks_session"

// Tab names accepted in the ?tab= query parameter.
const (
	TabPicks  = "picks"
	TabImages = "images"
)

const (
	appName     = "Critics’ Picks"
	tagline     = "Tracking recent movies selected by The New York Times’ Movie Critics"
	attribution = "Data provided by The New York Times"
	nytDevURL   = "https://developer.nytimes.com"

	loadFailedMsg = "Could not load picks right now. Please try again later."

	imageColumns = 4
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// Handler routes dashboard requests to per-session controllers.
type Handler struct {
	sessions *session.Manager[string]
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewHandler creates the dashboard handler.
func NewHandler(sessions *session.Manager[string], logger *slog.Logger) *Handler {
	if sessions == nil {
		panic("web.NewHandler: sessions must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{sessions: sessions, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /{$}", h.handleIndex)
	h.mux.HandleFunc("POST /next", h.handleNext)
	h.mux.HandleFunc("POST /prev", h.handlePrev)
	h.mux.HandleFunc("GET /api/page", h.handleAPIPage)
	h.mux.HandleFunc("GET /health", healthHandler)
	return h
}

// ServeHTTP implements http.Handler. Each request carries a logger scoped to
// its method and path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("method", r.Method), slog.String("path", r.URL.Path))
	r = r.WithContext(config.ContextWithLogger(r.Context(), logger))
	start := time.Now()
	h.mux.ServeHTTP(w, r)
	logger.Debug("request served", slog.Duration("elapsed", time.Since(start)))
}

// PruneEvery drops idle sessions on every tick until ctx is canceled.
func (h *Handler) PruneEvery(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.sessions.Prune(idle); n > 0 {
				h.logger.Debug("pruned idle sessions", slog.Int("count", n))
			}
		}
	}
}

// controllerFor resolves the caller's controller. A request without a
// cookie, with an unparsable one, or naming a session this server does not
// hold (pruned, or made up by the client) gets a freshly issued session.
func (h *Handler) controllerFor(w http.ResponseWriter, r *http.Request) (*picks.Controller, *slog.Logger) {
	logger := config.LoggerFromContext(r.Context())
	if c, err := r.Cookie(SessionCookie); err == nil {
		if parsed, err := uuid.Parse(c.Value); err == nil {
			id := parsed.String()
			if ctrl, ok := h.sessions.Lookup(id); ok {
				return ctrl, logger.With(slog.String("session", id))
			}
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	logger = logger.With(slog.String("session", id))
	logger.Debug("dashboard session created")
	return h.sessions.Get(id), logger
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl, logger := h.controllerFor(w, r)
	if ctrl == nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	view := ctrl.Snapshot(r.Context())
	if view.Err != nil {
		logger.Error("render page failed", slog.String("error", view.Err.Error()))
	}
	data := newPageData(ctrl, view, normalizeTab(r.URL.Query().Get("tab")))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		logger.Error("execute dashboard template", slog.String("error", err.Error()))
	}
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	ctrl, logger := h.controllerFor(w, r)
	if ctrl == nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	if ctrl.Advance() {
		logger.Debug("advanced", slog.Int("offset", ctrl.State().Offset))
	}
	redirectToIndex(w, r)
}

func (h *Handler) handlePrev(w http.ResponseWriter, r *http.Request) {
	ctrl, logger := h.controllerFor(w, r)
	if ctrl == nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	if ctrl.Retreat() {
		logger.Debug("retreated", slog.Int("offset", ctrl.State().Offset))
	}
	redirectToIndex(w, r)
}

func (h *Handler) handleAPIPage(w http.ResponseWriter, r *http.Request) {
	ctrl, logger := h.controllerFor(w, r)
	if ctrl == nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}

	view := ctrl.Snapshot(r.Context())
	resp := newAPIPage(ctrl, view)
	status := http.StatusOK
	if view.Err != nil {
		logger.Error("api page failed", slog.String("error", view.Err.Error()))
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("encode api page", slog.String("error", err.Error()))
	}
}

func redirectToIndex(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if tab := normalizeTab(r.FormValue("tab")); tab != TabPicks {
		target += "?tab=" + url.QueryEscape(tab)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func normalizeTab(tab string) string {
	if tab == TabImages {
		return TabImages
	}
	return TabPicks
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// pickView is one row of the "Their Picks" tab.
type pickView struct {
	Title    string
	IMDbURL  string
	Ago      string
	Summary  string
	Rating   string
	Byline   string
	Image    string
	ReadURL  string
	ReadText string
}

// pageData is the template model.
type pageData struct {
	AppName     string
	Tagline     string
	Attribution string
	NYTDevURL   string
	Copyright   string
	Tab         string
	Offset      int
	CanAdvance  bool
	CanRetreat  bool
	Error       string
	Picks       []pickView
	ImageRows   [][]pickView
}

func newPageData(ctrl *picks.Controller, view picks.View, tab string) pageData {
	data := pageData{
		AppName:     appName,
		Tagline:     tagline,
		Attribution: attribution,
		NYTDevURL:   nytDevURL,
		Tab:         tab,
		Offset:      view.Offset,
		CanAdvance:  view.CanAdvance,
		CanRetreat:  view.CanRetreat,
	}
	if view.Err != nil {
		data.Error = loadFailedMsg
	}
	if view.Page == nil {
		return data
	}
	data.Copyright = view.Page.Copyright

	var withImages []pickView
	for _, p := range view.Page.Picks {
		pv := toPickView(ctrl, p)
		data.Picks = append(data.Picks, pv)
		if pv.Image != "" {
			withImages = append(withImages, pv)
		}
	}
	for i := 0; i < len(withImages); i += imageColumns {
		end := min(i+imageColumns, len(withImages))
		data.ImageRows = append(data.ImageRows, withImages[i:end])
	}
	return data
}

func toPickView(ctrl *picks.Controller, p core.Pick) pickView {
	pv := pickView{
		Title:    p.DisplayTitle,
		IMDbURL:  picks.IMDbSearchURL(p.DisplayTitle),
		Summary:  p.SummaryShort,
		Rating:   p.MPAARating,
		Byline:   p.Byline,
		ReadURL:  p.LinkURL,
		ReadText: p.LinkText,
	}
	if ago, err := ctrl.RelativeTime(p); err == nil {
		pv.Ago = ago
	}
	if src, ok := ctrl.ImageSourceFor(p); ok {
		pv.Image = src
	}
	return pv
}

// apiPick is the JSON form of one pick.
type apiPick struct {
	core.Pick
	RelativeTime string `json:"relative_time,omitempty"`
	IMDbURL      string `json:"imdb_url"`
}

// apiPage is the JSON body of GET /api/page.
type apiPage struct {
	Offset     int       `json:"offset"`
	HasMore    bool      `json:"has_more"`
	CanAdvance bool      `json:"can_advance"`
	CanRetreat bool      `json:"can_retreat"`
	Copyright  string    `json:"copyright,omitempty"`
	Picks      []apiPick `json:"picks"`
	Error      string    `json:"error,omitempty"`
}

func newAPIPage(ctrl *picks.Controller, view picks.View) apiPage {
	resp := apiPage{
		Offset:     view.Offset,
		HasMore:    view.CanAdvance,
		CanAdvance: view.CanAdvance,
		CanRetreat: view.CanRetreat,
		Picks:      []apiPick{},
	}
	if view.Err != nil {
		resp.Error = loadFailedMsg
	}
	if view.Page == nil {
		return resp
	}
	resp.Copyright = view.Page.Copyright
	for _, p := range view.Page.Picks {
		ap := apiPick{Pick: p, IMDbURL: picks.IMDbSearchURL(p.DisplayTitle)}
		if ago, err := ctrl.RelativeTime(p); err == nil {
			ap.RelativeTime = ago
		}
		resp.Picks = append(resp.Picks, ap)
	}
	return resp
}
