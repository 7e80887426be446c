package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"avance/internal"
	"avance/internal/config"
	"avance/internal/logging"
	"avance/internal/pipeline"
	"avance/internal/storage"
	"avance/internal/workbook"
)

//go:embed templates/*.html
var templateFiles embed.FS

const pageTitle = "Avance de empadronamiento"

// App serves the progress dashboard. db is optional; without it the area
// page has no history section.
type App struct {
	router    *chi.Mux
	cfg       config.Config
	cache     *workbook.Cache
	report    *pipeline.Report
	db        *storage.DB
	logger    *zap.Logger
	templates *template.Template
}

func NewApp(cfg config.Config, cache *workbook.Cache, db *storage.DB, logger *zap.Logger) (*App, error) {
	funcs := template.FuncMap{
		"areaURL": func(label string) string { return "/areas/" + url.PathEscape(label) },
	}
	templates, err := template.New("").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		cfg:       cfg,
		cache:     cache,
		report:    pipeline.NewReport(cfg, cache),
		db:        db,
		logger:    logger,
		templates: templates,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/areas/{label}", a.handleArea)
	a.router.Get("/areas/{label}/export.xlsx", a.handleAreaExport)
	a.router.Get("/api/areas/{label}", a.handleAreaJSON)
	a.router.Get("/map", a.handleMap)
	a.router.Get("/healthz", a.handleHealth)
	a.router.Post("/cache/purge", a.handlePurge)
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// ListenAndServe runs the dashboard until ctx is cancelled.
func (a *App) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("dashboard listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type tab struct {
	ID    string
	Title string
}

type page struct {
	Title    string
	Subtitle string
	Tabs     []tab
	Sections []template.HTML
}

// sectionView is the data every section template receives.
type sectionView struct {
	ID         string
	Title      string
	Advisories []internal.Advisory
	Data       any
	Chart      *Figure
}

type sectionError struct {
	ID      string
	Title   string
	Message string
}

// renderSection executes one section template into its own buffer. A
// template failure replaces that section with an error block and leaves the
// rest of the page alone.
func (a *App) renderSection(name string, view sectionView) template.HTML {
	logging.Advisories(a.logger.With(zap.String("section", view.ID)), view.Advisories)

	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, view); err != nil {
		a.logger.Error("section render failed", zap.String("section", view.ID), zap.Error(err))
		buf.Reset()
		_ = a.templates.ExecuteTemplate(&buf, "section_error", sectionError{
			ID:      view.ID,
			Title:   view.Title,
			Message: fmt.Sprintf("could not render section: %v", err),
		})
	}
	return template.HTML(buf.String())
}

func (a *App) renderPage(w http.ResponseWriter, status int, name string, p page) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, p); err != nil {
		a.logger.Error("page render failed", zap.String("page", name), zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("write json", zap.Error(err))
	}
}
