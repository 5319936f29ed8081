package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"surveystat/internal"
	"surveystat/internal/metrics"
	"surveystat/internal/report"
	"surveystat/ports"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App is the read-only report viewer
type App struct {
	router    *chi.Mux
	reports   ports.ReportRepository
	templates *template.Template
	logger    *internal.Logger
	metrics   *metrics.Metrics
	port      string
}

// Config holds UI application configuration
type Config struct {
	Port    string
	Reports ports.ReportRepository
	Logger  *internal.Logger
	// Metrics, when set, instruments every route and serves GET /metrics
	Metrics *metrics.Metrics
}

// NewApp creates the viewer over an archive
func NewApp(config Config) (*App, error) {
	if config.Reports == nil {
		return nil, fmt.Errorf("viewer needs a report repository")
	}
	logger := config.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	funcMap := template.FuncMap{
		"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
		"markdown": func(md string) template.HTML { return template.HTML(report.RenderHTML([]byte(md))) },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		reports:   config.Reports,
		templates: templates,
		logger:    logger.With("ui"),
		metrics:   config.Metrics,
		port:      config.Port,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(a.metrics.Middleware)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/reports/{id}", a.handleReport)
	a.router.Get("/api/reports", a.handleListReports)
	a.router.Get("/api/reports/{id}", a.handleGetReport)
	if a.metrics != nil {
		a.router.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}
}

// ServeHTTP lets the app be mounted or tested directly
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Start serves until ctx is cancelled
func (a *App) Start(ctx context.Context) error {
	port := a.port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting report viewer on :%s", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Template helpers
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		a.logger.Error("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
