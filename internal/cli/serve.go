package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/archviz/pkg/buildinfo"
	"github.com/matzehuels/archviz/pkg/diagram"
	"github.com/matzehuels/archviz/pkg/document"
	errs "github.com/matzehuels/archviz/pkg/errors"
	"github.com/matzehuels/archviz/pkg/observability"
	"github.com/matzehuels/archviz/pkg/render"
)

const (
	maxDocumentBytes = 1 << 20
	shutdownTimeout  = 10 * time.Second
)

// hostFileAttrs make Graphviz read files on the server.
var hostFileAttrs = []string{"image", "imagepath", "fontpath", "shapefile"}

var contentTypes = map[diagram.Format]string{
	diagram.FormatSVG: "image/svg+xml",
	diagram.FormatPNG: "image/png",
	diagram.FormatJPG: "image/jpeg",
	diagram.FormatPDF: "application/pdf",
	diagram.FormatDOT: "text/vnd.graphviz; charset=utf-8",
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		opts rendererOpts
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Render diagram documents over HTTP",
		Long: `Start an HTTP server that renders diagram documents.

  POST /render?format=svg   body: TOML or YAML document
  GET  /healthz
  GET  /metrics             Prometheus metrics

The document encoding is taken from the ?type= parameter (toml or yaml) or
the Content-Type header, defaulting to TOML.`,
		Example: `  archviz serve --addr :8080
  curl --data-binary @examples/ecs-cicd.toml 'localhost:8080/render?format=svg'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, cleanup, err := c.newRenderer(ctx, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			hooks := observability.NewPrometheusHooks(reg)
			observability.SetRenderHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			defer observability.Reset()

			metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
			return serve(ctx, addr, newRouter(r, c.Logger, metrics), c.Logger)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

// serve runs handler on addr until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newRouter builds the HTTP API around r. metrics is mounted at /metrics
// when non-nil.
func newRouter(r *render.Renderer, logger *log.Logger, metrics http.Handler) http.Handler {
	h := &renderHandler{renderer: r, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(requestLogger(logger))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
	})
	router.Post("/render", h.render)
	if metrics != nil {
		router.Handle("/metrics", metrics)
	}
	return router
}

// requestLogger logs each request and reports it to the HTTP hooks.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			observability.HTTP().OnResponse(r.Context(), r.Method, route, status, time.Since(start))
			logger.Info("request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Millisecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type renderHandler struct {
	renderer *render.Renderer
	logger   *log.Logger
}

// render handles POST /render. Each request builds its own diagram.
func (h *renderHandler) render(w http.ResponseWriter, r *http.Request) {
	format := diagram.FormatSVG
	if s := r.URL.Query().Get("format"); s != "" {
		f, err := diagram.ParseFormat(s)
		if err != nil {
			writeError(w, err)
			return
		}
		format = f
	}
	encoding, err := documentFormat(r)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Code: string(errs.ErrCodeInvalidInput), Error: "document too large"})
			return
		}
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "read body"))
		return
	}

	doc, err := document.Parse(body, encoding)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := doc.RejectAttrs(hostFileAttrs...); err != nil {
		writeError(w, err)
		return
	}
	d, err := doc.Build(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := h.renderer.Bytes(r.Context(), d, format)
	if err != nil {
		if errs.Is(err, errs.ErrCodeRender) {
			h.logger.Error("render failed", "diagram", d.Name(), "format", format, "err", err)
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// documentFormat picks the request body encoding from ?type= or the
// Content-Type header.
func documentFormat(r *http.Request) (document.Format, error) {
	switch t := r.URL.Query().Get("type"); t {
	case "":
	case "toml":
		return document.FormatTOML, nil
	case "yaml", "yml":
		return document.FormatYAML, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidFormat, "unknown document type %q (want toml or yaml)", t)
	}

	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return document.FormatTOML, nil
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return document.FormatYAML, nil
	}
	return document.FormatTOML, nil
}

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// statusFor maps error codes to HTTP status codes.
func statusFor(code errs.Code) int {
	switch code {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat, errs.ErrCodeInvalidDocument,
		errs.ErrCodeDanglingReference, errs.ErrCodeScope:
		return http.StatusBadRequest
	case errs.ErrCodeIconResolution, errs.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), errorBody{Code: string(code), Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
