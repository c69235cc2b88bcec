package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/gateway"
	"github.com/sells-group/compliance-gateway/internal/lookup"
	"github.com/sells-group/compliance-gateway/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway over a JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initGateway(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		return startServer(ctx, buildRouter(env), resolvePort(servePort, cfg.Server.Port))
	},
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort > 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves h on port until ctx is cancelled, then shuts down.
func startServer(ctx context.Context, h http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	case err := <-errCh:
		return eris.Wrap(err, "server listen")
	}
}

// buildRouter wires the API routes onto env.
func buildRouter(env *gatewayEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", env.Metrics.Handler())

	a := &api{env: env}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/kinds", a.kinds)
		r.Get("/records/{kind}", a.records)
		r.Get("/grouped/{family}", a.grouped)
		r.Get("/buildings/{category}", a.building)
		r.Get("/normalize/{what}", a.normalize)
		r.Get("/history", a.history)
		r.Get("/history/latest", a.latest)
	})
	return r
}

type api struct {
	env *gatewayEnv
}

func (a *api) kinds(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(endpoint.Kinds()))
	for _, k := range endpoint.Kinds() {
		names = append(names, k.String())
	}
	writeJSON(w, http.StatusOK, names)
}

func (a *api) records(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var radius float64
	if s := q.Get("radius"); s != "" {
		if radius, err = strconv.ParseFloat(s, 64); err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "radius"))
			return
		}
	}
	v, err := buildVariant(chi.URLParam(r, "kind"), q.Get("subject"), q.Get("since"), q.Get("until"), limit, radius)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	recs, err := lookup.Fetch(r.Context(), a.env.Client, v)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *api) grouped(w http.ResponseWriter, r *http.Request) {
	f, ok := endpoint.FamilyByName(chi.URLParam(r, "family"))
	if !ok {
		writeError(w, http.StatusNotFound, eris.Errorf("unknown family %q", chi.URLParam(r, "family")))
		return
	}
	months, err := intParam(r.URL.Query().Get("months"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, eris.New("ids is required"))
		return
	}

	out, err := lookup.FetchGrouped(r.Context(), a.env.Client, f, ids, sinceMonths(months))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) building(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b := lookup.Building{BIN: q.Get("bin"), Address: q.Get("address"), Key: q.Get("key")}
	if b.BIN == "" && b.Address == "" && b.Key == "" {
		writeError(w, http.StatusBadRequest, eris.New("one of bin, address or key is required"))
		return
	}

	sel := a.env.Selector
	ctx := r.Context()
	var (
		out any
		err error
	)
	switch chi.URLParam(r, "category") {
	case "violations":
		out, err = sel.Violations(ctx, b)
	case "environmental":
		out, err = sel.EnvironmentalViolations(ctx, b)
	case "permits":
		out, err = sel.Permits(ctx, b)
	case "complaints":
		out, err = sel.Complaints(ctx, b)
	case "snapshot":
		out = snapshotView(sel.Snapshot(ctx, b))
	default:
		writeError(w, http.StatusNotFound, eris.Errorf("unknown category %q", chi.URLParam(r, "category")))
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) normalize(w http.ResponseWriter, r *http.Request) {
	out, err := normalizeValue(chi.URLParam(r, "what"), r.URL.Query().Get("value"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	if a.env.Store == nil {
		writeError(w, http.StatusNotFound, eris.New("no store configured"))
		return
	}
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fetches, err := a.env.Store.List(r.Context(), store.Filter{Kind: q.Get("kind"), Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, fetches)
}

func (a *api) latest(w http.ResponseWriter, r *http.Request) {
	if a.env.Store == nil {
		writeError(w, http.StatusNotFound, eris.New("no store configured"))
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, eris.New("key is required"))
		return
	}
	f, err := a.env.Store.Latest(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, eris.Errorf("no stored fetch for %q", key))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// statusFor maps a gateway failure onto an HTTP status.
func statusFor(err error) int {
	switch gateway.KindOf(err) {
	case gateway.InvalidRequest:
		return http.StatusBadRequest
	case gateway.Throttled:
		return http.StatusTooManyRequests
	case gateway.Network:
		return http.StatusGatewayTimeout
	case gateway.Cancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid non-negative integer %q", s)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
