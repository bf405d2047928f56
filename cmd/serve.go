package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/store"
	"github.com/veracity-group/truthscan-cli/internal/triage"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Exposes audits, verification, scoring, and extraction triage over HTTP.
The tenant scope comes from the X-Tenant-ID header, falling back to the
configured tenant when the header is absent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT"},
		AllowedHeaders: []string{"Content-Type", "X-Tenant-ID"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/audits/{entityID}", func(w http.ResponseWriter, r *http.Request) {
		result, err := env.Audit.RunAudit(r.Context(), tenantOf(r), chi.URLParam(r, "entityID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/audits/{entityID}/{provider}", func(w http.ResponseWriter, r *http.Request) {
		eng := model.Engine(chi.URLParam(r, "provider"))
		if !eng.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown provider"})
			return
		}
		ev, err := env.Audit.RunSingleEngineAudit(r.Context(), tenantOf(r), chi.URLParam(r, "entityID"), eng)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	})

	r.Get("/entities/{entityID}/truth-score", func(w http.ResponseWriter, r *http.Request) {
		result, err := env.Audit.TruthAuditResult(r.Context(), tenantOf(r), chi.URLParam(r, "entityID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Get("/entities/{entityID}/hallucinations", func(w http.ResponseWriter, r *http.Request) {
		recs, err := env.Store.ListHallucinations(r.Context(), tenantOf(r), chi.URLParam(r, "entityID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	})

	r.Post("/hallucinations/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		rec, err := env.Lifecycle.VerifyCorrection(r.Context(), tenantOf(r), chi.URLParam(r, "id"))
		if err != nil {
			if ce, ok := store.IsCooldown(err); ok {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(ce.RetryAfter.Seconds())))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":               "verification already in progress",
					"retry_after_seconds": int(ce.RetryAfter.Seconds()),
				})
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	r.Put("/hallucinations/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		rec, err := env.Lifecycle.SetCorrectionStatus(r.Context(), tenantOf(r), chi.URLParam(r, "id"), model.CorrectionStatus(req.Status))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	r.Post("/extractions/classify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items     []model.ExtractedItem `json:"items"`
			Certified bool                  `json:"certified"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items":       triage.ClassifyItems(req.Items),
			"can_publish": triage.CanPublish(req.Items, req.Certified),
		})
	})

	return r
}

// tenantOf resolves the request's tenant scope.
func tenantOf(r *http.Request) string {
	if t := r.Header.Get("X-Tenant-ID"); t != "" {
		return t
	}
	return cfg.Tenant
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses without leaking internal
// detail: the full chain is logged, the caller gets a short message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case eris.Is(err, store.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "transition not allowed"})
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
