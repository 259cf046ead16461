// Package main runs the capacity planning state daemon: it hydrates the
// in-memory state from the remote database (falling back to the local
// cache), serves the state over HTTP and syncs mutations back out.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plancore/internal/config"
	"plancore/internal/core"
	"plancore/internal/infra/blob"
	"plancore/internal/infra/persistence/postgres"
	"plancore/internal/infra/persistence/sqlite"
	"plancore/internal/snapshot"
	"plancore/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "plancore.yaml", "configuration file path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	local, err := sqlite.NewStore(cfg.Cache.Path, logger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = local.Close() }()

	var remote domain.RemoteStore
	if cfg.Remote.DSN != "" {
		pg, err := postgres.NewStore(cfg.Remote.DSN, postgres.Options{
			Logger:       logger,
			EnsureSchema: cfg.Remote.EnsureSchema,
			LoadTimeout:  time.Duration(cfg.Remote.LoadTimeoutMs) * time.Millisecond,
		})
		if err != nil {
			logger.Warn("remote unavailable, running offline", "error", err)
		} else {
			defer func() { _ = pg.Close() }()
			remote = pg
		}
	} else {
		logger.Info("no remote dsn configured, running offline")
	}

	state := hydrate(remote, local, logger)

	reg := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	expvarMetrics := core.NewExpvarMetrics("plancore_sync")

	store := core.NewStore(state)
	sched := core.NewScheduler(remote, time.Duration(cfg.Remote.SaveDebounceMs)*time.Millisecond, logger,
		multiMetrics{metrics, expvarMetrics})
	svc := core.NewService(store, local, sched, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archiver, err := openArchiver(ctx, cfg.Snapshots)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newHandler(svc, archiver, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := sched.Flush(shutdownCtx); err != nil {
		logger.Warn("final sync failed", "error", err)
	}
	return nil
}

// hydrate prefers the remote state; when the remote is unreachable or
// empty the local cache wins.
func hydrate(remote domain.RemoteStore, local domain.LocalStore, logger *slog.Logger) domain.AppState {
	if remote != nil {
		state, err := remote.Load(context.Background())
		switch {
		case err != nil:
			logger.Warn("remote load failed, using local cache", "error", err)
		case state != nil:
			logger.Info("state loaded from remote")
			return *state
		default:
			logger.Info("remote empty, using local cache")
		}
	}
	return local.Load()
}

func openArchiver(ctx context.Context, cfg config.SnapshotsConfig) (*snapshot.Archiver, error) {
	store, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(cfg.Driver),
		FSRoot: cfg.FSRoot,
		S3: blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return snapshot.NewArchiver(store), nil
}

// multiMetrics fans observations out to every recorder.
type multiMetrics []core.MetricsRecorder

func (m multiMetrics) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, recorder := range m {
		recorder.Observe(ctx, operation, success, duration)
	}
}

func newHandler(svc *core.Service, archiver *snapshot.Archiver, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /v1/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, svc.Effective())
	})
	mux.HandleFunc("GET /v1/status", func(w http.ResponseWriter, _ *http.Request) {
		status, msg := svc.SyncStatus()
		writeJSON(w, http.StatusOK, map[string]string{"status": string(status), "error": msg})
	})
	mux.HandleFunc("POST /v1/update", func(w http.ResponseWriter, r *http.Request) {
		var u domain.Update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, svc.Apply(u))
	})
	mux.HandleFunc("POST /v1/sync/retry", func(w http.ResponseWriter, _ *http.Request) {
		svc.RetrySync()
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("POST /v1/scenarios", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			SourceID    string `json:"sourceId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		var (
			sc  domain.Scenario
			err error
		)
		if req.SourceID != "" {
			sc, err = svc.DuplicateScenario(req.SourceID, req.Name)
		} else {
			sc, err = svc.CreateScenario(req.Name, req.Description)
		}
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, sc)
	})
	mux.HandleFunc("PUT /v1/scenarios/active", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, svc.SwitchScenario(req.ID))
	})
	mux.HandleFunc("DELETE /v1/scenarios/{id}", func(w http.ResponseWriter, r *http.Request) {
		svc.DeleteScenario(r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE /v1/members/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.RemoveTeamMember(r.PathValue("id")))
	})
	mux.HandleFunc("POST /v1/jira/mappings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			WorkItemID string `json:"workItemId"`
			ProjectID  string `json:"projectId"`
			PhaseID    string `json:"phaseId"`
			MemberID   string `json:"memberId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := svc.MapJiraWorkItem(req.WorkItemID, req.ProjectID, req.PhaseID, req.MemberID); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /v1/snapshots", func(w http.ResponseWriter, r *http.Request) {
		info, err := archiver.Export(r.Context(), svc.State())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, info)
	})
	mux.HandleFunc("GET /v1/snapshots", func(w http.ResponseWriter, r *http.Request) {
		infos, err := archiver.List(r.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, infos)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
