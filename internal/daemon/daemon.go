package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sskkslay-netizen/Bst/internal/api"
	"github.com/sskkslay-netizen/Bst/internal/app/catalog"
	"github.com/sskkslay-netizen/Bst/internal/app/gacha"
	"github.com/sskkslay-netizen/Bst/internal/app/game"
	"github.com/sskkslay-netizen/Bst/internal/app/store"
	"github.com/sskkslay-netizen/Bst/internal/domain"
	"github.com/sskkslay-netizen/Bst/internal/infra/ai"
	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
	"github.com/sskkslay-netizen/Bst/internal/infra/redisstore"
	"github.com/sskkslay-netizen/Bst/internal/infra/sqlite"
)

// ─── Runtime ────────────────────────────────────────────────────────────────

// Daemon is a fully wired BST runtime. The CLI builds one per command; the
// serve command keeps it running behind the HTTP server.
type Daemon struct {
	Config  Config
	Home    string
	Log     *observability.Logger
	Game    *game.Service
	Journal *observability.Journal

	blobs   domain.BlobStore
	watcher *catalog.Watcher
}

// New opens the store, loads the save and merges the custom catalog.
func New(ctx context.Context, home string, cfg Config, log *observability.Logger) (*Daemon, error) {
	if log == nil {
		log = observability.NopLogger()
	}
	blobs, err := openBlobs(ctx, home, cfg)
	if err != nil {
		return nil, err
	}

	var rng domain.RandomSource
	if cfg.Game.Seed != 0 {
		rng = gacha.NewSeededRNG(cfg.Game.Seed)
	}

	var aiSvc ai.Service = ai.Offline{}
	if cfg.AI.APIKey != "" {
		aiSvc = ai.New(cfg.GeminiConfig(), log)
	} else {
		log.Warn("no AI key configured, study generation and chat use offline fallbacks")
	}

	journal := observability.NewJournal(observability.DefaultJournalConfig())
	st := store.New(blobs, store.Options{
		AdminEmail: cfg.Game.AdminEmail,
		Logger:     log,
	})
	svc, err := game.New(ctx, game.Options{
		Store: st,
		Gacha: gacha.Options{
			HardPity:        cfg.Game.HardPity,
			EquipmentChance: cfg.Game.EquipmentChance,
		},
		AI:      aiSvc,
		RNG:     rng,
		Journal: journal,
		Logger:  log,
	})
	if err != nil {
		_ = blobs.Close()
		return nil, fmt.Errorf("load game: %w", err)
	}

	d := &Daemon{
		Config:  cfg,
		Home:    home,
		Log:     log,
		Game:    svc,
		Journal: journal,
		blobs:   blobs,
	}
	d.loadCustomCatalog()
	return d, nil
}

func openBlobs(ctx context.Context, home string, cfg Config) (domain.BlobStore, error) {
	switch cfg.Storage.Driver {
	case DriverRedis:
		rc := cfg.Storage.Redis
		rc.MaxBytes = cfg.MaxBytes()
		s, err := redisstore.Open(ctx, rc)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	default:
		db, err := sqlite.Open(home)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		db.SetMaxBytes(cfg.MaxBytes())
		return db, nil
	}
}

// loadCustomCatalog merges the custom catalog file once at startup.
func (d *Daemon) loadCustomCatalog() {
	path := d.Config.Catalog.CustomPath
	if path == "" {
		return
	}
	c, err := catalog.LoadFile(path, time.Now())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.Log.Warn("custom catalog ignored", "path", path, "error", err)
		}
		return
	}
	d.Game.ApplyCatalog(c)
}

// WatchCatalog reloads the custom catalog whenever the file changes.
func (d *Daemon) WatchCatalog(ctx context.Context) error {
	if !d.Config.Catalog.Watch || d.Config.Catalog.CustomPath == "" {
		return nil
	}
	w, err := catalog.Watch(ctx, d.Config.Catalog.CustomPath, d.Log, d.Game.ApplyCatalog)
	if err != nil {
		return err
	}
	d.watcher = w
	return nil
}

// Handler builds the HTTP API over the game.
func (d *Daemon) Handler() http.Handler {
	srv := api.NewServer(d.Game, d.Log)
	if d.Config.API.Metrics {
		srv.EnableMetrics()
	}
	if t, err := parseDuration(d.Config.API.Timeout, 0); err == nil {
		srv.SetTimeout(t)
	}
	return srv.Handler()
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down
// gracefully.
func (d *Daemon) Serve(ctx context.Context) error {
	if err := d.WatchCatalog(ctx); err != nil {
		d.Log.Warn("catalog watcher not started", "error", err)
	}

	httpSrv := &http.Server{
		Addr:              d.Config.Addr(),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		d.Log.Info("BST API listening", "addr", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d.Log.Info("shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}

// Close stops the watcher and closes the store.
func (d *Daemon) Close() error {
	var errs []error
	if d.watcher != nil {
		errs = append(errs, d.watcher.Close())
	}
	errs = append(errs, d.blobs.Close())
	return errors.Join(errs...)
}
