// Package app wires the store, broker, cache, and services into one process
// and serves the websocket change stream.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ashfall-games/fatetable/internal/api/ws"
	"github.com/ashfall-games/fatetable/internal/cache"
	"github.com/ashfall-games/fatetable/internal/domain/table"
	"github.com/ashfall-games/fatetable/internal/platform/config"
	"github.com/ashfall-games/fatetable/internal/services/ledger"
	svctable "github.com/ashfall-games/fatetable/internal/services/table"
	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/storage/sqlite"
	"github.com/ashfall-games/fatetable/internal/watch"
)

// Config holds server configuration.
type Config struct {
	Port      int    `env:"FATETABLE_PORT" envDefault:"8080"`
	Addr      string `env:"FATETABLE_ADDR"`
	DBPath    string `env:"FATETABLE_DB_PATH" envDefault:"fatetable.db"`
	SessionID string `env:"FATETABLE_SESSION_ID" envDefault:"table"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The server listen address (overrides -port)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.SessionID, "session", cfg.SessionID, "Game session identifier")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// App is the assembled server: store, broker, cache, services, HTTP surface.
type App struct {
	Store  *sqlite.Store
	Broker *watch.Broker
	Cache  *cache.Cache
	Ledger *ledger.Service
	Table  *svctable.Service

	cfg     Config
	handler http.Handler
}

// New opens the store and assembles the runtime. The configured game session
// is created on first run.
func New(cfg Config) (*App, error) {
	broker := watch.NewBroker()

	store, err := sqlite.Open(cfg.DBPath, sqlite.WithPublisher(broker))
	if err != nil {
		broker.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	ctx := context.Background()
	if _, err := store.GetSession(ctx, cfg.SessionID); errors.Is(err, storage.ErrNotFound) {
		if err := store.PutSession(ctx, table.GameSession{ID: cfg.SessionID}); err != nil {
			store.Close()
			broker.Close()
			return nil, fmt.Errorf("create session: %w", err)
		}
	} else if err != nil {
		store.Close()
		broker.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	a := &App{
		Store:  store,
		Broker: broker,
		Cache:  cache.New(store, broker, cfg.SessionID),
		Ledger: ledger.New(store, cfg.SessionID),
		Table:  svctable.New(store, cfg.SessionID),
		cfg:    cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.NewHandler(broker, nil).Handle)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	a.handler = mux

	return a, nil
}

// Handler exposes the HTTP surface, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves until ctx is cancelled, then shuts down and releases the store
// and broker.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", a.cfg.Port)
	}

	cacheCtx, stopCache := context.WithCancel(ctx)
	defer stopCache()
	go func() {
		if err := a.Cache.Run(cacheCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("cache stopped: %v", err)
		}
	}()

	srv := &http.Server{Addr: addr, Handler: a.handler}
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.close()
		return err
	case err := <-errc:
		a.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) close() {
	a.Broker.Close()
	if err := a.Store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
}
