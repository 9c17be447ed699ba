package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sitekeeper/internal/client/capture"
	"github.com/dmitrijs2005/sitekeeper/internal/client/client"
	"github.com/dmitrijs2005/sitekeeper/internal/client/config"
	"github.com/dmitrijs2005/sitekeeper/internal/client/labels"
	"github.com/dmitrijs2005/sitekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sitekeeper/internal/client/services"
	"github.com/dmitrijs2005/sitekeeper/internal/filex"
	"github.com/dmitrijs2005/sitekeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config *config.Config
	log    logging.Logger
	db     *sql.DB

	api       client.Client
	session   *services.Session
	inventory *services.Inventory
	checkout  *services.Checkout
	materials *services.Materials
	assets    *services.Assets
	device    capture.Device

	reader *bufio.Reader
	out    io.Writer

	modeMu sync.RWMutex
	mode   Mode
}

// deps are the collaborators an App is assembled from.
type deps struct {
	api    client.Client
	store  services.CredentialStore
	labels services.LabelSink
	device capture.Device
	in     io.Reader
	out    io.Writer
}

// NewApp opens the local database under cfg.DataDir and wires every
// service against the configured backend.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	sink, err := newLabelSink(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a, err := newApp(cfg, log, deps{
		api:    client.NewHTTPClient(cfg.ServerBaseURL, cfg.Collection, cfg.RequestTimeout, log),
		store:  metadata.NewCredentialStore(db),
		labels: sink,
		device: capture.ExecDevice{Command: cfg.RecorderCommand},
		in:     os.Stdin,
		out:    os.Stdout,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.db = db
	return a, nil
}

func newLabelSink(ctx context.Context, cfg *config.Config) (services.LabelSink, error) {
	if cfg.LabelBucket == "" {
		return labels.NewFileSink(cfg.LabelDir), nil
	}
	sink, err := labels.NewS3Sink(ctx, labels.S3Options{
		Bucket:       cfg.LabelBucket,
		Prefix:       cfg.LabelPrefix,
		Region:       cfg.S3Region,
		Endpoint:     cfg.S3Endpoint,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		UsePathStyle: cfg.S3UsePathMode,
	})
	if err != nil {
		return nil, fmt.Errorf("label bucket: %w", err)
	}
	return sink, nil
}

func newApp(cfg *config.Config, log logging.Logger, d deps) (*App, error) {
	variant, err := cfg.Variant()
	if err != nil {
		return nil, err
	}

	session := services.NewSession(d.api, d.store, log)
	inv := services.NewInventory(d.api, session, variant, cfg.PerPage, log)

	return &App{
		config:    cfg,
		log:       log.With("module", "cli"),
		api:       d.api,
		session:   session,
		inventory: inv,
		checkout:  services.NewCheckout(d.api, session, inv, cfg.DefaultCheckoutLocation, log),
		materials: services.NewMaterials(d.api, session, inv, log),
		assets:    services.NewAssets(d.api, session, inv, d.labels, log),
		device:    d.device,
		reader:    bufio.NewReader(d.in),
		out:       d.out,
	}, nil
}

// Run restores the session, starts the connectivity watcher and blocks in
// the REPL until the user exits or ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.session.Init(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Welcome to SiteKeeper (type 'help' for commands)")
	if u, ok := a.session.User(); ok {
		fmt.Fprintf(a.out, "Signed in as %s (%s)\n", u.Username, u.Role)
		_ = a.List(ctx, nil)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

// Close drops in-flight results and closes the local database.
func (a *App) Close() {
	a.inventory.Close()
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.Authenticated()
}

func (a *App) Mode() Mode {
	a.modeMu.RLock()
	defer a.modeMu.RUnlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.log.Info(ctx, "connectivity changed", "mode", mode)
	}
}

func (a *App) getStatus() string {
	var parts []string
	if u, ok := a.session.User(); ok {
		parts = append(parts, u.Username)
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// StartOnlineStatusWatcher pings the backend every interval and flips the
// prompt between online and offline until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.api.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}
