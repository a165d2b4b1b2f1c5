package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/url"
	"os"

	"github.com/mhadley/receiptvault/internal/client/auth"
	"github.com/mhadley/receiptvault/internal/client/config"
	"github.com/mhadley/receiptvault/internal/client/imagecache"
	"github.com/mhadley/receiptvault/internal/client/jobs"
	"github.com/mhadley/receiptvault/internal/client/remote"
	"github.com/mhadley/receiptvault/internal/client/services"
	"github.com/mhadley/receiptvault/internal/client/store"
	"github.com/mhadley/receiptvault/internal/client/uploader"
	"github.com/mhadley/receiptvault/internal/filex"
	"github.com/mhadley/receiptvault/internal/logging"
	"github.com/mhadley/receiptvault/internal/netx"
)

type App struct {
	config   *config.Config
	db       *sql.DB
	session  *auth.Session
	receipts *services.ReceiptService
	cards    *services.LoyaltyService
	sched    *jobs.SQLiteScheduler
	reader   *bufio.Reader
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	cacheDir, err := filex.EnsureDir(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	s3store, err := remote.NewS3Store(ctx, remote.Options{
		BaseEndpoint: cfg.S3Endpoint,
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		AccessKey:    cfg.S3AccessKeyID,
		SecretKey:    cfg.S3SecretAccessKey,
	}, logger)
	if err != nil {
		return nil, err
	}

	session := &auth.Session{}
	if err := session.SignInFromFile(cfg.TokenPath); err != nil {
		log.Printf("could not restore session: %s", err.Error())
	}

	st := store.New(db, logger)
	tracker := imagecache.New(cacheDir, s3store.Blobs(), logger)

	worker := uploader.NewWorker(st, s3store, s3store.Blobs(), session, logger)
	sched := jobs.NewSQLiteScheduler(db, worker, netx.NewDialProber(probeAddr(cfg), 0), cfg.JobPollInterval, logger)

	receipts := services.NewReceiptService(st, s3store, s3store.Blobs(), tracker, sched, session, logger)
	cards := services.NewLoyaltyService(st, logger)

	return &App{
		config:   cfg,
		db:       db,
		session:  session,
		receipts: receipts,
		cards:    cards,
		sched:    sched,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// probeAddr derives the connectivity probe target, preferring the explicit
// setting and falling back to the S3 endpoint host.
func probeAddr(cfg *config.Config) string {
	if cfg.OnlineCheckAddr != "" {
		return cfg.OnlineCheckAddr
	}
	if u, err := url.Parse(cfg.S3Endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return cfg.S3Endpoint
}

// Run loads the cached collections, starts the job scheduler, kicks off a
// background remote pull, and enters the command loop. It returns when the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.db.Close()

	if err := a.receipts.LoadCached(ctx); err != nil {
		return err
	}
	if err := a.cards.LoadCached(ctx); err != nil {
		return err
	}

	go a.sched.Run(ctx)
	go a.receipts.LoadFromRemote(ctx)

	a.Root(ctx)
	return nil
}

func (a *App) isSignedIn() bool {
	return a.session.OwnerID() != ""
}
