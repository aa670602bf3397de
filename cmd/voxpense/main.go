package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/config"

	vxconfig "github.com/voxpense/voxpense/config"
	"github.com/voxpense/voxpense/internal/capture"
	captureapi "github.com/voxpense/voxpense/internal/capture/api"
	"github.com/voxpense/voxpense/internal/httputil"
	"github.com/voxpense/voxpense/internal/ledger"
	"github.com/voxpense/voxpense/internal/notify"
	"github.com/voxpense/voxpense/pkg/events"
	"github.com/voxpense/voxpense/pkg/transcript"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadWithOIDC[vxconfig.CaptureConfig](ctx)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	eventRef := cfg.GetEventsQueueName()
	eventURL := cfg.GetEventsQueueURL()

	ctx, srv := frame.NewService(
		frame.WithConfig(&cfg),
		frame.WithName("voxpense"),
		frame.WithRegisterServerOauth2Client(),
		frame.WithDatastore(),
		frame.WithRegisterPublisher(eventRef, eventURL),
	)
	defer srv.Stop(ctx)

	pool, err := srv.WorkManager().GetPool()
	if err != nil {
		log.Fatalf("getting worker pool: %v", err)
	}

	authenticator := srv.SecurityManager().GetAuthenticator(ctx)

	pub := events.NewPublisher(srv.QueueManager(), "voxpense", eventRef)

	repo := ledger.NewRepository(
		srv.DatastoreManager().GetPool(ctx, "__default__pool_name__"),
	)
	adder := ledger.NewAdder(repo, pub)

	// Vocabulary profiles are optional; the built-in vocabulary covers
	// captures when the directory is absent or fails to load.
	var (
		loader   *transcript.Loader
		profiles capture.ProfileSource
	)
	if cfg.VocabDir != "" {
		l := transcript.NewLoader(cfg.VocabDir)
		if _, err := l.LoadAll(); err != nil {
			slog.Warn("vocabulary profiles unavailable",
				slog.String("dir", cfg.VocabDir),
				slog.String("error", err.Error()))
		} else {
			loader = l
			profiles = l
			l.OnReload = func(names []string) {
				if err := pub.Emit(ctx, events.VocabReloaded, "", events.VocabReloadedData{Profiles: names}); err != nil {
					slog.Warn("vocab.reloaded emit failed", slog.String("error", err.Error()))
				}
			}
			if cfg.VocabWatch {
				done := make(chan struct{})
				defer close(done)
				go func() {
					if err := l.WatchAndReload(done); err != nil {
						slog.Warn("vocabulary watcher exited", slog.String("error", err.Error()))
					}
				}()
			}
		}
	}

	notifySecret := cfg.NotifySecret
	if notifySecret == "" && len(cfg.SinkURLs()) > 0 {
		notifySecret, err = notify.GenerateSecret()
		if err != nil {
			log.Fatalf("generating notify secret: %v", err)
		}
		slog.Info("generated ephemeral sink signing secret; set NOTIFY_SECRET to pin it")
	}
	notifier := notify.NewNotifier(notify.Config{
		SinkURLs:          cfg.SinkURLs(),
		Secret:            notifySecret,
		MaxRetries:        cfg.NotifyMaxRetries,
		TimeoutSec:        cfg.NotifyTimeoutSec,
		BackoffInitialSec: cfg.NotifyBackoffSec,
		BackoffMaxSec:     cfg.NotifyBackoffMax,
		CBFailThreshold:   cfg.CBFailThreshold,
		CBResetTimeoutSec: cfg.CBResetTimeoutSec,
		AllowLocalSinks:   cfg.NotifyAllowLocal,
	}, pool)
	subscriber := &notify.Subscriber{Notifier: notifier}

	mgr, err := capture.NewManager(ctx, capture.ManagerConfig{
		DefaultLanguage: cfg.DefaultLanguage,
		Continuous:      cfg.ContinuousCapture,
		InterimResults:  cfg.InterimResults,
		DefaultProfile:  cfg.DefaultProfile,
		MaxCaptures:     cfg.MaxCaptures,
	}, pub, pool, profiles, adder)
	if err != nil {
		log.Fatalf("creating capture manager: %v", err)
	}
	defer mgr.CloseAll(ctx)

	handler := captureapi.NewHandler(mgr, repo, pub, loader, notifier)
	restMux := http.NewServeMux()
	handler.RegisterRoutes(restMux)

	mux := http.NewServeMux()
	mux.Handle("/api/", httputil.AuthenticatedMiddleware(httputil.RequestLogger(restMux), authenticator))

	srv.Init(ctx,
		frame.WithRegisterSubscriber(eventRef+".sinks", eventURL, subscriber),
		frame.WithHTTPHandler(httputil.H2CHandler(mux)),
	)

	if err := srv.Run(ctx, ""); err != nil {
		log.Fatalf("service exited: %v", err)
	}
}
