package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/codeforge-app/codeforge/internal/api"
	"github.com/codeforge-app/codeforge/internal/app/codes"
	"github.com/codeforge-app/codeforge/internal/app/engagement"
	"github.com/codeforge-app/codeforge/internal/infra/fetcher"
	"github.com/codeforge-app/codeforge/internal/infra/metrics"
	"github.com/codeforge-app/codeforge/internal/infra/sqlite"
)

// Daemon is the core CodeForge runtime. It wires together all services.
type Daemon struct {
	Config Config
	DB     *sqlite.DB
	Server *api.Server
	cancel context.CancelFunc

	Ledger   *engagement.LedgerService
	Ach      *engagement.AchievementService
	Rank     *engagement.RankService
	Activity *engagement.ActivityService
	Verify   *engagement.VerificationService
	Codes    *codes.Service

	scheduler gocron.Scheduler
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	db, err := sqlite.Open(codeforgeHome())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var mirrors []fetcher.Mirror
	if !cfg.Source.Mirrors {
		mirrors = []fetcher.Mirror{}
	}
	source := fetcher.New(cfg.Source.URL, mirrors)

	d := &Daemon{Config: cfg, DB: db}
	d.Ledger = engagement.NewLedgerService(db)
	d.Ach = engagement.NewAchievementService(db)
	d.Rank = engagement.NewRankService(db)
	d.Activity = engagement.NewActivityService(db, d.Ledger, d.Ach, d.Rank)
	d.Verify = engagement.NewVerificationService(db, d.Ledger, d.Ach)
	d.Codes = codes.NewService(db, source)

	// Mint the profile ID up front so the first API call never races it.
	if _, err := d.Ledger.Profile(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init profile: %w", err)
	}

	srv := api.NewServer(d.Codes)
	srv.SetEngagement(&api.EngagementAPI{
		DB:       db,
		Ledger:   d.Ledger,
		Ach:      d.Ach,
		Rank:     d.Rank,
		Activity: d.Activity,
		Verify:   d.Verify,
	})
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	return d, nil
}

// startScheduler launches the recurring jobs: catalog refresh, rank
// refresh, and the verification due-sweep.
func (d *Daemon) startScheduler(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	d.scheduler = sched

	refreshEvery := parseDuration(d.Config.Source.RefreshInterval, 30*time.Minute)
	_, err = sched.NewJob(
		gocron.DurationJob(refreshEvery),
		gocron.NewTask(func() {
			res, err := d.Codes.Refresh(ctx, time.Now())
			if err != nil {
				log.Printf("[daemon] catalog refresh: %v", err)
				return
			}
			if len(res.NewCodes) > 0 {
				log.Printf("[daemon] catalog refresh via %s: %d new codes", res.Source, len(res.NewCodes))
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("schedule catalog refresh: %w", err)
	}

	rankEvery := parseDuration(d.Config.Engagement.RankRefreshInterval, 15*time.Minute)
	_, err = sched.NewJob(
		gocron.DurationJob(rankEvery),
		gocron.NewTask(func() {
			profile, err := d.Ledger.Profile()
			if err != nil {
				log.Printf("[daemon] rank refresh: %v", err)
				return
			}
			if _, err := d.Rank.Refresh(profile); err != nil {
				log.Printf("[daemon] rank refresh: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("schedule rank refresh: %w", err)
	}

	sweepEvery := parseDuration(d.Config.Engagement.SweepInterval, time.Minute)
	_, err = sched.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(func() {
			transitions, err := d.Verify.ResolveDue(time.Now())
			if err != nil {
				log.Printf("[daemon] verification sweep: %v", err)
				return
			}
			for _, tr := range transitions {
				metrics.VerificationTransitions.WithLabelValues(string(tr.Platform), string(tr.Status)).Inc()
				log.Printf("[daemon] verification %s -> %s", tr.Platform, tr.Status)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("schedule verification sweep: %w", err)
	}

	sched.Start()
	return nil
}

// Serve starts the HTTP server and the background jobs, blocking until
// shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.startScheduler(ctx); err != nil {
		return err
	}

	// Warm the catalog so the first page load is not a cold fetch. An
	// offline source is fine here; the fallback chain covers it.
	go func() {
		if _, err := d.Codes.Refresh(ctx, time.Now()); err != nil {
			log.Printf("[daemon] initial catalog refresh: %v", err)
		}
	}()

	// Apply any verification transitions missed while the daemon was
	// down before the first sweep tick fires.
	if _, err := d.Verify.ResolveDue(time.Now()); err != nil {
		log.Printf("[daemon] startup verification sweep: %v", err)
	}

	// Draw a fresh rank now; the scheduled job only fires after its
	// first full interval.
	if profile, err := d.Ledger.Profile(); err != nil {
		log.Printf("[daemon] startup rank refresh: %v", err)
	} else if _, err := d.Rank.Refresh(profile); err != nil {
		log.Printf("[daemon] startup rank refresh: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if d.scheduler != nil {
			_ = d.scheduler.Shutdown()
		}
		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("CodeForge serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.scheduler != nil {
		_ = d.scheduler.Shutdown()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
