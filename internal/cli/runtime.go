package cli

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rshade/cvindex/internal/acquire"
	"github.com/rshade/cvindex/internal/cache"
	"github.com/rshade/cvindex/internal/cart"
	"github.com/rshade/cvindex/internal/config"
	"github.com/rshade/cvindex/internal/logging"
	"github.com/rshade/cvindex/internal/remote"
	"github.com/rshade/cvindex/internal/scoring"
	"github.com/rshade/cvindex/internal/session"
)

// runtime is everything one command invocation talks to.
type runtime struct {
	cfg     *config.Config
	client  *remote.Client
	files   *cache.FileStore
	store   *cart.Store
	orch    *scoring.Orchestrator
	session *session.Session
	pipe    *acquire.Pipeline
	logger  zerolog.Logger
}

type runtimeOptions struct {
	noCache    bool
	dispatcher session.Dispatcher
	notify     func(acquire.Notice)
}

// newRuntime validates cfg and wires the remote client, lookup cache, cart,
// orchestrator, session and acquisition pipeline.
func newRuntime(ctx context.Context, cfg *config.Config, opts runtimeOptions) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := *logging.FromContext(ctx)

	client := remote.NewClient(remote.Options{
		Endpoints: cfg.Endpoints(),
		Timeout:   cfg.Timeout(),
		Logger:    log,
	})

	rt := &runtime{cfg: cfg, client: client, logger: log}

	var pipeOpts []acquire.Option
	pipeOpts = append(pipeOpts, acquire.WithLogger(log))
	if opts.notify != nil {
		pipeOpts = append(pipeOpts, acquire.WithNotifier(opts.notify))
	}
	if cfg.Cache.Enabled && !opts.noCache {
		fs, err := cache.NewFileStore(cfg.Cache.Directory, true, cfg.Cache.TTLSeconds)
		if err != nil {
			log.Warn().Err(err).Msg("lookup cache unavailable, continuing without it")
		} else {
			rt.files = fs
			pipeOpts = append(pipeOpts, acquire.WithLookupCache(cache.NewLookupCache(fs, log)))
		}
	}

	rt.store = cart.NewStore(cart.WithLogger(log))
	rt.orch = scoring.NewOrchestrator(client, log)

	sessOpts := []session.Option{
		session.WithAnchors(cfg.Anchors.Cart, cfg.Anchors.Item),
		session.WithLogger(log),
		session.WithContext(ctx),
	}
	if opts.dispatcher != nil {
		sessOpts = append(sessOpts, session.WithDispatcher(opts.dispatcher))
	}
	rt.session = session.New(rt.store, rt.orch, sessOpts...)
	rt.pipe = acquire.New(client, client, rt.session, pipeOpts...)
	return rt, nil
}

func (rt *runtime) Close() {
	rt.session.Close()
}

// latestDispatcher holds back scoring requests so a batch of cart edits
// costs one remote call. Only the newest request per target is kept.
type latestDispatcher struct {
	mu      sync.Mutex
	pending map[scoring.Target]scoring.Request
}

func newLatestDispatcher() *latestDispatcher {
	return &latestDispatcher{pending: make(map[scoring.Target]scoring.Request)}
}

func (d *latestDispatcher) Dispatch(req scoring.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[req.Target] = req
}

// Flush runs the held requests through the session, cart first.
func (d *latestDispatcher) Flush(ctx context.Context, s *session.Session) {
	d.mu.Lock()
	pending := d.pending
	d.pending = make(map[scoring.Target]scoring.Request)
	d.mu.Unlock()

	for _, target := range []scoring.Target{scoring.TargetCart, scoring.TargetItem} {
		if req, ok := pending[target]; ok {
			s.Run(ctx, req)
		}
	}
}

// healthTargets names every configured service and the health URL on its
// origin. Services on the same origin share one probe.
func healthTargets(cfg *config.Config) []remote.HealthTarget {
	eps := cfg.Endpoints()
	services := []struct{ name, url string }{
		{"score", eps.Score},
		{"ocr", eps.OCR},
		{"lookup", eps.Lookup},
	}
	fallback := cfg.HealthURL()
	targets := make([]remote.HealthTarget, 0, len(services))
	for _, s := range services {
		targets = append(targets, remote.HealthTarget{Name: s.name, URL: originHealthURL(s.url, cfg.Services.HealthPath, fallback)})
	}
	return targets
}

func originHealthURL(endpoint, healthPath, fallback string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fallback
	}
	base := url.URL{Scheme: u.Scheme, Host: u.Host}
	ref, err := url.Parse(healthPath)
	if err != nil {
		return fallback
	}
	return base.ResolveReference(ref).String()
}
