package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentProbes bounds concurrent health checks.
const maxConcurrentProbes = 4

// HealthTarget is one service to probe.
type HealthTarget struct {
	Name string
	URL  string
}

// HealthReport is the outcome of probing one target.
type HealthReport struct {
	Name    string        `json:"name"`
	URL     string        `json:"url"`
	Healthy bool          `json:"healthy"`
	Status  string        `json:"status,omitempty"`
	Version string        `json:"version,omitempty"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

// Prober checks service liveness. It is not part of the scoring path.
type Prober struct {
	client     *Client
	minVersion *semver.Constraints
}

// NewProber creates a Prober. minVersion, when non-empty, is a semver
// version the reported service version must be at least.
func NewProber(client *Client, minVersion string) (*Prober, error) {
	p := &Prober{client: client}
	if minVersion == "" {
		return p, nil
	}
	c, err := semver.NewConstraint(">= " + minVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum service version %q: %w", minVersion, err)
	}
	p.minVersion = c
	return p, nil
}

// Probe checks a single target.
func (p *Prober) Probe(ctx context.Context, target HealthTarget) HealthReport {
	report := HealthReport{Name: target.Name, URL: target.URL}
	start := time.Now()
	resp, err := p.client.Health(ctx, target.URL)
	report.Latency = time.Since(start)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.Status = resp.Status
	report.Version = resp.Version
	report.Healthy = isHealthyStatus(resp.Status)
	if !report.Healthy {
		report.Error = fmt.Sprintf("service reported status %q", resp.Status)
		return report
	}

	if p.minVersion != nil && resp.Version != "" {
		v, verErr := semver.NewVersion(resp.Version)
		if verErr != nil {
			report.Healthy = false
			report.Error = fmt.Sprintf("invalid service version %q: %v", resp.Version, verErr)
			return report
		}
		if !p.minVersion.Check(v) {
			report.Healthy = false
			report.Error = fmt.Sprintf("service version %s does not satisfy %s", v, p.minVersion)
		}
	}
	return report
}

// ProbeAll checks every target concurrently. Targets sharing a URL are
// probed once. Reports are sorted by name.
func (p *Prober) ProbeAll(ctx context.Context, targets []HealthTarget) []HealthReport {
	byURL := make(map[string][]string)
	var urls []string
	for _, t := range targets {
		if _, seen := byURL[t.URL]; !seen {
			urls = append(urls, t.URL)
		}
		byURL[t.URL] = append(byURL[t.URL], t.Name)
	}

	var mu sync.Mutex
	reports := make([]HealthReport, 0, len(targets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for _, url := range urls {
		names := byURL[url]
		g.Go(func() error {
			r := p.Probe(gCtx, HealthTarget{Name: strings.Join(names, ","), URL: url})
			mu.Lock()
			for _, name := range names {
				nr := r
				nr.Name = name
				reports = append(reports, nr)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports
}

// AllHealthy reports whether every report is healthy.
func AllHealthy(reports []HealthReport) bool {
	for _, r := range reports {
		if !r.Healthy {
			return false
		}
	}
	return len(reports) > 0
}

func isHealthyStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "ok", "healthy", "up":
		return true
	}
	return false
}
