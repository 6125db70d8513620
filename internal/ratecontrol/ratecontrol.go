package ratecontrol

import (
	"context"
	"os"
	"sync"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Upstream names used by the adapters.
const (
	UpstreamPokeAPI = "pokeapi"
	UpstreamOracle  = "oracle"
	UpstreamWeb     = "web"
)

type config struct {
	RateLimits struct {
		DefaultRPS   float64 `yaml:"default_rps"`
		DefaultBurst int     `yaml:"default_burst"`
		Upstreams    map[string]struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"upstreams"`
	} `yaml:"rate_limits"`
}

var (
	mu       sync.RWMutex
	limiters = map[string]*rate.Limiter{}
	fallback = rate.NewLimiter(rate.Limit(10), 20)
)

// Load reads the rate-limit file and rebuilds the limiter set. Existing
// limiter instances are retuned in place so in-flight waiters keep working.
// A missing or malformed file leaves the current limits untouched.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	if cfg.RateLimits.DefaultRPS > 0 {
		fallback.SetLimit(rate.Limit(cfg.RateLimits.DefaultRPS))
		if cfg.RateLimits.DefaultBurst > 0 {
			fallback.SetBurst(cfg.RateLimits.DefaultBurst)
		}
	}
	for name, lim := range cfg.RateLimits.Upstreams {
		if lim.RPS <= 0 {
			continue
		}
		burst := lim.Burst
		if burst <= 0 {
			burst = 1
		}
		if existing, ok := limiters[name]; ok {
			existing.SetLimit(rate.Limit(lim.RPS))
			existing.SetBurst(burst)
			continue
		}
		limiters[name] = rate.NewLimiter(rate.Limit(lim.RPS), burst)
	}
	return nil
}

// Wait blocks until the named upstream's budget admits one request, or the
// context is done. Upstreams without an explicit budget share the fallback.
func Wait(ctx context.Context, upstream string) error {
	mu.RLock()
	lim, ok := limiters[upstream]
	if !ok {
		lim = fallback
	}
	mu.RUnlock()
	return lim.Wait(ctx)
}
