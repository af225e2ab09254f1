package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/framecast/framecast/pkg/config"
	"github.com/framecast/framecast/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Monitoring struct {
	conf   config.Monitoring
	server *http.Server
	hub    *Hub
	log    *logger.Logger

	ready chan struct{}
	addr  net.Addr
}

// New creates new monitoring service.
// The hub is optional and serves the live frame stats when enabled.
func New(conf config.Monitoring, hub *Hub, log *logger.Logger) *Monitoring {
	if log == nil {
		log = logger.Nop()
	}
	m := &Monitoring{conf: conf, hub: hub, log: log.Module("monitoring"), ready: make(chan struct{})}
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	m.server.Handler = m.Handler()
	return m
}

func (m *Monitoring) Handler() http.Handler {
	h := http.NewServeMux()
	conf := m.conf

	if conf.ProfilingEnabled {
		prefix := fmt.Sprintf("%s/debug/pprof", conf.URLPrefix)
		m.log.Info().Msgf("Profiling is enabled at %v", m.server.Addr+prefix)
		h.HandleFunc(prefix+"/", pprof.Index)
		h.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
		h.HandleFunc(prefix+"/profile", pprof.Profile)
		h.HandleFunc(prefix+"/symbol", pprof.Symbol)
		h.HandleFunc(prefix+"/trace", pprof.Trace)
		// named profiles under a custom prefix need explicit handlers
		for _, p := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			h.Handle(prefix+"/"+p, pprof.Handler(p))
		}
	}

	if conf.MetricEnabled {
		metricPath := fmt.Sprintf("%s/metrics", conf.URLPrefix)
		m.log.Info().Msgf("Prometheus metric is enabled at %v", m.server.Addr+metricPath)
		h.Handle(metricPath, promhttp.Handler())
	}

	if conf.StatsEnabled && m.hub != nil {
		statsPath := fmt.Sprintf("%s/stats", conf.URLPrefix)
		m.log.Info().Msgf("Frame stats feed is enabled at %v", m.server.Addr+statsPath)
		h.Handle(statsPath, m.hub)
	}
	return h
}

// Run serves until Shutdown is called.
func (m *Monitoring) Run() {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		m.log.Error().Err(err).Msg("monitoring server listen failed")
		close(m.ready)
		return
	}
	m.addr = ln.Addr()
	close(m.ready)
	m.log.Info().Msgf("Starting monitoring server at %v", m.addr)
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error().Err(err).Msg("monitoring server failed")
		}
	}()
}

// Addr waits for the listener and returns its address, nil if it failed.
func (m *Monitoring) Addr() net.Addr {
	<-m.ready
	return m.addr
}

func (m *Monitoring) Shutdown(ctx context.Context) error {
	m.log.Info().Msg("Shutting down monitoring server")
	if m.hub != nil {
		m.hub.Close()
	}
	return m.server.Shutdown(ctx)
}

func (m *Monitoring) String() string {
	return fmt.Sprintf("monitoring::%s:%d", m.conf.URLPrefix, m.conf.Port)
}
