package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nareix/joy4/av/avutil"
	"github.com/nareix/joy4/format/rtmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cleoag/llhls"
	"github.com/cleoag/llhls/internal/config"
	"github.com/cleoag/llhls/internal/ingest"
)

// registry maps stream names to their live publishers
type registry struct {
	mu   sync.Mutex
	pubs map[string]*llhls.Publisher
}

func (r *registry) add(name string, pub *llhls.Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubs == nil {
		r.pubs = make(map[string]*llhls.Publisher)
	}
	r.pubs[name] = pub
}

func (r *registry) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pubs, name)
}

func (r *registry) get(name string) *llhls.Publisher {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pubs[name]
}

func main() {
	configPath := flag.String("config", "llhlsd.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	log.Info().Str("config", *configPath).Msg("starting llhlsd")

	reg := prometheus.NewRegistry()
	metrics := llhls.NewMetrics(reg)
	settings := llhls.NewStreamSettings(cfg.SegmentDuration(), cfg.PartDuration())

	streams := &registry{}

	rts := &rtmp.Server{
		Addr: cfg.Server.RTMPAddr,
		HandlePublish: func(c *rtmp.Conn) {
			defer c.Close()
			name := path.Base(c.URL.Path)
			session := uuid.NewString()
			slog := log.With().Str("stream", name).Str("session", session).Logger()
			if streams.get(name) != nil {
				slog.Warn().Msg("stream name already live, rejecting publish")
				return
			}
			slog.Info().Str("remote", c.NetConn().RemoteAddr().String()).Msg("publish started")
			pub := &llhls.Publisher{
				Settings:   settings,
				WindowSize: cfg.Stream.WindowSize,
				Log:        slog,
				Metrics:    metrics,
			}
			streams.add(name, pub)
			defer func() {
				streams.remove(name)
				pub.Close()
				metrics.FrameRate.DeleteLabelValues(name)
				slog.Info().Msg("publish ended")
			}()
			in := ingest.New(pub, settings, slog)
			in.Rate = metrics.FrameRate.WithLabelValues(name)
			if err := avutil.CopyFile(in, c); err != nil {
				slog.Error().Err(err).Msg("ingest failed")
			}
		},
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/live/:name/*filepath", func(c *gin.Context) {
		pub := streams.get(c.Param("name"))
		if pub == nil {
			c.Status(http.StatusNotFound)
			return
		}
		pub.ServeHTTP(c.Writer, c.Request)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: router,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var eg errgroup.Group
	eg.Go(rts.ListenAndServe)
	eg.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("serving LL-HLS")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		log.Info().Str("addr", metricsServer.Addr).Msg("serving metrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
		metricsServer.Shutdown(shutdownCtx)
		return nil
	})

	if err := eg.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w = os.Stderr
	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
