package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tstated/internal/common/fsutil"
	"tstated/internal/config"
	"tstated/internal/cputopo"
	"tstated/internal/daemon"
	"tstated/internal/httpapi"
	"tstated/internal/msr"
	"tstated/internal/powerbus"
	"tstated/internal/thermal"
	"tstated/internal/tstate"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := "127.0.0.1:9033"
	if v := os.Getenv("TSTATED_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. 127.0.0.1:9033")
	configPath := flag.String("config", os.Getenv("TSTATED_CONFIG"), "Optional config file (.yaml/.json/.toml); file values override flags")
	sysfsRoot := flag.String("sysfs-root", "", "sysfs mount point (default /sys)")
	msrDevRoot := flag.String("msr-dev-root", "", "msr device node root (default /dev/cpu)")
	fileRegDir := flag.String("file-register-dir", "", "Back the register with plain files in this dir instead of msr nodes (dev/testing)")
	registerAddr := flag.String("register-addr", "0x19a", "MSR number of the throttle-state register")
	logLevel := flag.String("log-level", envOr("TSTATED_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	flag.Parse()

	cfg := config.Config{
		Addr:            *addr,
		SysfsRoot:       *sysfsRoot,
		MSRDevRoot:      *msrDevRoot,
		FileRegisterDir: *fileRegDir,
		RegisterAddr:    *registerAddr,
		LogLevel:        *logLevel,
	}
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = merge(cfg, fileCfg)
	}

	logger := zerolog.New(os.Stderr).Level(parseLevel(cfg.LogLevel)).With().Timestamp().Logger()
	httpapi.SetLogger(logger)
	if cfg.CORS.Enabled {
		httpapi.SetCORSOptions(true, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	}

	regAddr, err := config.ParseRegisterAddr(cfg.RegisterAddr)
	if err != nil {
		log.Fatalf("invalid register address: %v", err)
	}

	topo, err := cputopo.New(cfg.SysfsRoot, logger)
	if err != nil {
		log.Fatalf("failed to read cpu topology: %v", err)
	}

	var reg msr.Register
	if cfg.FileRegisterDir != "" {
		dir, err := fsutil.ExpandHome(cfg.FileRegisterDir)
		if err != nil {
			log.Fatalf("invalid file register dir: %v", err)
		}
		reg = msr.NewFileRegister(dir)
	} else {
		reg = msr.NewDevice(cfg.MSRDevRoot, regAddr)
	}

	bus := powerbus.New(logger)
	comp := tstate.New(tstate.Config{Topology: topo, Register: reg, Log: logger})
	if err := comp.Attach(bus); err != nil {
		// The daemon still serves status and accepts transitions; only the
		// compensation itself is inert.
		if errors.Is(err, msr.ErrUnsupported) {
			logger.Info().Err(err).Msg("throttle register unsupported; compensation disabled")
		} else {
			logger.Error().Err(err).Msg("compensator attach failed; compensation disabled")
		}
	}

	notifier := thermal.New(thermal.Config{
		Bus:     bus,
		Log:     logger,
		Refresh: topo.Refresh,
		Reevaluate: func() {
			// Zone governors are external; they are notified after the bus
			// has drained, so they see corrected register state.
			logger.Debug().Msg("thermal re-evaluation point reached")
		},
	})

	d := daemon.New(topo, comp, notifier)
	mux := httpapi.NewMux(d)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Bool("register_supported", comp.Attached()).Msg("tstated listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// merge overlays non-zero file values onto the flag-derived config.
func merge(base, file config.Config) config.Config {
	if file.Addr != "" {
		base.Addr = file.Addr
	}
	if file.SysfsRoot != "" {
		base.SysfsRoot = file.SysfsRoot
	}
	if file.MSRDevRoot != "" {
		base.MSRDevRoot = file.MSRDevRoot
	}
	if file.FileRegisterDir != "" {
		base.FileRegisterDir = file.FileRegisterDir
	}
	if file.RegisterAddr != "" {
		base.RegisterAddr = file.RegisterAddr
	}
	if file.LogLevel != "" {
		base.LogLevel = file.LogLevel
	}
	if file.CORS.Enabled {
		base.CORS = file.CORS
	}
	return base
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
