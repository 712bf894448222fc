package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/redirrelay/internal/config"
	"github.com/die-net/redirrelay/internal/conn"
	"github.com/die-net/redirrelay/internal/dialer"
	"github.com/die-net/redirrelay/internal/metrics"
	"github.com/die-net/redirrelay/internal/tproxy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("redirrelay", pflag.ContinueOnError)
	var (
		configPath   = fs.String("config", "", "YAML config file. Flags given on the command line override it.")
		listen       = fs.StringP("listen", "l", "", "Listen address (e.g. 0.0.0.0:12345), or a port to listen on 127.0.0.1")
		mark         = fs.Uint32P("mark", "m", 0, "Routing mark (SO_MARK) for outbound connections. Unset leaves them unmarked.")
		transparent  = fs.Bool("transparent", false, "Listen with IP_TRANSPARENT for TPROXY rules instead of REDIRECT")
		dialTimeout  = fs.Duration("dial-timeout", 0, "Timeout for the outbound TCP connect (0 uses the OS default)")
		idleTimeout  = fs.Duration("idle-timeout", 0, "Close a relayed connection after this long without data (0 disables)")
		tcpKeepAlive = fs.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		debugListen  = fs.String("debug-listen", "", "Debug HTTP listen address exposing /metrics and /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")
	)

	if !tproxy.IsSupported {
		_ = fs.MarkHidden("transparent")
	}

	fs.SortFlags = false
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "mark":
			cfg.Mark = mark
		case "transparent":
			cfg.Transparent = *transparent
		case "dial-timeout":
			cfg.DialTimeout = *dialTimeout
		case "idle-timeout":
			cfg.IdleTimeout = *idleTimeout
		case "tcp-keepalive":
			cfg.TCPKeepAlive = *tcpKeepAlive
		case "debug-listen":
			cfg.DebugListen = *debugListen
		}
	})

	if err := cfg.Validate(); err != nil {
		return err
	}
	listenAddr, err := config.ParseListenTarget(cfg.Listen)
	if err != nil {
		return fmt.Errorf("invalid --listen: %w", err)
	}
	ka, err := config.ParseTCPKeepAlive(cfg.TCPKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}
	if cfg.Mark != nil && !dialer.MarkSupported {
		return errors.New("--mark is only supported on linux")
	}

	dialCfg := dialer.Config{
		DialTimeout: cfg.DialTimeout,
		KeepAlive:   ka,
	}
	if cfg.Mark != nil {
		dialCfg.Mark = *cfg.Mark
		dialCfg.HasMark = true
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srvCfg := tproxy.Config{
		Dialer:      dialer.NewDirectDialer(dialCfg),
		Resolver:    tproxy.NATResolver{},
		Events:      tproxy.NewStdLogger(stdout),
		Metrics:     metrics.New(reg),
		IdleTimeout: cfg.IdleTimeout,
	}

	var ln net.Listener
	if cfg.Transparent {
		ln, err = tproxy.ListenTransparentTCP(ctx, listenAddr, ka)
		srvCfg.Resolver = tproxy.LocalAddrResolver{Listen: listenAddr}
	} else {
		ln, err = conn.ListenTCP(ctx, listenAddr, ka)
	}
	if err != nil {
		return &tproxy.Error{Kind: tproxy.KindBind, Err: err}
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.DebugListen != "" {
		debugSrv := &http.Server{Handler: debugMux(reg), ReadHeaderTimeout: 10 * time.Second}
		lc := net.ListenConfig{KeepAliveConfig: ka}
		debugLn, err := lc.Listen(ctx, "tcp", cfg.DebugListen)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Printf("debug listening on %s", debugLn.Addr())
	}

	srv := tproxy.NewServer(ctx, srvCfg)
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		return srv.Serve(ln)
	})
	log.Printf("relay listening on %s", ln.Addr())

	err = g.Wait()

	log.Print("shutting down")
	return err
}

func debugMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
