package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/tgate/dataviewer/internal/config"
	"github.com/tgate/dataviewer/internal/mock"
	"github.com/tgate/dataviewer/internal/notify"
	"github.com/tgate/dataviewer/internal/store"
	"github.com/tgate/dataviewer/internal/ws"
)

type options struct {
	configPath string
	port       int
	driver     string
	dsn        string
	mock       bool
	seedRows   int
}

func main() {
	if err := newRootCommand(os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(stderr io.Writer) *cobra.Command {
	opts := &options{}
	rc := &cobra.Command{
		Use:   "dataviewer-server",
		Short: "Serve viewer tables over REST with a live change feed on /ws/{table}.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, opts.seedRows)
		},
		SilenceUsage: true,
	}

	flags := rc.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to config file")
	flags.IntVar(&opts.port, "port", 0, "Override server port")
	flags.StringVar(&opts.driver, "driver", "", "Override database driver (sqlite, postgres)")
	flags.StringVar(&opts.dsn, "dsn", "", "Override database DSN")
	flags.BoolVar(&opts.mock, "mock", false, "Write synthetic rows")
	flags.IntVar(&opts.seedRows, "seed-rows", 25, "Messages inserted on start in mock mode")
	flags.AddGoFlagSet(flag.CommandLine)

	rc.SetOutput(stderr)
	return rc
}

// loadConfig reads the config file and applies flags that were set.
func loadConfig(opts *options, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("driver") {
		cfg.Database.Driver = opts.driver
	}
	if flags.Changed("dsn") {
		cfg.Database.DSN = opts.dsn
	}
	if flags.Changed("mock") {
		cfg.Mock.Enabled = opts.mock
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, seedRows int) error {
	defer glog.Flush()

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	feed := notify.NewFeed(cfg.Server.SendBuffer)
	defer feed.Close()

	metrics := ws.NewMetrics()
	hub := ws.NewHub(cfg.Server.SendBuffer, metrics)
	server := ws.NewServer(st, hub, metrics, cfg.Server.AllowedOrigins)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Database.Listen {
		channels := make([]string, len(store.Tables))
		for i, t := range store.Tables {
			channels[i] = t.Channel()
		}
		l, err := notify.NewPGListener(cfg.Database.DSN, channels, feed)
		if err != nil {
			return err
		}
		defer l.Close()
		g.Go(func() error { return l.Run(ctx) })
	}

	if cfg.Mock.Enabled {
		// With LISTEN the trigger announces inserts; publishing too would double them.
		var pub notify.Publisher = feed
		if cfg.Database.Listen {
			pub = nil
		}
		gen := mock.NewGenerator(st, pub, cfg.Mock.Interval, int64(cfg.Mock.Seed))
		if err := gen.Seed(ctx, seedRows); err != nil {
			return errors.Wrap(err, "seeding mock data")
		}
		gen.Start(ctx)
		glog.Infof("mock writer every %s", cfg.Mock.Interval)
	}

	src, cancel := feed.Subscribe()
	defer cancel()
	g.Go(func() error {
		hub.Run(ctx, src)
		return nil
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		glog.Infof("listening on %s (%s)", cfg.Addr(), st.Driver())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		glog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
