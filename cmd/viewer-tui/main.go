package main

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tgate/dataviewer/internal/app"
	"github.com/tgate/dataviewer/internal/client"
	"github.com/tgate/dataviewer/internal/config"
	"github.com/tgate/dataviewer/internal/prefs"
	"github.com/tgate/dataviewer/internal/query"
)

type options struct {
	configPath string
	apiURL     string
	wsURL      string
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
		Use:   "dataviewer",
		Short: "Browse viewer tables in the terminal, refreshed live from the change feed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cfg)
		},
		SilenceUsage: true,
	}

	flags := rc.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to config file")
	flags.StringVar(&opts.apiURL, "api-url", "", "Override REST base URL, e.g. http://localhost:8000")
	flags.StringVar(&opts.wsURL, "ws-url", "", "Override push base URL; derived from --api-url when omitted")
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
	if flags.Changed("api-url") {
		cfg.Client.APIURL = opts.apiURL
		if !flags.Changed("ws-url") {
			cfg.Client.WSURL = deriveWSBase(opts.apiURL)
		}
	}
	if flags.Changed("ws-url") {
		cfg.Client.WSURL = opts.wsURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// deriveWSBase converts http://host:port → ws://host:port.
func deriveWSBase(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return config.Default().Client.WSURL
	}
	scheme := "ws"
	if strings.HasPrefix(u.Scheme, "https") {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}

func run(cfg *config.Config) error {
	defer glog.Flush()

	api := client.NewHTTPClient(cfg.Client.APIURL,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithRetryMax(cfg.Client.RetryMax))
	pages := query.NewCache(api, cfg.Client.StaleTime)

	m := app.New(app.Deps{
		API:            api,
		Pages:          pages,
		Subscribe:      app.LiveSubscriber(*cfg),
		Prefs:          prefs.NewStore(""),
		StatusInterval: cfg.Client.StatusInterval,
	})
	glog.Infof("viewer: api %s, push %s", cfg.Client.APIURL, cfg.Client.WSURL)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "viewer")
	}
	return nil
}
