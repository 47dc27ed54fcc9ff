package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/renderd/internal/worker"
)

type workerOptions struct {
	*rootOptions
	Rank       int
	Size       int
	Transport  string
	Master     string
	RedisURL   string
	Session    string
	StatusAddr string
}

func newWorkerCommand(root *rootOptions) *cobra.Command {
	opts := &workerOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run one rank against a master",
		Long: `Run one rank of the worker group. Commands arrive over TCP from the
master or from a Redis stream; groups larger than one rank agree on
collective outcomes through Redis.

Example:
  renderd worker --config worker.toml
  RENDERD_RANK=1 renderd worker --config worker.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			status, err := worker.NewService(cfg).Run(ctx)
			if status != 0 {
				if err == nil {
					err = fmt.Errorf("worker exited with status %d", status)
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Rank, "rank", 0, "rank of this process")
	cmd.Flags().IntVar(&opts.Size, "size", 1, "number of ranks in the group")
	cmd.Flags().StringVar(&opts.Transport, "transport", string(worker.TransportTCP), "command transport (tcp|redis)")
	cmd.Flags().StringVar(&opts.Master, "master", "", "master address for the tcp transport")
	cmd.Flags().StringVar(&opts.RedisURL, "redis-url", "", "redis URL for the redis transport and collectives")
	cmd.Flags().StringVar(&opts.Session, "session", "", "redis session id shared by the group")
	cmd.Flags().StringVar(&opts.StatusAddr, "status-addr", "", "listen address for /health, /status and /metrics")

	return cmd
}

// resolve layers config file, environment and explicit flags, in that order.
func (o *workerOptions) resolve(cmd *cobra.Command) (worker.ServiceConfig, error) {
	cfg, err := loadServiceConfig(o.ConfigPath)
	if err != nil {
		return worker.ServiceConfig{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return worker.ServiceConfig{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("rank") {
		cfg.Rank = o.Rank
	}
	if flags.Changed("size") {
		cfg.Size = o.Size
	}
	if flags.Changed("transport") {
		cfg.Transport = worker.TransportKind(o.Transport)
	}
	if flags.Changed("master") {
		cfg.MasterAddress = o.Master
	}
	if flags.Changed("redis-url") {
		cfg.RedisURL = o.RedisURL
	}
	if flags.Changed("session") {
		cfg.Session = o.Session
	}
	if flags.Changed("status-addr") {
		cfg.StatusAddr = o.StatusAddr
	}
	return cfg, nil
}
