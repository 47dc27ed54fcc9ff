package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/protocol"
	"github.com/danmuck/renderd/internal/transport"
	"github.com/danmuck/renderd/internal/worker"
)

type localOptions struct {
	*rootOptions
	Ranks      int
	Input      string
	Output     string
	Modules    []string
	StatusAddr string
}

func newLocalCommand(root *rootOptions) *cobra.Command {
	opts := &localOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Replay a recorded command stream on in-process ranks",
		Long: `Run a whole worker group inside this process. Every rank reads the same
recorded command stream; rank 0's responses are written to the output as
MessagePack records.

Example:
  renderd local --ranks 4 --input scene.cmd --output scene.resp
  cat scene.cmd | renderd local --ranks 2 > scene.resp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLocal(ctx, cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Ranks, "ranks", "n", 1, "number of in-process ranks")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "-", "command stream file, - for stdin")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "-", "response file, - for stdout")
	cmd.Flags().StringSliceVar(&opts.Modules, "modules", nil, "modules to load on every rank before the first command")
	cmd.Flags().StringVar(&opts.StatusAddr, "status-addr", "", "listen address for /health, /status and /metrics")

	return cmd
}

func runLocal(ctx context.Context, cmd *cobra.Command, opts *localOptions) error {
	svc, err := loadServiceConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	modules := svc.Modules
	if cmd.Flags().Changed("modules") {
		modules = opts.Modules
	}
	statusAddr := svc.StatusAddr
	if cmd.Flags().Changed("status-addr") {
		statusAddr = opts.StatusAddr
	}

	in, closeIn, err := openInput(cmd, opts.Input)
	if err != nil {
		return err
	}
	defer closeIn()
	out, closeOut, err := openOutput(cmd, opts.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	limits := protocol.DefaultLimits()
	if svc.MaxStringBytes > 0 {
		limits.MaxStringBytes = svc.MaxStringBytes
	}
	runID := uuid.NewString()
	statusCtx, stopStatus := context.WithCancel(ctx)
	defer stopStatus()

	cfg := worker.LocalConfig{
		Ranks: opts.Ranks,
		Interpreter: worker.Config{
			RegionScratchBytes: svc.RegionScratchBytes,
			Limits:             limits,
		},
		Modules: modules,
		OnStart: func(interps []*worker.Interpreter) {
			if statusAddr == "" {
				return
			}
			sources := make([]worker.StatusSource, len(interps))
			for i, interp := range interps {
				sources[i] = interp
			}
			srv := worker.NewStatusServer(runID, svc.CORSOrigins, sources...)
			go func() {
				if err := srv.Serve(statusCtx, statusAddr); err != nil {
					logs.Warnf("renderd.local status server stopped err=%v", err)
				}
			}()
		},
	}

	logs.Infof("renderd.local start ranks=%d input=%q run_id=%s", opts.Ranks, opts.Input, runID)
	res, err := worker.RunLocal(ctx, cfg, in, transport.NewStreamResponder(out))
	if err != nil {
		return fmt.Errorf("local group failed status=%v: %w", res.Status, err)
	}
	return nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "-" || path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
