package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	logs "github.com/danmuck/renderd/internal/logging"
	"github.com/danmuck/renderd/internal/transport"
)

type publishOptions struct {
	*rootOptions
	RedisURL   string
	Session    string
	Input      string
	ChunkBytes int
	Responses  int
}

func newPublishCommand(root *rootOptions) *cobra.Command {
	opts := &publishOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Append a recorded command stream to a redis session",
		Long: `Feed a redis-transport worker group from a recorded command stream, then
optionally wait for rank 0's responses and print them as JSON lines.

Example:
  renderd publish --redis-url redis://127.0.0.1:6379/0 --input scene.cmd --responses 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.RedisURL, "redis-url", "", "redis URL (defaults to the config file's redis_url)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (defaults to the config file's, else a new uuid)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "-", "command stream file, - for stdin")
	cmd.Flags().IntVar(&opts.ChunkBytes, "chunk-bytes", 64<<10, "largest stream entry")
	cmd.Flags().IntVar(&opts.Responses, "responses", 0, "number of responses to wait for")

	return cmd
}

func runPublish(ctx context.Context, cmd *cobra.Command, opts *publishOptions) error {
	svc, err := loadServiceConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := applyEnvOverrides(&svc); err != nil {
		return err
	}
	redisURL := firstNonEmpty(opts.RedisURL, svc.RedisURL)
	if redisURL == "" {
		return fmt.Errorf("publish: redis url required")
	}
	session := firstNonEmpty(opts.Session, svc.Session)
	if session == "" {
		session = uuid.NewString()
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("publish: parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	defer client.Close()

	in, closeIn, err := openInput(cmd, opts.Input)
	if err != nil {
		return err
	}
	defer closeIn()

	n, err := transport.NewRedisPublisher(client, session).PublishFrom(ctx, in, opts.ChunkBytes)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	logs.Infof("renderd.publish session=%s bytes=%d stream=%q", session, n, transport.CommandKey(session))

	responses := transport.NewRedisResponses(client, session)
	enc := json.NewEncoder(cmd.OutOrStdout())
	for i := 0; i < opts.Responses; i++ {
		resp, err := responses.Next(ctx)
		if err != nil {
			return fmt.Errorf("publish: response %d: %w", i, err)
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
