package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/modelrank/internal/loadtest"
	"github.com/okian/modelrank/pkg/logger"
)

type benchFlags struct {
	url         string
	requests    int
	concurrency int
	models      []string
	timeout     time.Duration
	strict      bool
}

func newBenchCommand() *cobra.Command {
	var f benchFlags
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Fire concurrent ranking requests at a running server",
		Long: `Sends --requests POST /rank-models calls with at most --concurrency in
flight, checks that every response is ordered by rank with non-increasing
scores in [0,1] and prints a latency summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.url, "url", "http://localhost:9080", "Server base URL")
	cmd.Flags().IntVarP(&f.requests, "requests", "n", 100, "Total requests")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "c", 8, "Requests in flight")
	cmd.Flags().StringSliceVar(&f.models, "models", nil, "Models to rank; defaults to the first five catalog ids")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 10*time.Second, "Per-request timeout")
	cmd.Flags().BoolVar(&f.strict, "strict", true, "Exit non-zero when any response is invalid or failed")

	return cmd
}

func runBench(ctx context.Context, cmd *cobra.Command, f benchFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runner := loadtest.NewRunner(
		loadtest.WithHTTPClient(&http.Client{Timeout: f.timeout}),
		loadtest.WithLogger(logger.Get().Named("bench")),
	)
	sum, err := runner.Run(ctx, loadtest.Config{
		BaseURL:     f.url,
		Requests:    f.requests,
		Concurrency: f.concurrency,
		Models:      f.models,
	})
	if err != nil {
		return err
	}
	if err := sum.Report(cmd.OutOrStdout()); err != nil {
		return err
	}
	if f.strict && (sum.Invalid > 0 || sum.Failed > 0) {
		return fmt.Errorf("bench: %d invalid and %d failed responses", sum.Invalid, sum.Failed)
	}
	return nil
}
