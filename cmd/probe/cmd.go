// Copyright 2023 StreamNative, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/devstack-core/devprobe/backend"
	"github.com/devstack-core/devprobe/cmd/common"
	"github.com/devstack-core/devprobe/cmd/flag"
	commonmetric "github.com/devstack-core/devprobe/common/metric"
	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
)

type Config struct {
	Count  int
	Rate   float64
	Output string
}

func NewConfig() Config {
	return Config{
		Count:  1,
		Rate:   1,
		Output: string(common.JSON),
	}
}

// Runner is the subset of backend.Set used by the command.
type Runner interface {
	Names() []string
	Run(ctx context.Context, names ...string) ([]backend.Result, error)
}

var (
	opts = NewConfig()

	newRunner = func(conf *config.Config, provider secrets.Provider) Runner {
		return backend.Default(conf, provider, commonmetric.Provider())
	}

	Cmd = &cobra.Command{
		Use:   "probe [backend...]",
		Short: "Probe the backend services",
		Long: `Connect to each backend service, run one operation and report the outcome.
Without arguments every configured backend is probed. With --count greater
than 1 the probes are repeated and latency percentiles are reported.`,
		RunE: exec,
	}
)

func init() {
	Cmd.Flags().IntVarP(&opts.Count, "count", "n", opts.Count, "Number of probing rounds")
	Cmd.Flags().Float64VarP(&opts.Rate, "rate", "r", opts.Rate, "Maximum rounds per second, 0 for no limit")
	flag.Output(Cmd, &opts.Output)
	Cmd.SilenceUsage = true
}

func exec(cmd *cobra.Command, args []string) error {
	format, err := common.ParseFormat(opts.Output)
	if err != nil {
		return err
	}
	if opts.Count < 1 {
		return errors.Errorf("count must be at least 1, got %d", opts.Count)
	}

	conf, _, err := common.LoadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	provider, closer, err := secrets.FromConfig(ctx, &conf)
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	report, err := Sample(ctx, newRunner(&conf, provider), opts.Count, opts.Rate, args...)
	if err != nil {
		return err
	}

	var value any = report
	if opts.Count == 1 {
		value = report.Results
	}
	if err := common.WriteOutput(cmd.OutOrStdout(), format, value); err != nil {
		return err
	}

	if unhealthy := report.Unhealthy(); unhealthy > 0 {
		return errors.Errorf("%d of %d backends unhealthy", unhealthy, len(report.Results))
	}
	return nil
}

// Sample runs count rounds of probes, at most ratePerSecond rounds per
// second, and returns the results of the last round with the latency
// distribution of every backend.
func Sample(ctx context.Context, runner Runner, count int, ratePerSecond float64, names ...string) (*Report, error) {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	if len(names) == 0 {
		names = runner.Names()
	}
	samplers := make([]*sampler, len(names))
	for i, name := range names {
		samplers[i] = newSampler(name)
	}

	var last []backend.Result
	for round := 0; round < count; round++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "probing interrupted")
		}

		start := time.Now()
		results, err := runner.Run(ctx, names...)
		if err != nil {
			return nil, err
		}
		for i, res := range results {
			samplers[i].add(res)
		}
		last = results

		slog.Debug(
			"Completed probing round",
			slog.Int("round", round+1),
			slog.Duration("duration", time.Since(start)),
		)
	}

	report := &Report{Results: last, Latency: make([]LatencySummary, len(samplers))}
	for i, s := range samplers {
		report.Latency[i] = s.summary()
	}
	return report, nil
}
