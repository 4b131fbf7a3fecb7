package group

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/typedkv/cmd/util"
	"github.com/ValentinKolb/typedkv/lib/entities"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Latency check of a group store peer",
		Long: `Runs insert, get and filter requests against the group store in parallel
and prints the latency distribution of every operation. All groups created
by the test are removed afterwards.`,
		Args: cobra.NoArgs,
		RunE: runPerf,
	}
	perfOps     = 1000
	perfThreads = 10
)

const perfNamePrefix = "__perf"

func init() {
	perfTestCmd.Flags().IntVar(&perfOps, "ops", 1000, util.WrapString("Number of requests per operation"))
	perfTestCmd.Flags().IntVar(&perfThreads, "threads", 10, util.WrapString("Number of concurrent workers"))
}

// perfRun keeps the timers and the ids created by one run
type perfRun struct {
	registry gometrics.Registry
	errors   atomic.Int64
	mu       sync.Mutex
	ids      []uint64
}

// parallel runs fn ops times on perfThreads workers and times every call
func (r *perfRun) parallel(ctx context.Context, name string, fn func(ctx context.Context, i int) error) error {
	timer := gometrics.GetOrRegisterTimer(name, r.registry)
	next := atomic.Int64{}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < perfThreads; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= perfOps {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				err := fn(ctx, i)
				timer.UpdateSince(start)
				if err != nil {
					r.errors.Add(1)
					util.Logger.Debugf("(%s) request %d failed: %v", name, i, err)
				}
			}
		})
	}
	return g.Wait()
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Latency check for typedkv group stores")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(session.Config.String())
	fmt.Printf("Operations: %d, Threads: %d\n", perfOps, perfThreads)
	fmt.Println()

	ctx, cancel := session.Context()
	defer cancel()

	r := &perfRun{registry: gometrics.NewRegistry()}

	// cleanup
	defer func() {
		if len(r.ids) == 0 {
			return
		}
		if err := groups.RemoveMany(context.Background(), r.ids); err != nil {
			fmt.Printf("failed to remove %d test groups: %v\n", len(r.ids), err)
		}
	}()

	err := r.parallel(ctx, "insert", func(ctx context.Context, i int) error {
		now := util.Now()
		entry, err := groups.Insert(ctx, entities.Group{
			Name:      fmt.Sprintf("%s-%d", perfNamePrefix, i),
			Owner:     perfNamePrefix,
			CreatedOn: now,
			UpdatedOn: now,
		})
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.ids = append(r.ids, entry.Key)
		r.mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}
	if len(r.ids) == 0 {
		return fmt.Errorf("no group could be inserted (%d errors)", r.errors.Load())
	}

	err = r.parallel(ctx, "get", func(ctx context.Context, i int) error {
		_, err := groups.Get(ctx, r.ids[i%len(r.ids)])
		return err
	})
	if err != nil {
		return err
	}

	err = r.parallel(ctx, "filter", func(ctx context.Context, i int) error {
		_, err := groups.FilterPaginated(ctx, 10, 0, entities.GroupSort{},
			entities.GroupByOwner(perfNamePrefix),
			entities.GroupByName(fmt.Sprintf("-%d", i%10)))
		return err
	})
	if err != nil {
		return err
	}

	printResults(r)
	return nil
}

func printResults(r *perfRun) {
	ms := func(ns float64) float64 { return ns / float64(time.Millisecond) }

	fmt.Printf("%-8s %8s %10s %10s %10s %10s %10s %10s\n", "op", "count", "ops/s", "mean(ms)", "p50(ms)", "p95(ms)", "p99(ms)", "max(ms)")
	for _, name := range []string{"insert", "get", "filter"} {
		t, ok := r.registry.Get(name).(gometrics.Timer)
		if !ok {
			continue
		}
		s := t.Snapshot()
		ps := s.Percentiles([]float64{0.5, 0.95, 0.99})
		fmt.Printf("%-8s %8d %10.1f %10.3f %10.3f %10.3f %10.3f %10.3f\n",
			name, s.Count(), s.RateMean(), ms(s.Mean()), ms(ps[0]), ms(ps[1]), ms(ps[2]), ms(float64(s.Max())))
	}
	fmt.Printf("\nfailed requests: %d\n", r.errors.Load())
}
