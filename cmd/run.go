// cmd/run.go

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"AveSeq/pkg/checkpoint"
	"AveSeq/pkg/dataset"
	"AveSeq/pkg/policy"
	"AveSeq/pkg/randomizer"
	"AveSeq/pkg/utils"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func newPolicy(c *cli.Context, d *dataset.Reader) (randomizer.Policy, error) {
	switch strings.ToLower(c.String("policy")) {
	case "sequential":
		return policy.NewSequential(d)
	case "block":
		return policy.NewBlock(d, policy.BlockConfig{
			RandomizationRange: c.Uint64("randomization-range"),
			Seed:               c.Int64("seed"),
		})
	default:
		return nil, errors.Errorf("unknown policy: %s", c.String("policy"))
	}
}

func unbounded(v uint64) uint64 {
	if v == 0 {
		return randomizer.Infinity
	}
	return v
}

func epochConfig(c *cli.Context) randomizer.EpochConfig {
	return randomizer.EpochConfig{
		ReaderConfig: randomizer.ReaderConfig{
			NumberOfWorkers:        c.Uint64("workers"),
			WorkerRank:             c.Uint64("rank"),
			MinibatchSizeInSamples: c.Uint64("minibatch-size"),
		},
		TotalEpochSizeInSweeps:  unbounded(c.Uint64("sweeps")),
		TotalEpochSizeInSamples: unbounded(c.Uint64("epoch-size")),
	}
}

// expectedSamples is the number of samples this worker reads in the epoch,
// or zero when it is not known in advance.
func expectedSamples(r *randomizer.Randomizer) int64 {
	cfg := r.Config()
	if cfg.TotalEpochSizeInSweeps == randomizer.Infinity {
		return int64(cfg.TotalEpochSizeInSamples)
	}
	if cfg.NumberOfWorkers != 1 {
		return 0
	}
	var total uint64
	for _, d := range r.ChunkDescriptions() {
		total += d.NumberOfSamples
	}
	return int64(total * cfg.TotalEpochSizeInSweeps)
}

func openStore(c *cli.Context) (checkpoint.Store, error) {
	uri := c.String("checkpoint")
	if uri == "" {
		if c.String("resume") != "" || c.String("save") != "" {
			return nil, errors.New("--checkpoint is needed to resume or save")
		}
		return nil, nil
	}
	return checkpoint.NewStore(uri, &checkpoint.Config{Retries: 10, Prefix: c.String("prefix")})
}

func run(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		return errors.New("DATASET is needed")
	}
	d, err := dataset.Open(dataset.Config{
		Dir:           c.Args().Get(0),
		DownloadLimit: c.Int64("download-limit") * 1e6 / 8,
	})
	if err != nil {
		return err
	}
	p, err := newPolicy(c, d)
	if err != nil {
		return err
	}
	r, err := randomizer.New(d, p, randomizer.Options{
		Multithreaded: c.Bool("parallel"),
		Workers:       c.Int("threads"),
	})
	if err != nil {
		return err
	}
	defer r.Close()
	if path := c.String("access-log"); path != "" {
		done, err := streamAccessLog(r, path)
		if err != nil {
			return err
		}
		defer done()
	}
	if err = r.StartEpoch(epochConfig(c)); err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	ctx := context.Background()
	if name := c.String("resume"); name != "" {
		cp, err := store.Load(ctx, name)
		if err != nil {
			return err
		}
		if err = r.SetState(cp.State); err != nil {
			return errors.Wrapf(err, "resume from %s (%s)", name, cp.UUID)
		}
		logger.Infof("Resumed from checkpoint %s (%s) saved at %s", name, cp.UUID, cp.Created.Format(time.RFC3339))
	}
	save := func() error {
		if name := c.String("save"); name != "" {
			cp, err := store.Save(ctx, name, r.GetState())
			if err != nil {
				return err
			}
			logger.Debugf("Saved checkpoint %s (%s)", name, cp.UUID)
		}
		return nil
	}

	progress, bar := utils.NewDynProgressBar("samples: ", c.Bool("quiet") || c.Bool("print"))
	if total := expectedSamples(r); total > 0 {
		bar.SetTotal(total, false)
	}
	bar.SetCurrent(int64(r.SamplesSeen()))

	start := utils.Clock()
	size := int(c.Uint64("minibatch-size"))
	limit := c.Int("limit")
	every := c.Int("save-every")
	var minibatches int
	for !r.IsEndReached() && (limit == 0 || minibatches < limit) {
		mb, err := r.GetNextSequences(size)
		if err != nil {
			bar.Abort(false)
			progress.Wait()
			return err
		}
		minibatches++
		var samples int64
		for _, s := range mb.Sequences {
			samples += int64(s.NumberOfSamples)
		}
		bar.IncrInt64(samples)
		if c.Bool("print") {
			printMinibatch(minibatches, mb)
		}
		if every > 0 && minibatches%every == 0 {
			if err = save(); err != nil {
				bar.Abort(false)
				progress.Wait()
				return err
			}
		}
		if mb.EndOfEpoch {
			break
		}
	}
	bar.SetTotal(-1, true)
	progress.Wait()
	if err = save(); err != nil {
		return err
	}

	used := utils.Clock() - start
	st := r.Stats()
	ru := utils.GetRusage()
	logger.Infof("Read %d minibatches, %d sequences, %d samples in %s (sweep %d)", st.Minibatches, st.Sequences, st.Samples, used, r.SweepIndex())
	logger.Infof("%d refills, %d chunk loads, %d cache hits, usr %.2fs sys %.2fs", st.Refills, st.ChunkLoads, st.ChunkHits, ru.GetUtime(), ru.GetStime())
	return nil
}

// streamAccessLog appends the operations of r to the file path until done is
// called.
func streamAccessLog(r *randomizer.Randomizer, path string) (done func(), err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open access log %s", path)
	}
	a := r.OpenAccessLog(0)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if _, err := io.Copy(f, a); err != nil {
			logger.Warnf("write access log %s: %s", path, err)
		}
	}()
	return func() {
		_ = a.Close()
		<-finished
		_ = f.Close()
	}, nil
}

func printMinibatch(n int, mb *randomizer.Minibatch) {
	ids := make([]string, len(mb.Sequences))
	for i, s := range mb.Sequences {
		ids[i] = fmt.Sprintf("%d:%d", s.ChunkID, s.IndexInChunk)
	}
	flags := ""
	if mb.EndOfSweep {
		flags += " end-of-sweep"
	}
	if mb.EndOfEpoch {
		flags += " end-of-epoch"
	}
	fmt.Printf("%d [%s]%s\n", n, strings.Join(ids, " "), flags)
}

func runFlags() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "read an epoch of minibatches from a dataset",
		ArgsUsage: "DATASET",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "policy",
				Value: "block",
				Usage: "window refill policy (sequential, block)",
			},
			&cli.Uint64Flag{
				Name:  "randomization-range",
				Value: 4096,
				Usage: "samples per randomization window of the block policy",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: 0,
				Usage: "randomization seed of the block policy",
			},
			&cli.Uint64Flag{
				Name:  "minibatch-size",
				Value: 64,
				Usage: "samples per minibatch",
			},
			&cli.Uint64Flag{
				Name:  "sweeps",
				Usage: "epoch size in sweeps (0 for unbounded)",
			},
			&cli.Uint64Flag{
				Name:  "epoch-size",
				Usage: "epoch size in samples across all workers (0 for unbounded)",
			},
			&cli.Uint64Flag{
				Name:  "workers",
				Value: 1,
				Usage: "number of distributed workers",
			},
			&cli.Uint64Flag{
				Name:  "rank",
				Usage: "rank of this worker",
			},
			&cli.BoolFlag{
				Name:  "parallel",
				Usage: "materialize records in parallel",
			},
			&cli.IntFlag{
				Name:  "threads",
				Usage: "goroutines used with --parallel (default: number of CPUs)",
			},
			&cli.Int64Flag{
				Name:  "download-limit",
				Usage: "bandwidth limit for reading chunks in Mbps (0 means unlimited)",
			},
			&cli.StringFlag{
				Name:  "checkpoint",
				Usage: "checkpoint store URL (a directory or redis://host:port/db)",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "namespace of the checkpoints in the store",
			},
			&cli.StringFlag{
				Name:  "resume",
				Usage: "resume from the named checkpoint",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "save the final state as the named checkpoint",
			},
			&cli.IntFlag{
				Name:  "save-every",
				Usage: "also save the state every N minibatches",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "stop after N minibatches (0 means the whole epoch)",
			},
			&cli.StringFlag{
				Name:  "access-log",
				Usage: "append every operation of the randomizer to this file",
			},
			&cli.BoolFlag{
				Name:  "print",
				Usage: "print the sequences of every minibatch",
			},
		},
	}
}
