// cmd/gen.go

package main

import (
	"math/rand"

	"AveSeq/pkg/chunk"
	"AveSeq/pkg/dataset"
	"AveSeq/pkg/utils"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func gen(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		return errors.New("DIR is needed")
	}
	dir := c.Args().Get(0)
	streams := c.StringSlice("streams")
	chunks := c.Int("chunks")
	sequences := c.Int("sequences")
	maxSamples := c.Int("max-samples")
	fieldSize := c.Int("field-size")
	if chunks <= 0 || sequences < 0 || maxSamples <= 0 || fieldSize < 0 {
		return errors.New("chunks and max-samples must be positive")
	}

	w, err := dataset.Create(dir, streams, c.String("compress"))
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(c.Int64("seed")))
	progress, bar := utils.NewDynProgressBar("chunks: ", c.Bool("quiet"))
	bar.SetTotal(int64(chunks), false)
	var total uint64
	for i := 0; i < chunks; i++ {
		rs := make([]dataset.Record, sequences)
		for j := range rs {
			rs[j].Samples = uint32(rng.Intn(maxSamples) + 1)
			rs[j].Fields = make([]chunk.Field, len(streams))
			for k := range rs[j].Fields {
				f := make(chunk.Field, fieldSize)
				_, _ = rng.Read(f)
				rs[j].Fields[k] = f
			}
			total += uint64(rs[j].Samples)
		}
		if _, err = w.WriteChunk(rs); err != nil {
			return err
		}
		bar.Increment()
	}
	bar.SetTotal(-1, true)
	progress.Wait()
	if err = w.Close(); err != nil {
		return err
	}
	logger.Infof("Dataset %s: %d chunks, %d sequences, %d samples", dir, chunks, chunks*sequences, total)
	return nil
}

func genFlags() *cli.Command {
	return &cli.Command{
		Name:      "gen",
		Usage:     "generate a synthetic dataset",
		ArgsUsage: "DIR",
		Action:    gen,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "streams",
				Value: cli.NewStringSlice("features", "labels"),
				Usage: "names of the streams",
			},
			&cli.IntFlag{
				Name:  "chunks",
				Value: 16,
				Usage: "number of chunks",
			},
			&cli.IntFlag{
				Name:  "sequences",
				Value: 256,
				Usage: "number of sequences per chunk",
			},
			&cli.IntFlag{
				Name:  "max-samples",
				Value: 32,
				Usage: "upper bound of samples per sequence",
			},
			&cli.IntFlag{
				Name:  "field-size",
				Value: 16,
				Usage: "bytes of each field",
			},
			&cli.StringFlag{
				Name:  "compress",
				Value: "none",
				Usage: "compression algorithm (lz4, zstd, none)",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: 1,
				Usage: "seed of the generator",
			},
		},
	}
}
