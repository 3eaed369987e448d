// cmd/state.go

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"AveSeq/pkg/checkpoint"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func printJson(v interface{}) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatalf("json: %s", err)
	}
	fmt.Println(string(output))
}

func state(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		return errors.New("CHECKPOINT-URL is needed")
	}
	store, err := checkpoint.NewStore(c.Args().Get(0), &checkpoint.Config{Retries: 10, Prefix: c.String("prefix")})
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	if c.Args().Len() < 2 {
		cs, err := store.List(ctx)
		if err != nil {
			return errors.Wrapf(err, "list checkpoints in %s", store.Name())
		}
		if cs == nil {
			cs = []*checkpoint.Checkpoint{}
		}
		printJson(cs)
		return nil
	}

	name := c.Args().Get(1)
	if c.Bool("delete") {
		if err = store.Delete(ctx, name); err != nil {
			return err
		}
		logger.Infof("Checkpoint %s is deleted from %s", name, store.Name())
		return nil
	}
	cp, err := store.Load(ctx, name)
	if err != nil {
		return err
	}
	printJson(cp)
	return nil
}

func stateFlags() *cli.Command {
	return &cli.Command{
		Name:      "state",
		Usage:     "show (or delete) the checkpoints in a store",
		ArgsUsage: "CHECKPOINT-URL [NAME]",
		Action:    state,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "namespace of the checkpoints in the store",
			},
			&cli.BoolFlag{
				Name:  "delete",
				Usage: "delete the named checkpoint",
			},
		},
	}
}
