// Command tutorial1 shows the run directory: it reads a file from the launch
// directory, writes one into its own run directory and prints two config
// values.
package main

import (
	"context"
	"embed"
	"fmt"

	"github.com/nibzard/hydrant/internal/cli"
	"github.com/nibzard/hydrant/internal/node"
	"github.com/nibzard/hydrant/internal/run"
)

//go:embed conf
var confFS embed.FS

func options() cli.Options {
	return cli.Options{
		Name:       "tutorial1",
		ConfigFS:   confFS,
		ConfigPath: "conf",
		ConfigName: "config",
	}
}

func task(_ context.Context, rc *run.Context, cfg *node.Node) error {
	fmt.Fprintf(rc.Out, "The current working directory is %s\n", rc.Dir)
	fmt.Fprintf(rc.Out, "Getting original current working directory: %s\n", rc.OriginalCwd())

	text, err := rc.ReadOriginal("test.txt")
	if err != nil {
		return err
	}
	fmt.Fprintln(rc.Out, string(text))

	if err := rc.WriteFile("output.txt", []byte("This is a dog")); err != nil {
		return err
	}

	batchSize, err := cfg.Get("batch_size")
	if err != nil {
		return err
	}
	lr, err := cfg.Get(`["lr"]`)
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.Out, "The batch size is %s\n", batchSize)
	fmt.Fprintf(rc.Out, "The learning rate is %s\n", lr)
	return nil
}

func main() {
	cli.Main(options(), task)
}
