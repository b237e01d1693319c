// Command tutorial3 selects a model from the model config group.
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
		Name:       "tutorial3",
		ConfigFS:   confFS,
		ConfigPath: "conf",
		ConfigName: "config",
	}
}

func task(_ context.Context, rc *run.Context, cfg *node.Node) error {
	layers, err := cfg.GetInt("model.num_layers")
	if err != nil {
		return err
	}
	fmt.Fprintf(rc.Out, "Num features = %d\n", layers)
	return nil
}

func main() {
	cli.Main(options(), task)
}
