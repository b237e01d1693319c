// Command configgroups prints the database settings chosen through the db
// config group.
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
		Name:       "configgroups",
		ConfigFS:   confFS,
		ConfigPath: "conf",
		ConfigName: "config",
	}
}

func task(_ context.Context, rc *run.Context, cfg *node.Node) error {
	text, err := cfg.YAML()
	if err != nil {
		return err
	}
	fmt.Fprintln(rc.Out, text)

	for _, f := range []struct{ label, key string }{
		{"Driver", "driver"},
		{"Password", "password"},
		{"Timeout", "timeout"},
		{"User", "user"},
	} {
		v, err := cfg.Lookup("db", f.key)
		if err != nil {
			return err
		}
		fmt.Fprintf(rc.Out, "%s: %s\n", f.label, v)
	}
	return nil
}

func main() {
	cli.Main(options(), task)
}
