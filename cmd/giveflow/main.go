package main

import (
	"context"
	"log"
	"os"

	"github.com/giveflow/giveflow/internal/buildinfo"
	"github.com/giveflow/giveflow/internal/cli"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := cli.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
