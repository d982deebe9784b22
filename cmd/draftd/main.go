package main

import (
	"context"
	"log"
	"os"

	"github.com/giveflow/giveflow/internal/buildinfo"
	"github.com/giveflow/giveflow/internal/draftd"
	"github.com/giveflow/giveflow/internal/draftd/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := draftd.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
