package main

import (
	"context"
	"log"
	"os"

	"github.com/siatlite/casedesk/internal/client/cli"
	"github.com/siatlite/casedesk/internal/client/config"
	"github.com/siatlite/casedesk/internal/flagx"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx, flagx.Positional(os.Args[1:], config.ValueFlags)); err != nil {
		os.Exit(1)
	}
}
