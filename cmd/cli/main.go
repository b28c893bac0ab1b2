package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/megavault/internal/buildinfo"
	"github.com/dmitrijs2005/megavault/internal/client/cli"
	"github.com/dmitrijs2005/megavault/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := cli.NewApp(cfg, os.Stdin, os.Stdout)
	app.Run(context.Background())
}
