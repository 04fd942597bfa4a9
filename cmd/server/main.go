package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/pocketbank/internal/app"
	"github.com/dmitrijs2005/pocketbank/internal/buildinfo"
	"github.com/dmitrijs2005/pocketbank/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	srv, err := app.NewServer(cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	srv.Run(context.Background())

}
