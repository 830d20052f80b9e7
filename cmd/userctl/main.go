package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/usersvc/internal/admin"
	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server"
	"github.com/dmitrijs2005/usersvc/internal/server/config"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Printf("%v", err)
		if errors.Is(err, admin.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()

	args := config.CommandArgs(os.Args[1:])
	if len(args) == 0 {
		return admin.ErrUsage
	}

	logger, err := logging.New(cfg.LogBackend, os.Stderr)
	if err != nil {
		return err
	}

	store, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.DB.Close()

	svc := server.NewUserService(store, cfg, logger)

	return admin.New(svc, os.Stdin, os.Stdout).Run(ctx, args)
}
