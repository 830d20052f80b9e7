// Command server runs the user management service over HTTP and gRPC.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/usersvc/internal/server"
	"github.com/dmitrijs2005/usersvc/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		os.Exit(2)
	}

	app, err := server.NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		log.Printf("startup failed: %v", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
