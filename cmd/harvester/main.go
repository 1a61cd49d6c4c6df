// Command harvester runs the pet listing harvest service: a resumable
// controller that crawls paginated search results, keeps a deduplicated
// CSV table of listings, and periodically re-verifies stored records,
// all behind a small key-protected HTTP control surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shelterscout/petharvester/internal/config"
	"github.com/shelterscout/petharvester/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := server.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
		os.Exit(1)
	}
}
