package main

import (
	"log"
	"net/http"
	"os"

	"github.com/cursorkit/switchboard/internal/api"
	"github.com/cursorkit/switchboard/internal/config"
	"github.com/cursorkit/switchboard/internal/negotiate"
	"github.com/cursorkit/switchboard/internal/profile"
	"github.com/cursorkit/switchboard/internal/registry"
	"github.com/cursorkit/switchboard/internal/switcher"
	"github.com/cursorkit/switchboard/internal/target"
	"github.com/cursorkit/switchboard/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		log.Fatalf("Failed to load account registry: %v", err)
	}

	orch := &switcher.Orchestrator{
		Registry: reg,
		Resolver: profile.NewResolver(cfg.AccountHost),
		Upgrader: negotiate.New(nil, negotiate.Options{
			AuthHost: cfg.ConsentHost,
			APIHost:  cfg.PollHost,
		}),
		Lifecycle: &target.Controller{AppPath: reg.Settings().AppPath},
	}

	router := api.NewRouter(reg, orch)

	host := os.Getenv("HOST")
	if host == "" {
		host = "127.0.0.1" // Default to localhost, set HOST=0.0.0.0 for LAN access
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}
	addr := host + ":" + port

	log.Printf("🚀 Switchboard %s starting on http://%s", version.Version, addr)
	log.Printf("📒 Account registry: %s", reg.Path())

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
