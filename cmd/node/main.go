// Command node runs the button game: it opens the configured state backend,
// deploys the contract on first start and serves the HTTP API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"okinoko-button_game/chain"
	"okinoko-button_game/config"
	"okinoko-button_game/sdk"
	"okinoko-button_game/server"
	"okinoko-button_game/store/postgres"
	"okinoko-button_game/store/sqlite"
	"okinoko-button_game/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, "button-node", cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	node := chain.New(backend)
	if err := deploy(ctx, node, cfg); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(node, server.Options{Faucet: cfg.Faucet, FaucetToken: cfg.FaucetToken, Asset: cfg.Asset})
	return srv.Run(ctx, cfg.Addr)
}

func openBackend(ctx context.Context, cfg *config.Config) (chain.Backend, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		log.Printf("state: sqlite at %s", cfg.SQLitePath)
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.StorePostgres:
		log.Printf("state: postgres")
		return postgres.Open(ctx, cfg.DatabaseURL)
	case config.StoreMemory:
		log.Printf("state: in memory, lost on exit")
		return chain.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// deploy runs init once per state backend. With the faucet on, the contract
// account is also credited with the seed pool so round 1 can pay out.
func deploy(ctx context.Context, node *chain.Node, cfg *config.Config) error {
	ok, err := node.Deployed(ctx)
	if err != nil {
		return fmt.Errorf("check deployment: %w", err)
	}
	if ok {
		log.Printf("contract already deployed at %s", node.ContractAddress())
		return nil
	}

	// round 1 is only seeded with what the contract already holds
	if cfg.Faucet {
		seed, err := sdk.ParseAmount(cfg.InitialPrizePool)
		if err != nil {
			return err
		}
		if seed > 0 {
			if _, err := node.Deposit(ctx, node.ContractAddress(), cfg.Asset, seed); err != nil {
				return fmt.Errorf("fund seed pool: %w", err)
			}
		}
	}

	if _, err := node.Submit(ctx, chain.Call{Method: "init", Sender: cfg.Owner, Payload: cfg.InitPayload()}); err != nil {
		return fmt.Errorf("deploy: %w", err)
	}
	log.Printf("contract deployed by %s (fee %s %s, timer %ds)", cfg.Owner, cfg.EntryFee, cfg.Asset, cfg.TimerDuration)
	return nil
}
