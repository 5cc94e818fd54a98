// Command zacctl administers case-type configurations: it applies database
// migrations, replays catalog publications, and imports or exports
// configurations as YAML.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"zac/internal/platform/config"
	"zac/internal/platform/logger"
)

type cli struct {
	Migrate      migrateCmd      `cmd:"" help:"Apply pending database migrations."`
	Publish      publishCmd      `cmd:"" help:"Replay catalog publications through the configuration resolver."`
	ShowConfig   showConfigCmd   `cmd:"" name:"show-config" help:"Print the configuration of a case-type version as YAML."`
	ImportConfig importConfigCmd `cmd:"" name:"import-config" help:"Apply a YAML configuration document."`
	IssueToken   issueTokenCmd   `cmd:"" name:"issue-token" help:"Issue an employee access token for local testing."`
}

// env is bound into every command's Run method.
type env struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("zacctl"),
		kong.Description("Administer case-type configurations."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)
	// stdout carries command output.
	log := logger.NewWithWriter(os.Stderr, cfg.Server.LogFormat, cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&env{ctx: ctx, cfg: cfg, logger: log})
	stop()
	kctx.FatalIfErrorf(err)
}
