package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-user-cache/pkg/bunstore"
	"github.com/goliatone/go-user-cache/pkg/config"
	"github.com/goliatone/go-user-cache/pkg/di"
	"github.com/goliatone/go-user-cache/pkg/logging"
	"github.com/goliatone/go-user-cache/users"
)

//go:embed seed.json
var defaultSeed []byte

type cliOptions struct {
	configPath string
	seedPath   string
	checkOnly  bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(context.Background(), opts))
}

// run wires config, logging, the store and the cache, then walks through every
// user operation. It returns the process exit code.
func run(ctx context.Context, opts cliOptions) int {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(stdErr, "failed to initialise logging: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_backend"] = cfg.Cache.Backend
		fields["database_driver"] = cfg.Database.Driver
		fields["result"] = "ok"
		logger.WithFields(fields).Info("configuration is valid")
		return 0
	}

	db, err := bunstore.Open(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		return 1
	}
	defer db.Close()

	store := bunstore.New(db)
	if err := store.CreateSchema(ctx); err != nil {
		logger.WithError(err).Error("failed to create schema")
		return 1
	}

	container, err := di.NewContainerFromConfig(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("failed to build cache")
		return 1
	}
	defer container.Close()

	svc := container.NewUserService(store)
	counts := container.NewCountCache(svc)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["cache_backend"] = cfg.Cache.Backend
	fields["database_driver"] = cfg.Database.Driver
	logger.WithFields(fields).Info("user cache ready")

	seed, err := loadSeed(opts.seedPath)
	if err != nil {
		logger.WithError(err).Error("failed to read seed users")
		return 1
	}

	d := &demo{svc: svc, counts: counts, logger: logger}
	if err := d.seed(ctx, seed); err != nil {
		logger.WithError(err).Error("failed to seed users")
		return 1
	}
	if err := d.run(ctx); err != nil {
		logger.WithError(err).Error("demo failed")
		return 1
	}

	stats := svc.Stats()
	fields = logging.BaseFields("summary", opts.configPath)
	fields["hits"] = stats.Hits
	fields["misses"] = stats.Misses
	fields["invalidations"] = stats.Invalidations
	logger.WithFields(fields).Info("cache statistics")
	return 0
}

func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("usercache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts cliOptions
	fs.StringVar(&opts.configPath, "config", "", "config file path (YAML, TOML or JSON; USERCACHE_CONFIG also works)")
	fs.StringVar(&opts.seedPath, "seed", "", "JSON file with users to insert into an empty store")
	fs.BoolVar(&opts.checkOnly, "check-config", false, "validate the configuration and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("invalid arguments: %w", err)
	}

	if opts.configPath == "" {
		opts.configPath = os.Getenv("USERCACHE_CONFIG")
	}
	return opts, nil
}

func loadSeed(path string) ([]*users.User, error) {
	data := defaultSeed
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = raw
	}

	var records []*users.User
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for _, u := range records {
		u.ID = 0
	}
	return records, nil
}
