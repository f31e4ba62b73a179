package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/protomem/mini-crm/internal/database"
	"github.com/protomem/mini-crm/internal/env"
	"github.com/protomem/mini-crm/internal/password"
	"github.com/protomem/mini-crm/internal/version"
)

var _cfgFile = flag.String("cfg", "", "path to config file")

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

type config struct {
	httpHost string
	httpPort int
	db       struct {
		path        string
		automigrate bool
	}
	session struct {
		ttl time.Duration
	}
	admin struct {
		importKey   string
		migrateKey  string
		recreateKey string
	}
}

type application struct {
	config config
	db     *database.DB
	hasher password.Hasher
	logger *slog.Logger
	wg     sync.WaitGroup
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	if *_cfgFile != "" {
		err := env.Load(*_cfgFile)
		if err != nil {
			return err
		}
	}

	var cfg config
	cfg.httpHost = env.GetString("HTTP_HOST", "localhost")
	cfg.httpPort = env.GetInt("HTTP_PORT", 8080)
	cfg.db.path = env.GetString("DB_PATH", "crm.db")
	cfg.db.automigrate = env.GetBool("DB_AUTOMIGRATE", true)
	cfg.session.ttl = time.Duration(env.GetInt("SESSION_TTL_HOURS", 24)) * time.Hour
	cfg.admin.importKey = env.GetString("IMPORT_KEY", "")
	cfg.admin.migrateKey = env.GetString("MIGRATE_KEY", "")
	cfg.admin.recreateKey = env.GetString("RECREATE_KEY", "")

	db, err := database.New(logger, cfg.db.path, cfg.db.automigrate)
	if err != nil {
		return err
	}
	defer db.Close()

	app := &application{
		config: cfg,
		db:     db,
		hasher: password.NewBcryptHasher(),
		logger: logger,
	}

	return app.serveHTTP()
}
