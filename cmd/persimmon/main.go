// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/persimmon"
	"github.com/poiesic/persimmon/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	collectionFlag := &cli.StringFlag{
		Name:     "collection",
		Aliases:  []string{"c"},
		Usage:    "Collection to operate on",
		Required: true,
	}
	keyFlag := &cli.StringFlag{
		Name:    "primary-key",
		Aliases: []string{"k"},
		Usage:   "Name of the primary key field",
		Value:   "id",
	}
	fieldsFlag := &cli.StringSliceFlag{
		Name:    "fields",
		Aliases: []string{"f"},
		Usage:   "Only return these fields",
	}

	return &cli.App{
		Name:  "persimmon",
		Usage: "Store, fetch and search documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file",
				Value: "persimmon.yaml",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Storage backend (" + strings.Join(config.Backends, ", ") + ")",
			},
			&cli.StringFlag{
				Name:  "path",
				Usage: "Database path for embedded backends",
			},
			&cli.StringFlag{
				Name:  "uri",
				Usage: "Server URI for mongo and redis",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print a document",
				ArgsUsage: "ID",
				Action:    getCommand,
				Flags:     []cli.Flag{collectionFlag, keyFlag, fieldsFlag},
			},
			{
				Name:      "put",
				Usage:     "Create or replace a document, or update fields of an existing one",
				ArgsUsage: "ID field=value...",
				Action:    putCommand,
				Flags: []cli.Flag{
					collectionFlag,
					keyFlag,
					&cli.BoolFlag{
						Name:  "update",
						Usage: "Only write the given fields; fail if the document doesn't exist",
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Query a collection",
				Action: searchCommand,
				Flags: []cli.Flag{
					collectionFlag,
					keyFlag,
					fieldsFlag,
					&cli.StringSliceFlag{
						Name:  "match",
						Usage: "Full text clause, field=text (empty field searches every string field)",
					},
					&cli.StringSliceFlag{
						Name:  "where",
						Usage: "Filter, one of f=v f!=v f>v f>=v f<v f<=v f^=prefix f?",
					},
					&cli.StringSliceFlag{
						Name:  "sort",
						Usage: "Sort key, field or field:desc",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of results to skip",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (0 for all)",
						Value: 20,
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a document",
				ArgsUsage: "ID",
				Action:    deleteCommand,
				Flags:     []cli.Flag{collectionFlag, keyFlag},
			},
			{
				Name:      "import",
				Usage:     "Load JSON-lines files into a collection",
				ArgsUsage: "GLOB...",
				Action:    importCommand,
				Flags: []cli.Flag{
					collectionFlag,
					keyFlag,
					&cli.StringFlag{
						Name:  "id-strategy",
						Usage: "How records without a key get one (field, uuid, content)",
						Value: "field",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent inserts (defaults to the config value)",
					},
				},
			},
		},
	}
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.Option
	if c.IsSet("backend") {
		opts = append(opts, config.WithBackend(c.String("backend")))
	}
	if c.IsSet("path") {
		opts = append(opts, config.WithPath(c.String("path")))
	}
	if c.IsSet("uri") {
		opts = append(opts, config.WithURI(c.String("uri")))
	}
	if c.IsSet("log-level") {
		opts = append(opts, config.WithLogLevel(c.String("log-level")))
	}
	if c.IsSet("workers") && c.Int("workers") > 0 {
		opts = append(opts, config.WithWorkers(c.Int("workers")))
	}
	cfg, err := config.Load(c.String("config"), opts...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*persimmon.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	db, err := persimmon.Open(c.Context, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))
	if !c.IsSet("log-level") {
		if cfg, err := config.Load(c.String("config")); err == nil && cfg.Logging.Level != "" {
			levelStr = strings.ToLower(cfg.Logging.Level)
		}
	}

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
