package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/app"
	"github.com/kailas-cloud/shopsearch/internal/config"
	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
	cataloguc "github.com/kailas-cloud/shopsearch/internal/usecase/catalog"
	chatuc "github.com/kailas-cloud/shopsearch/internal/usecase/chat"
	"github.com/kailas-cloud/shopsearch/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "shopsearch-ingest",
		Usage:   "Load product catalogs and open sessions against a shopsearch store",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Config environment (local, dev, prod)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: func(*cli.Context) error {
			// .env is optional; real environment variables win.
			_ = godotenv.Load()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "load",
				Usage:  "Embed and store products from a JSON file",
				Action: loadCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a JSON array of products (or {\"products\": [...]})",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "owner",
						Aliases:  []string{"o"},
						Usage:    "Owner ID the products belong to",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Products per ingestion batch",
						Value: 100,
					},
				},
			},
			{
				Name:   "session",
				Usage:  "Open a chat session for an owner and print its ID",
				Action: sessionCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "owner",
						Aliases:  []string{"o"},
						Usage:    "Owner ID to scope the session to",
						Required: true,
					},
				},
			},
			{
				Name:   "query",
				Usage:  "Send one message to a session and print the reply",
				Action: queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Session ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "text",
						Aliases: []string{"t"},
						Usage:   "Message text",
					},
					&cli.StringFlag{
						Name:  "image",
						Usage: "Path to an image file to search with",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Category hint",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum products to return (0 uses the configured default)",
					},
				},
			},
		},
	}
}

// withApp loads config, builds the logger and the wired services, and
// runs fn with them.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App, logger *zap.Logger) error) error {
	env := c.String("env")
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.ClientName == "" {
		cfg.Database.ClientName = "shopsearch-ingest"
	}
	logger, err := logpkg.New(logpkg.Options{
		Env:     env,
		Level:   c.String("log-level"),
		Service: "shopsearch-ingest",
		Version: version.Version,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := c.Context
	a, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()
	return fn(ctx, a, logger)
}

func loadCommand(c *cli.Context) error {
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive")
	}
	items, err := readProducts(c.String("file"))
	if err != nil {
		return err
	}
	owner := c.String("owner")

	return withApp(c, func(ctx context.Context, a *app.App, logger *zap.Logger) error {
		var inserted, failed int
		for start := 0; start < len(items); start += batchSize {
			end := min(start+batchSize, len(items))
			report, err := a.Catalog.Ingest(ctx, owner, items[start:end])
			if err != nil {
				return fmt.Errorf("ingest batch %d-%d: %w", start, end, err)
			}
			for _, r := range report.Results {
				if r.Err() != nil {
					logger.Warn("Product rejected",
						zap.Int("index", start+r.Index()),
						zap.String("name", r.Name()),
						zap.Error(r.Err()),
					)
				}
			}
			inserted += report.Inserted
			failed += report.Failed
			logger.Info("Batch ingested", zap.Int("from", start), zap.Int("to", end))
		}
		fmt.Fprintf(c.App.Writer, "inserted %d, failed %d\n", inserted, failed)
		return nil
	})
}

func sessionCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App, _ *zap.Logger) error {
		id, err := a.Chat.StartSession(ctx, c.String("owner"))
		if err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		fmt.Fprintln(c.App.Writer, id)
		return nil
	})
}

func queryCommand(c *cli.Context) error {
	req := chatuc.Request{
		SessionID:    c.String("session"),
		Text:         c.String("text"),
		CategoryHint: c.String("category"),
		Limit:        c.Int("limit"),
	}
	if path := c.String("image"); path != "" {
		img, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		req.Image = img
	}

	return withApp(c, func(ctx context.Context, a *app.App, _ *zap.Logger) error {
		resp, err := a.Chat.HandleQuery(ctx, req)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		fmt.Fprintln(c.App.Writer, resp.Text)
		for i := range resp.Products {
			sp := &resp.Products[i]
			fmt.Fprintf(c.App.Writer, "  %5.1f  %s  %s\n", sp.Relevance, sp.Product.ID(), sp.Product.Name())
		}
		return nil
	})
}

// readProducts accepts either a bare JSON array or an object with a
// "products" array.
func readProducts(path string) ([]cataloguc.Item, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var items []cataloguc.Item
	if err := json.Unmarshal(data, &items); err != nil {
		var wrapped struct {
			Products []cataloguc.Item `json:"products"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		items = wrapped.Products
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s contains no products", path)
	}
	return items, nil
}
