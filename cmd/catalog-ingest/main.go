// Command catalog-ingest loads product documents from NDJSON files, plain
// or gzip-compressed, into the configured document store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	firebase "firebase.google.com/go/v4"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/nks-storefront/internal/app"
	"github.com/xenking/nks-storefront/internal/storage/firestore"
)

func main() {
	var (
		cfg      app.Config
		credFile string
		workers  int
		expected uint
	)

	flag.StringVar(&cfg.Store, "store", app.StorePostgres, "document store: postgres, mongo or firestore")
	flag.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&cfg.Mongo.URI, "mongo-uri", "", "MongoDB connection URI")
	flag.StringVar(&cfg.Mongo.Database, "mongo-database", "nks", "MongoDB database name")
	flag.StringVar(&cfg.Firebase.ProjectID, "firebase-project", "", "Firebase project id")
	flag.StringVar(&credFile, "firebase-credentials", "", "path to a service account JSON file")
	flag.IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "files ingested in parallel")
	flag.UintVar(&expected, "expected", 1_000_000, "expected number of products, sizes the duplicate filter")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: catalog-ingest [flags] FILE...")
		os.Exit(2)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, &cfg, credFile, files, workers, expected); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, cfg *app.Config, credFile string, files []string, workers int, expected uint) error {
	var fb *firebase.App
	if cfg.Store == app.StoreFirestore {
		var creds []byte
		if credFile != "" {
			b, err := os.ReadFile(credFile)
			if err != nil {
				return errors.Wrap(err, "read credentials")
			}
			creds = b
		}
		var err error
		if fb, err = firestore.NewApp(ctx, cfg.Firebase.ProjectID, string(creds)); err != nil {
			return err
		}
	}

	stores, err := app.OpenStores(ctx, zap.NewNop(), cfg, fb)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer stores.Close()

	in := newIngester(stores.Writer, expected)
	err = in.run(ctx, files, workers)

	slog.Info("ingest summary",
		slog.Int64("written", in.stats.written.Load()),
		slog.Int64("skipped", in.stats.skipped.Load()),
		slog.Int64("duplicates", in.stats.duplicates.Load()),
	)
	return err
}
