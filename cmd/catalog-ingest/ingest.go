package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/nks-storefront/internal/domain/product"
	"github.com/xenking/nks-storefront/internal/storage/document"
)

const (
	bloomFPR      = 0.001
	progressEvery = 10_000
	maxLine       = 1 << 20
)

// stats counts what one ingest run did.
type stats struct {
	written    atomic.Int64
	skipped    atomic.Int64
	duplicates atomic.Int64
}

// ingester streams NDJSON product files into a product.Writer.
//
// Every line is one product document with a string "id" field. Ids seen
// before, in the same file or another one, are reported as probable
// duplicates through a shared bloom filter; the later document still wins.
type ingester struct {
	writer product.Writer

	mu   sync.Mutex
	seen *bloom.BloomFilter

	stats stats
}

func newIngester(w product.Writer, expected uint) *ingester {
	return &ingester{
		writer: w,
		seen:   bloom.NewWithEstimates(max(expected, 1024), bloomFPR),
	}
}

// run ingests files concurrently, at most limit at a time.
func (in *ingester) run(ctx context.Context, files []string, limit int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for _, f := range files {
		g.Go(func() error {
			return in.ingestFile(ctx, f)
		})
	}
	return g.Wait()
}

func (in *ingester) ingestFile(ctx context.Context, path string) error {
	r, closeFn, err := openFile(path)
	if err != nil {
		return err
	}
	defer closeFn()

	var n int64
	if err := streamLines(ctx, r, func(line []byte) error {
		n++
		if err := in.ingestLine(ctx, line); err != nil {
			return errors.Wrapf(err, "%s:%d", path, n)
		}
		if n%progressEvery == 0 {
			slog.Info("ingest progress", slog.String("file", path), slog.Int64("lines", n))
		}
		return nil
	}); err != nil {
		return err
	}

	slog.Info("file complete", slog.String("file", path), slog.Int64("lines", n))
	return nil
}

func (in *ingester) ingestLine(ctx context.Context, line []byte) error {
	doc, err := document.Decode(line)
	if err != nil {
		in.stats.skipped.Add(1)
		slog.Warn("skipping malformed document", slog.String("error", err.Error()))
		return nil
	}
	id, _ := doc["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		in.stats.skipped.Add(1)
		slog.Warn("skipping document without id")
		return nil
	}
	delete(doc, "id")

	if in.testAndAdd(id) {
		in.stats.duplicates.Add(1)
		slog.Warn("probable duplicate product id", slog.String("id", id))
	}

	if err := in.writer.Upsert(ctx, id, doc); err != nil {
		return errors.Wrapf(err, "upsert %s", id)
	}
	in.stats.written.Add(1)
	return nil
}

func (in *ingester) testAndAdd(id string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.seen.TestOrAddString(id)
}

// openFile opens path, decompressing it when it ends in .gz.
func openFile(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, func() { _ = f.Close() }, nil
	}
	gz, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return gz, func() {
		_ = gz.Close()
		_ = f.Close()
	}, nil
}

// streamLines calls fn for each non-blank line of r.
func streamLines(ctx context.Context, r io.Reader, fn func(line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan")
	}
	return nil
}
