package logevents

import (
	"autoblock/objectstore"
	"autoblock/waf"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const s3Scheme = "s3://"

// DefaultConcurrency is how many log objects are downloaded at once.
const DefaultConcurrency = 4

// DefaultLocalScope is the scope of batches read from local files.
const DefaultLocalScope = "local"

// Location is where a log object lives: an object store bucket and key, or a local path.
type Location struct {
	Bucket string
	Key    string
	Path   string
}

// ParseLocation parses "s3://bucket/key" or a local file path.
func ParseLocation(uri string) (loc Location, err error) {
	if !strings.HasPrefix(uri, s3Scheme) {
		loc.Path = strings.TrimPrefix(uri, "file://")
		if loc.Path == "" {
			err = fmt.Errorf("empty log location")
		}
		return
	}

	bucket, key, found := strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if !found || bucket == "" || key == "" {
		err = fmt.Errorf("invalid log location %q, expected s3://bucket/key", uri)
		return
	}

	loc.Bucket, loc.Key = bucket, key
	return
}

func (l Location) String() string {
	if l.Path != "" {
		return l.Path
	}
	return s3Scheme + l.Bucket + "/" + l.Key
}

func (l Location) name() string {
	if l.Path != "" {
		return l.Path
	}
	return l.Key
}

// ReaderOptions tunes a Reader.
type ReaderOptions struct {
	// Concurrency bounds parallel downloads. Zero means DefaultConcurrency.
	Concurrency int

	// LocalScope is the scope of batches read from local files. Empty means DefaultLocalScope.
	LocalScope string
}

// Reader fetches and decodes log objects.
type Reader struct {
	logger      zerolog.Logger
	decoder     *Decoder
	objects     objectstore.Store
	concurrency int
	localScope  string
}

// NewReader creates a reader. objects may be nil when only local files are read.
func NewReader(logger zerolog.Logger, decoder *Decoder, objects objectstore.Store, opts ReaderOptions) *Reader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	if opts.LocalScope == "" {
		opts.LocalScope = DefaultLocalScope
	}

	return &Reader{
		logger:      logger,
		decoder:     decoder,
		objects:     objects,
		concurrency: opts.Concurrency,
		localScope:  opts.LocalScope,
	}
}

// ReadBatches returns one batch per log object, in the order given. Objects whose name does not end with the
// format's suffix are skipped. The scope of a batch is the bucket of its object.
func (r *Reader) ReadBatches(ctx context.Context, uris []string) (batches []waf.LogBatch, err error) {
	var locations []Location
	for _, uri := range uris {
		var loc Location
		if loc, err = ParseLocation(uri); err != nil {
			return
		}

		if !strings.HasSuffix(loc.name(), r.decoder.Format().Suffix()) {
			r.logger.Info().Str("key", loc.String()).Msg("Skipping object that is not a log file")
			continue
		}
		locations = append(locations, loc)
	}

	results := make([]waf.LogBatch, len(locations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, loc := range locations {
		g.Go(func() (err error) {
			results[i], err = r.readBatch(gctx, loc)
			return
		})
	}

	if err = g.Wait(); err != nil {
		return
	}

	batches = results
	return
}

// ReadWindow lists the objects under prefix modified since from, then returns a single batch holding
// their events with a timestamp in [from, to).
func (r *Reader) ReadWindow(ctx context.Context, bucket string, prefix string, from time.Time, to time.Time) (batch waf.LogBatch, err error) {
	lister, ok := r.objects.(objectstore.Lister)
	if !ok {
		err = fmt.Errorf("object store cannot list objects")
		return
	}

	infos, err := lister.List(ctx, bucket, prefix, from)
	if err != nil {
		return
	}

	uris := make([]string, 0, len(infos))
	for _, info := range infos {
		uris = append(uris, Location{Bucket: bucket, Key: info.Key}.String())
	}

	batches, err := r.ReadBatches(ctx, uris)
	if err != nil {
		return
	}

	batch.Scope = bucket
	for _, b := range batches {
		batch.Sources = append(batch.Sources, b.Sources...)
		batch.Events = append(batch.Events, FilterWindow(b.Events, from, to)...)
	}

	r.logger.Info().
		Str("bucket", bucket).
		Int("objects", len(batch.Sources)).
		Int("events", len(batch.Events)).
		Time("from", from).
		Time("to", to).
		Msg("Read log window")
	return
}

func (r *Reader) readBatch(ctx context.Context, loc Location) (batch waf.LogBatch, err error) {
	var data io.Reader
	var scope string

	if loc.Path != "" {
		var f *os.File
		if f, err = os.Open(loc.Path); err != nil {
			err = fmt.Errorf("failed to open log file: %w", err)
			return
		}
		defer f.Close()
		data, scope = f, r.localScope
	} else {
		if r.objects == nil {
			err = fmt.Errorf("no object store configured to read %s", loc)
			return
		}

		var b []byte
		if b, err = r.objects.Get(ctx, loc.Bucket, loc.Key); err != nil {
			return
		}
		data, scope = bytes.NewReader(b), loc.Bucket
	}

	r.logger.Info().Str("bucket", scope).Str("key", loc.name()).Msg("Reading log object")

	events, skipped, err := r.decoder.Decode(data)
	if err != nil {
		err = fmt.Errorf("failed to decode %s: %w", loc, err)
		return
	}

	if skipped > 0 {
		r.logger.Warn().Str("key", loc.String()).Int("skipped", skipped).Msg("Skipped undecodable log lines")
	}

	batch = waf.LogBatch{Scope: scope, Sources: []string{loc.String()}, Events: events}
	return
}
