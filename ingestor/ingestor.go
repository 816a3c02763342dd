package ingestor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baldanca/bike-ingestor/encoder"
	"github.com/baldanca/bike-ingestor/notify"
	"github.com/baldanca/bike-ingestor/sink"
	"github.com/baldanca/bike-ingestor/source"
)

type Config struct {
	// PageSize is the number of records requested per page.
	PageSize int
	// MaxPages bounds the number of pages a single run may request.
	MaxPages int
	// StopOnShortPage ends pagination on a page smaller than PageSize instead
	// of waiting for an empty page.
	StopOnShortPage bool
}

var DefaultConfig = Config{
	PageSize: 1000,
	MaxPages: 100,
}

func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return errors.New("PageSize must be > 0")
	}
	if c.MaxPages <= 0 {
		return errors.New("MaxPages must be > 0")
	}
	return nil
}

// Report summarizes one run. It is returned even when the run fails.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	// Pages is the number of distinct page ranges requested, Requests counts
	// every attempt including retries.
	Pages    int
	Requests int
	Records  int

	Bucket   string
	Key      string
	Bytes    int
	Notified bool
}

type Ingestor struct {
	cfg      Config
	source   source.Sourcer
	encoder  encoder.Encoder
	sink     sink.Sinkr
	keyFunc  KeyFunc
	notifier notify.Notifier

	retry RetryPolicy
	log   zerolog.Logger
	now   func() time.Time
}

// Option configures optional collaborators of an Ingestor.
type Option func(*Ingestor)

func WithLogger(log zerolog.Logger) Option {
	return func(i *Ingestor) { i.log = log }
}

// WithRetryPolicy sets the policy applied to page fetches and the artifact
// write. The default performs every call exactly once.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(i *Ingestor) {
		if p == nil {
			p = nopRetry{}
		}
		i.retry = p
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(i *Ingestor) {
		if n == nil {
			n = notify.Nop{}
		}
		i.notifier = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(i *Ingestor) {
		if now != nil {
			i.now = now
		}
	}
}

func New(
	cfg Config,
	src source.Sourcer,
	enc encoder.Encoder,
	sk sink.Sinkr,
	keyFunc KeyFunc,
	opts ...Option,
) (*Ingestor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("source is nil")
	}
	if enc == nil {
		return nil, fmt.Errorf("encoder is nil")
	}
	if sk == nil {
		return nil, fmt.Errorf("sink is nil")
	}
	if keyFunc == nil {
		return nil, fmt.Errorf("keyFunc is nil")
	}

	i := &Ingestor{
		cfg:      cfg,
		source:   src,
		encoder:  enc,
		sink:     sk,
		keyFunc:  keyFunc,
		notifier: notify.Nop{},
		retry:    nopRetry{},
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Run paginates the source until it reports an empty page, then writes the
// whole snapshot as one artifact. Nothing is written when any page fails.
//
// Every returned error is a *StageError.
func (i *Ingestor) Run(ctx context.Context) (Report, error) {
	rep := Report{RunID: uuid.NewString(), StartedAt: i.now()}
	log := i.log.With().Str("run_id", rep.RunID).Logger()

	log.Info().Int("page_size", i.cfg.PageSize).Msg("ingestion started")

	snapshot, err := i.collect(ctx, log, &rep)
	if err != nil {
		return i.fail(log, rep, asStageError(StageFetch, err))
	}

	key, err := i.keyFunc(ctx, rep.StartedAt)
	if err != nil {
		return i.fail(log, rep, fatal(StageWrite, fmt.Errorf("artifact key: %w", err)))
	}
	rep.Key = key

	data, err := i.encoder.Encode(ctx, snapshot)
	if err != nil {
		return i.fail(log, rep, fatal(StageEncode, err))
	}
	rep.Bytes = len(data)

	req := sink.WriteRequest{
		Key:         key,
		Data:        data,
		ContentType: i.encoder.ContentType(),
		Metadata: map[string]string{
			"run-id":       rep.RunID,
			"record-count": strconv.Itoa(len(snapshot)),
			"ingested-at":  rep.StartedAt.UTC().Format(time.RFC3339),
		},
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	err = i.retry.Do(ctx, func(ctx context.Context) error {
		if err := i.sink.Write(ctx, req); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("artifact write attempt failed")
			return writeError(err)
		}
		return nil
	})
	if err != nil {
		return i.fail(log, rep, asStageError(StageWrite, err))
	}

	if b, ok := i.sink.(interface{ Bucket() string }); ok {
		rep.Bucket = b.Bucket()
	}
	if k, ok := i.sink.(interface{ ObjectKey(string) string }); ok {
		rep.Key = k.ObjectKey(key)
	}

	if err := i.notifier.Notify(ctx, notify.ArtifactEvent{
		RunID:       rep.RunID,
		Bucket:      rep.Bucket,
		Key:         rep.Key,
		ContentType: req.ContentType,
		Records:     rep.Records,
		Bytes:       rep.Bytes,
		IngestedAt:  rep.StartedAt,
	}); err != nil {
		log.Warn().Err(err).Str("key", rep.Key).Msg("artifact notification failed")
	} else {
		rep.Notified = true
	}

	rep.Duration = i.now().Sub(rep.StartedAt)
	log.Info().
		Str("bucket", rep.Bucket).
		Str("key", rep.Key).
		Int("pages", rep.Pages).
		Int("records", rep.Records).
		Int("bytes", rep.Bytes).
		Dur("duration", rep.Duration).
		Msg("ingestion finished")

	return rep, nil
}

// collect fetches pages in order and returns their concatenated records.
func (i *Ingestor) collect(ctx context.Context, log zerolog.Logger, rep *Report) ([]json.RawMessage, error) {
	var snapshot []json.RawMessage

	for start := 1; ; start += i.cfg.PageSize {
		if rep.Pages >= i.cfg.MaxPages {
			return nil, fatal(StageParse, fmt.Errorf("%w: %d pages without an empty page", ErrPageLimit, i.cfg.MaxPages))
		}
		end := start + i.cfg.PageSize - 1
		rep.Pages++

		var page source.Page
		err := i.retry.Do(ctx, func(ctx context.Context) error {
			rep.Requests++
			p, err := i.source.FetchPage(ctx, start, end)
			if err != nil {
				log.Warn().Err(err).Int("start", start).Int("end", end).Msg("page fetch failed")
				return fetchError(err)
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, asStageError(StageFetch, err)
		}

		switch page.Status {
		case source.PageEmpty:
			log.Debug().Int("start", start).Int("end", end).Str("code", page.Code).Msg("empty page, pagination done")
			return snapshot, nil

		case source.PageMalformed:
			return nil, fatal(StageParse, fmt.Errorf("%w [%d, %d]: %s", ErrMalformedPage, start, end, page.Reason))

		case source.PageRecords:
			snapshot = append(snapshot, page.Records...)
			rep.Records = len(snapshot)
			log.Info().
				Int("start", start).
				Int("end", end).
				Int("records", len(page.Records)).
				Int("total", rep.Records).
				Int("list_total_count", page.TotalCount).
				Msg("page fetched")

			if i.cfg.StopOnShortPage && len(page.Records) < i.cfg.PageSize {
				return snapshot, nil
			}

		default:
			return nil, fatal(StageParse, fmt.Errorf("unknown page status %v", page.Status))
		}
	}
}

func (i *Ingestor) fail(log zerolog.Logger, rep Report, se *StageError) (Report, error) {
	rep.Duration = i.now().Sub(rep.StartedAt)

	log.Error().
		Err(se.Err).
		Str("stage", string(se.Stage)).
		Str("class", se.Class.String()).
		Str("key", rep.Key).
		Int("pages", rep.Pages).
		Int("records", rep.Records).
		Msg("ingestion failed")

	return rep, se
}

// asStageError keeps StageErrors and classifies anything else (context
// errors raised by a retry policy) as fatal.
func asStageError(stage Stage, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	return fatal(stage, err)
}
