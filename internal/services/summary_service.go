// Package services – SummaryService
//
// This file implements SummaryService, the summarization workflow. A request
// runs through exactly one of four terminal outcomes:
//
//   - no API key configured: a diagnostic string, no upstream call, no save
//   - the upstream call fails: a diagnostic string, no save
//   - the upstream answers with zero choices: a diagnostic string, no save
//   - success: the first choice is persisted as a SummaryRecord and returned
//
// Diagnostics are returned in place of the summary so that clients always
// receive a readable string; the error return is reserved for storage
// failures. The service also serves the history (list, page, delete) and
// replays results recorded under an Idempotency-Key.
//
// Observability: public methods are OpenTelemetry-instrumented, outcomes are
// counted in Prometheus, and logs go through the request-scoped zerolog
// logger carried by ctx.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gorm.io/gorm"

	"github.com/tbourn/go-summary-backend/internal/config"
	"github.com/tbourn/go-summary-backend/internal/domain"
	"github.com/tbourn/go-summary-backend/internal/llm"
	"github.com/tbourn/go-summary-backend/internal/repo"
	"github.com/tbourn/go-summary-backend/internal/utils"
)

// Diagnostic strings returned in place of a summary.
const (
	DiagMissingAPIKey = "error: completion API key is not configured; set GROQ_API_KEY before starting the service"
	DiagEmptyResponse = "error: completion API returned an empty response; check that the API key is valid"
	DiagCallFailed    = "call to completion API failed: "
)

// Fixed completion parameters.
const (
	completionTemperature = 1.0
	completionTopP        = 1.0
	completionMaxTokens   = 8192
	completionEffort      = "medium"
)

// Completer performs a single chat-completion call. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, apiKey string, req llm.Request) (*llm.Result, error)
}

// SummaryRepo defines the persistence contract required by SummaryService.
type SummaryRepo interface {
	CreateSummary(ctx context.Context, db *gorm.DB, rec *domain.SummaryRecord) error
	GetSummary(ctx context.Context, db *gorm.DB, id uint) (*domain.SummaryRecord, error)
	ListSummaries(ctx context.Context, db *gorm.DB) ([]domain.SummaryRecord, error)
	CountSummaries(ctx context.Context, db *gorm.DB) (int64, error)
	ListSummariesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.SummaryRecord, error)
	DeleteSummary(ctx context.Context, db *gorm.DB, id uint) error
	SummariesStats(ctx context.Context, db *gorm.DB) (count int64, maxID uint, newest *time.Time, err error)
	GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, key string, recordID uint, ttl time.Duration) (*domain.Idempotency, error)
}

// SummaryConfig carries the completion settings the workflow needs.
type SummaryConfig struct {
	APIKey   string
	Model    string
	Language string // BCP-47 tag, e.g. "zh-Hant"

	// IdempotencyTTL bounds how long a recorded Idempotency-Key replays.
	IdempotencyTTL time.Duration
}

// SummaryConfigFrom builds a SummaryConfig from the application config.
func SummaryConfigFrom(cfg config.Config) SummaryConfig {
	return SummaryConfig{
		APIKey:         cfg.Completion.APIKey,
		Model:          cfg.Completion.Model,
		Language:       cfg.Completion.Language,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
}

// Outcome is the result of a Create call.
type Outcome struct {
	// Summary is the summary text or a diagnostic string.
	Summary string
	// Record is the persisted record; nil for diagnostic outcomes.
	Record *domain.SummaryRecord
	// Replayed is true when Summary came from an earlier request with the
	// same Idempotency-Key.
	Replayed bool
}

// SummaryService runs the summarization workflow and serves the history.
type SummaryService struct {
	DB     *gorm.DB
	Repo   SummaryRepo
	Client Completer
	Config SummaryConfig

	now func() time.Time
}

// NewSummaryService wires a SummaryService.
func NewSummaryService(db *gorm.DB, r SummaryRepo, c Completer, cfg SummaryConfig) *SummaryService {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &SummaryService{DB: db, Repo: r, Client: c, Config: cfg, now: time.Now}
}

// Summarize runs the workflow for content and returns the summary or a
// diagnostic string. A non-nil error means the summary could not be stored.
func (s *SummaryService) Summarize(ctx context.Context, content string) (string, error) {
	out, err := s.Create(ctx, content, "")
	if err != nil {
		return "", err
	}
	return out.Summary, nil
}

// Create runs the workflow like Summarize and also returns the persisted
// record. When idemKey is set, a still-valid earlier result for the same key
// is replayed without calling upstream, and a newly persisted record is
// recorded under the key.
func (s *SummaryService) Create(ctx context.Context, content, idemKey string) (*Outcome, error) {
	tr := otel.Tracer("services/SummaryService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.Int("content.length", len(content)),
			attribute.Bool("idempotency.key_present", idemKey != ""),
		),
	)
	defer span.End()
	log := zerolog.Ctx(ctx)

	if idemKey != "" {
		rec, err := s.Replay(ctx, idemKey)
		switch {
		case err == nil:
			span.SetAttributes(attribute.Bool("idempotency.replayed", true))
			return &Outcome{Summary: rec.SummaryText, Record: rec, Replayed: true}, nil
		case !errors.Is(err, ErrNoReplay):
			span.RecordError(err)
			span.SetStatus(codes.Error, "replay lookup failed")
			return nil, err
		}
	}

	if strings.TrimSpace(s.Config.APIKey) == "" {
		summaryRequests.WithLabelValues(outcomeMissingKey).Inc()
		log.Warn().Msg("summary requested but no completion API key is configured")
		return &Outcome{Summary: DiagMissingAPIKey}, nil
	}

	start := time.Now()
	res, err := s.Client.Complete(ctx, s.Config.APIKey, llm.Request{
		Model:               s.Config.Model,
		Prompt:              s.prompt(content),
		Temperature:         completionTemperature,
		TopP:                completionTopP,
		MaxCompletionTokens: completionMaxTokens,
		ReasoningEffort:     completionEffort,
	})
	completionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		summaryRequests.WithLabelValues(outcomeUpstreamError).Inc()
		span.RecordError(err)
		log.Error().Err(err).Str("model", s.Config.Model).Msg("completion call failed")
		return &Outcome{Summary: DiagCallFailed + err.Error()}, nil
	}
	if res == nil || len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0]) == "" {
		summaryRequests.WithLabelValues(outcomeEmptyResponse).Inc()
		log.Warn().Str("model", s.Config.Model).Msg("completion returned no usable choice")
		return &Outcome{Summary: DiagEmptyResponse}, nil
	}
	if res.TotalTokens > 0 {
		completionTokens.Add(float64(res.TotalTokens))
	}

	rec := &domain.SummaryRecord{
		SourceType:    domain.SourceTypeText,
		SourceContent: content,
		SummaryText:   res.Choices[0],
	}
	if err := s.Repo.CreateSummary(ctx, s.DB, rec); err != nil {
		summaryRequests.WithLabelValues(outcomeStorageError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist summary")
		return nil, err
	}
	summaryRequests.WithLabelValues(outcomeSuccess).Inc()
	span.SetAttributes(attribute.Int64("summary.id", int64(rec.ID)))

	if idemKey != "" {
		if _, err := s.Repo.CreateIdempotency(ctx, s.DB, idemKey, rec.ID, s.Config.IdempotencyTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			// The summary is stored; only replay of this key is lost.
			log.Warn().Err(err).Uint("summary_id", rec.ID).Msg("failed to record idempotency key")
		}
	}
	return &Outcome{Summary: rec.SummaryText, Record: rec}, nil
}

// Replay returns the record previously produced under key, or ErrNoReplay
// when the key is unknown, expired, or its record has been deleted.
func (s *SummaryService) Replay(ctx context.Context, key string) (*domain.SummaryRecord, error) {
	idem, err := s.Repo.GetIdempotency(ctx, s.DB, key, s.clock().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoReplay
	}
	if err != nil {
		return nil, err
	}
	rec, err := s.Repo.GetSummary(ctx, s.DB, idem.RecordID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoReplay
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// History returns every stored record, newest first.
func (s *SummaryService) History(ctx context.Context) ([]domain.SummaryRecord, error) {
	tr := otel.Tracer("services/SummaryService")
	ctx, span := tr.Start(ctx, "History")
	defer span.End()

	return s.Repo.ListSummaries(ctx, s.DB)
}

// HistoryPage returns one page of the history and the total record count.
func (s *SummaryService) HistoryPage(ctx context.Context, page, pageSize int) ([]domain.SummaryRecord, int64, error) {
	tr := otel.Tracer("services/SummaryService")
	ctx, span := tr.Start(ctx, "HistoryPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := s.Repo.CountSummaries(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.SummaryRecord{}, 0, nil
	}
	items, err := s.Repo.ListSummariesPage(ctx, s.DB, utils.Page{Number: page, Size: pageSize}.Offset(), pageSize)
	return items, total, err
}

// HistoryStats reports the values the history ETag is derived from.
func (s *SummaryService) HistoryStats(ctx context.Context) (count int64, maxID uint, newest *time.Time, err error) {
	return s.Repo.SummariesStats(ctx, s.DB)
}

// Delete removes the record with id. Deleting a missing record succeeds.
func (s *SummaryService) Delete(ctx context.Context, id uint) error {
	tr := otel.Tracer("services/SummaryService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("summary.id", int64(id))),
	)
	defer span.End()

	if err := s.Repo.DeleteSummary(ctx, s.DB, id); err != nil {
		span.RecordError(err)
		return err
	}
	zerolog.Ctx(ctx).Info().Uint("summary_id", id).Msg("summary deleted")
	return nil
}

// prompt builds the user message sent upstream.
func (s *SummaryService) prompt(content string) string {
	return "Please summarize the following content, responding in " + languageName(s.Config.Language) + ":\n\n" + content
}

func (s *SummaryService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// languageName returns the English display name of a BCP-47 tag, falling
// back to the tag itself when it cannot be parsed or named.
func languageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Languages().Name(t); name != "" {
		return name
	}
	return t.String()
}
