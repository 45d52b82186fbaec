package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"canguard/internal/cryptobox"
	"canguard/internal/datastream"
	"canguard/internal/grant"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/requestcontext"
)

// maxConcurrentFetches bounds the parallel fetch+decrypt fan-out.
const maxConcurrentFetches = 8

// GrantGate is the slice of the grant service the pipeline needs.
type GrantGate interface {
	Verify(ctx context.Context, envelope grant.Envelope) (grant.Payload, error)
	ConsumeUse(ctx context.Context, requestID id.RequestID) error
}

// BlobFetcher reads ciphertext blobs from the content store.
type BlobFetcher interface {
	Get(ctx context.Context, cid id.CID) ([]byte, error)
}

// KeySource hands out the data owner's symmetric key.
type KeySource interface {
	KeyFor(ctx context.Context, userID id.UserID) ([]byte, error)
}

// OwnerResolver maps the issuer DID to the owning account.
type OwnerResolver interface {
	UserOf(ctx context.Context, did id.DID) (id.UserID, error)
}

// DecisionStore records the pipeline's only durable output.
type DecisionStore interface {
	Append(ctx context.Context, decision AnalysisDecision) error
	ListByUser(ctx context.Context, userID id.UserID) ([]AnalysisDecision, error)
}

// Service orchestrates the secure analysis pipeline.
type Service struct {
	grants    GrantGate
	blobs     BlobFetcher
	keys      KeySource
	owners    OwnerResolver
	decisions DecisionStore
	scorer    Scorer
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewService(grants GrantGate, blobs BlobFetcher, keys KeySource, owners OwnerResolver, decisions DecisionStore, scorer Scorer, logger *slog.Logger) (*Service, error) {
	if grants == nil {
		return nil, fmt.Errorf("grant gate is required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob fetcher is required")
	}
	if keys == nil {
		return nil, fmt.Errorf("key source is required")
	}
	if owners == nil {
		return nil, fmt.Errorf("owner resolver is required")
	}
	if decisions == nil {
		return nil, fmt.Errorf("decision store is required")
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	return &Service{
		grants:    grants,
		blobs:     blobs,
		keys:      keys,
		owners:    owners,
		decisions: decisions,
		scorer:    scorer,
		tracer:    otel.Tracer("canguard/internal/analysis"),
		logger:    logger,
	}, nil
}

// Run executes one analysis over the grant: verify, fetch+decrypt every
// resource in parallel, score, purge the working set, consume one grant use,
// and persist only the aggregated decision. Per-resource failures are
// absorbed; a run that yields zero usable points fails with NoUsableData and
// persists nothing.
func (s *Service) Run(ctx context.Context, envelope grant.Envelope) (AnalysisDecision, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "analysis.run")
	defer span.End()

	payload, err := s.grants.Verify(ctx, envelope)
	if err != nil {
		observeRun("rejected", start)
		return AnalysisDecision{}, err
	}
	span.SetAttributes(attribute.Int("analysis.resources", len(payload.Resources)))

	ownerID, err := s.owners.UserOf(ctx, payload.IssuerDID)
	if err != nil {
		observeRun("rejected", start)
		return AnalysisDecision{}, err
	}
	key, err := s.keys.KeyFor(ctx, ownerID)
	if err != nil {
		observeRun("error", start)
		return AnalysisDecision{}, dErrors.Wrap(dErrors.CodeInternal, "load data key", err)
	}

	results := s.gather(ctx, payload.Resources, key)
	defer purge(results)

	points := make([]BehavioralPoint, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			s.logger.WarnContext(ctx, "resource unusable",
				"request_id", requestcontext.RequestID(ctx),
				"grant_id", payload.RequestID,
				"cid", r.cid,
				"error", r.err,
			)
			continue
		}
		points = append(points, r.point)
	}
	if len(points) == 0 {
		observeRun("no_usable_data", start)
		return AnalysisDecision{}, dErrors.Newf(dErrors.CodeNoUsableData,
			"none of %d resources could be decrypted", len(results))
	}

	outcome := s.scorer.Score(points)
	clear(points)

	// An abandoned request never persists a partial decision.
	if err := ctx.Err(); err != nil {
		observeRun("abandoned", start)
		return AnalysisDecision{}, dErrors.Wrap(dErrors.CodeInternal, "analysis abandoned", err)
	}

	if err := s.grants.ConsumeUse(ctx, payload.RequestID); err != nil {
		observeRun("exhausted", start)
		return AnalysisDecision{}, err
	}

	decision := AnalysisDecision{
		RequestID:       payload.RequestID,
		UserID:          ownerID,
		Decision:        outcome.Decision,
		Confidence:      outcome.Confidence,
		RiskLevel:       outcome.RiskLevel,
		DataPointsCount: len(points),
		FailedCount:     failed,
		Timestamp:       requestcontext.Now(ctx),
	}
	if err := s.decisions.Append(ctx, decision); err != nil {
		observeRun("error", start)
		return AnalysisDecision{}, dErrors.Wrap(dErrors.CodeStoreUnavailable, "persist decision", err)
	}

	span.SetAttributes(
		attribute.String("analysis.decision", string(decision.Decision)),
		attribute.Int("analysis.data_points", decision.DataPointsCount),
	)
	observeRun("success", start)
	s.logger.InfoContext(ctx, "analysis completed",
		"request_id", requestcontext.RequestID(ctx),
		"grant_id", payload.RequestID,
		"decision", decision.Decision,
		"risk_level", decision.RiskLevel,
		"data_points", decision.DataPointsCount,
		"failed", decision.FailedCount,
	)
	return decision, nil
}

// History lists the user's past decisions, oldest first.
func (s *Service) History(ctx context.Context, userID id.UserID) ([]AnalysisDecision, error) {
	decisions, err := s.decisions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeStoreUnavailable, "list decisions", err)
	}
	return decisions, nil
}

// gather runs the per-resource fetch+decrypt stage in parallel. Goroutines
// record failures instead of returning them so one bad resource never
// cancels its siblings.
func (s *Service) gather(ctx context.Context, resources []id.CID, key []byte) []resourceResult {
	results := make([]resourceResult, len(resources))

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentFetches)
	for i, cid := range resources {
		g.Go(func() error {
			results[i] = s.fetchAndDecrypt(ctx, cid, key)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) fetchAndDecrypt(ctx context.Context, cid id.CID, key []byte) resourceResult {
	raw, err := s.blobs.Get(ctx, cid)
	if err != nil {
		resourceFailures.WithLabelValues("fetch").Inc()
		return resourceResult{cid: cid, err: fmt.Errorf("fetch: %w", err)}
	}

	var blob datastream.EncryptedBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		resourceFailures.WithLabelValues("decode").Inc()
		return resourceResult{cid: cid, err: fmt.Errorf("decode blob: %w", err)}
	}

	plaintext, err := cryptobox.Open(blob.EncryptedData, blob.Nonce, key)
	if err != nil {
		resourceFailures.WithLabelValues("decrypt").Inc()
		return resourceResult{cid: cid, err: dErrors.Wrap(dErrors.CodeDecryptionFailure, "open resource", err)}
	}

	var point BehavioralPoint
	if err := json.Unmarshal(plaintext, &point); err != nil {
		cryptobox.Wipe(plaintext)
		resourceFailures.WithLabelValues("decode").Inc()
		return resourceResult{cid: cid, err: fmt.Errorf("decode point: %w", err)}
	}
	return resourceResult{cid: cid, point: point, raw: plaintext}
}

// purge zeroes every decrypted buffer. Runs on every exit path.
func purge(results []resourceResult) {
	for i := range results {
		cryptobox.Wipe(results[i].raw)
		results[i].raw = nil
		results[i].point = BehavioralPoint{}
	}
}
