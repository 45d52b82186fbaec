package analysis_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"canguard/internal/analysis"
	analysisstore "canguard/internal/analysis/store"
	"canguard/internal/cryptobox"
	"canguard/internal/datastream"
	"canguard/internal/grant"
	grantstore "canguard/internal/grant/store"
	id "canguard/pkg/domain"
	dErrors "canguard/pkg/domain-errors"
	"canguard/pkg/platform/sentinel"
)

// fakeGate skips signature verification and delegates use accounting to a
// real use store, so exhaustion and race behavior match production.
type fakeGate struct {
	payload grant.Payload
	uses    *grantstore.InMemoryUseStore
}

func (g *fakeGate) Verify(ctx context.Context, _ grant.Envelope) (grant.Payload, error) {
	uses, err := g.uses.Uses(ctx, g.payload.RequestID)
	if err != nil {
		return grant.Payload{}, dErrors.New(dErrors.CodeNotFound, "unknown grant")
	}
	if uses >= g.payload.MaxUses {
		return grant.Payload{}, dErrors.New(dErrors.CodeGrantExhausted, "grant use budget exhausted")
	}
	return g.payload, nil
}

func (g *fakeGate) ConsumeUse(ctx context.Context, requestID id.RequestID) error {
	err := g.uses.ConsumeUse(ctx, requestID)
	if errors.Is(err, sentinel.ErrExhausted) {
		return dErrors.New(dErrors.CodeGrantExhausted, "grant use budget exhausted")
	}
	return err
}

type fakeBlobs struct {
	mu    sync.RWMutex
	blobs map[id.CID][]byte
}

func (f *fakeBlobs) Get(_ context.Context, cid id.CID) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if raw, ok := f.blobs[cid]; ok {
		return raw, nil
	}
	return nil, sentinel.ErrNotFound
}

type fixedKeys struct{ key []byte }

func (f fixedKeys) KeyFor(context.Context, id.UserID) ([]byte, error) { return f.key, nil }

type fixedOwner struct{ userID id.UserID }

func (f fixedOwner) UserOf(context.Context, id.DID) (id.UserID, error) { return f.userID, nil }

type PipelineSuite struct {
	suite.Suite
	service   *analysis.Service
	gate      *fakeGate
	blobs     *fakeBlobs
	decisions *analysisstore.InMemoryDecisionStore

	ownerID id.UserID
	key     []byte
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	var err error
	s.key, err = cryptobox.NewKey()
	s.Require().NoError(err)

	s.blobs = &fakeBlobs{blobs: make(map[id.CID][]byte)}
}

// buildService registers a fresh grant over the given resources and wires
// the pipeline against it with an empty decision history.
func (s *PipelineSuite) buildService(resources []id.CID, maxUses int) {
	s.ownerID = id.UserID(uuid.New())
	s.decisions = analysisstore.NewInMemory()
	s.gate = &fakeGate{
		payload: grant.Payload{
			SchemaVersion: grant.PayloadSchemaVersion,
			RequestID:     id.NewRequestID(),
			IssuerDID:     id.DID(id.DIDMethodPrefix + "owner"),
			HolderDID:     id.DID(id.DIDMethodPrefix + "analyst"),
			Resources:     resources,
			Purpose:       id.GrantPurposeBehavioralAnalysis,
			MaxUses:       maxUses,
			IssuedAt:      time.Now(),
			ExpiresAt:     time.Now().Add(time.Hour),
		},
		uses: grantstore.NewInMemory(),
	}
	s.Require().NoError(s.gate.uses.Register(context.Background(), s.gate.payload.RequestID, maxUses))

	var err error
	s.service, err = analysis.NewService(
		s.gate, s.blobs, fixedKeys{key: s.key}, fixedOwner{userID: s.ownerID},
		s.decisions, analysis.NewThresholdScorer(), slog.New(slog.DiscardHandler),
	)
	s.Require().NoError(err)
}

// storePoint seals a behavioral point and stores its blob, returning the CID.
func (s *PipelineSuite) storePoint(point analysis.BehavioralPoint) id.CID {
	plaintext, err := json.Marshal(point)
	s.Require().NoError(err)

	ciphertext, nonce, err := cryptobox.Seal(plaintext, s.key)
	s.Require().NoError(err)

	raw, err := json.Marshal(datastream.EncryptedBlob{
		SchemaVersion: datastream.BlobSchemaVersion,
		EncryptedData: ciphertext,
		Nonce:         nonce,
		Metadata:      datastream.BlobMetadata{DataType: datastream.DataTypeTypingSample},
	})
	s.Require().NoError(err)

	digest := sha256.Sum256(raw)
	cid := id.CID(hex.EncodeToString(digest[:]))
	s.blobs.mu.Lock()
	s.blobs.blobs[cid] = raw
	s.blobs.mu.Unlock()
	return cid
}

func missingCID(seed byte) id.CID {
	digest := sha256.Sum256([]byte{seed})
	return id.CID(hex.EncodeToString(digest[:]))
}

func (s *PipelineSuite) TestRun() {
	s.Run("scores healthy typing and persists one decision", func() {
		resources := []id.CID{
			s.storePoint(analysis.BehavioralPoint{Accuracy: 95, SpeedWPM: 45}),
			s.storePoint(analysis.BehavioralPoint{Accuracy: 92, SpeedWPM: 50}),
		}
		s.buildService(resources, 3)

		decision, err := s.service.Run(context.Background(), grant.Envelope{})
		s.Require().NoError(err)
		s.Equal(analysis.DecisionPass, decision.Decision)
		s.Equal(analysis.RiskLow, decision.RiskLevel)
		s.Equal(2, decision.DataPointsCount)
		s.Equal(0, decision.FailedCount)

		history, err := s.decisions.ListByUser(context.Background(), s.ownerID)
		s.Require().NoError(err)
		s.Len(history, 1)
	})

	s.Run("escalates severely degraded typing", func() {
		resources := []id.CID{
			s.storePoint(analysis.BehavioralPoint{Accuracy: 40, SpeedWPM: 3}),
		}
		s.buildService(resources, 3)

		decision, err := s.service.Run(context.Background(), grant.Envelope{})
		s.Require().NoError(err)
		s.Equal(analysis.DecisionEscalate, decision.Decision)
		s.Equal(analysis.RiskHigh, decision.RiskLevel)
	})

	s.Run("all resources failing yields no usable data and persists nothing", func() {
		resources := []id.CID{missingCID(1), missingCID(2), missingCID(3)}
		s.buildService(resources, 3)

		_, err := s.service.Run(context.Background(), grant.Envelope{})
		s.True(dErrors.HasCode(err, dErrors.CodeNoUsableData))

		history, err := s.decisions.ListByUser(context.Background(), s.ownerID)
		s.Require().NoError(err)
		s.Empty(history)

		uses, err := s.gate.uses.Uses(context.Background(), s.gate.payload.RequestID)
		s.Require().NoError(err)
		s.Equal(0, uses, "a failed run must not burn grant budget")
	})

	s.Run("one usable point of many still produces a decision", func() {
		resources := []id.CID{
			missingCID(4),
			s.storePoint(analysis.BehavioralPoint{Accuracy: 95, SpeedWPM: 45}),
			missingCID(5),
		}
		s.buildService(resources, 3)

		decision, err := s.service.Run(context.Background(), grant.Envelope{})
		s.Require().NoError(err)
		s.Equal(1, decision.DataPointsCount)
		s.Equal(2, decision.FailedCount)
	})

	s.Run("tampered ciphertext is a per-resource failure", func() {
		good := s.storePoint(analysis.BehavioralPoint{Accuracy: 95, SpeedWPM: 45})
		bad := s.storePoint(analysis.BehavioralPoint{Accuracy: 90, SpeedWPM: 40})

		s.blobs.mu.Lock()
		raw := s.blobs.blobs[bad]
		var blob datastream.EncryptedBlob
		s.Require().NoError(json.Unmarshal(raw, &blob))
		blob.EncryptedData[0] ^= 0xFF
		corrupted, err := json.Marshal(blob)
		s.Require().NoError(err)
		s.blobs.blobs[bad] = corrupted
		s.blobs.mu.Unlock()

		s.buildService([]id.CID{good, bad}, 3)

		decision, err := s.service.Run(context.Background(), grant.Envelope{})
		s.Require().NoError(err)
		s.Equal(1, decision.DataPointsCount)
		s.Equal(1, decision.FailedCount)
	})

	s.Run("single-use grant admits exactly one concurrent run", func() {
		resources := []id.CID{
			s.storePoint(analysis.BehavioralPoint{Accuracy: 95, SpeedWPM: 45}),
		}
		s.buildService(resources, 1)

		const workers = 8
		var wg sync.WaitGroup
		outcomes := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.service.Run(context.Background(), grant.Envelope{})
				outcomes <- err
			}()
		}
		wg.Wait()
		close(outcomes)

		var succeeded, exhausted int
		for err := range outcomes {
			switch {
			case err == nil:
				succeeded++
			case dErrors.HasCode(err, dErrors.CodeGrantExhausted):
				exhausted++
			default:
				s.Failf("unexpected outcome", "%v", err)
			}
		}
		s.Equal(1, succeeded)
		s.Equal(workers-1, exhausted)
	})

	s.Run("abandoned request persists nothing", func() {
		resources := []id.CID{
			s.storePoint(analysis.BehavioralPoint{Accuracy: 95, SpeedWPM: 45}),
		}
		s.buildService(resources, 3)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.service.Run(ctx, grant.Envelope{})
		s.Error(err)

		history, err := s.decisions.ListByUser(context.Background(), s.ownerID)
		s.Require().NoError(err)
		s.Empty(history)
	})
}
