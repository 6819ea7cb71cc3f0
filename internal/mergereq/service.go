package mergereq

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lherron/recmerge/internal/domain"
	"github.com/lherron/recmerge/internal/merge"
	"github.com/lherron/recmerge/internal/record"
	"github.com/lherron/recmerge/internal/selection"
	"github.com/lherron/recmerge/internal/store"
)

// StatusOK is reported by every merge that completed.
const StatusOK = "OK"

// RecordStore is the persistence the service needs.
type RecordStore interface {
	Get(uri string) (record.Record, error)
	Assimilate(targetURI string, victimURIs []string) (*store.AssimilateResult, error)
	AssimilateAndUpdate(targetURI string, victimURIs []string, updated record.Record) (*store.AssimilateResult, error)
}

// Result is the reply to a persisted merge.
type Result struct {
	Status      string                  `json:"status"`
	RequestID   string                  `json:"request_id"`
	Assimilated *store.AssimilateResult `json:"assimilated,omitempty"`
}

// DetailResult is the reply to a detailed merge. A dry run fills Preview and
// leaves Assimilated empty.
type DetailResult struct {
	Result
	Steps   []merge.Step  `json:"steps,omitempty"`
	Skipped []string      `json:"skipped,omitempty"`
	Preview record.Record `json:"preview,omitempty"`

	// Target is the target as loaded, before any selection was applied.
	Target record.Record `json:"-"`
}

// Service carries out merge requests.
type Service struct {
	records RecordStore
	engine  *merge.Engine
	logger  *zap.Logger
}

// NewService creates a service over records. A nil logger discards output.
func NewService(records RecordStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records: records,
		engine:  merge.New(logger.Named("merge")),
		logger:  logger,
	}
}

// Merge folds the request's victims into its target. repoID is only
// consulted for resource and digital_object merges, whose records must all
// live in that repository.
func (s *Service) Merge(kind Kind, req MergeRequest, repoID int64) (*Result, error) {
	target, victims, err := domain.ParseReferences(domain.FieldMergeRequest, req.Target.Ref, req.VictimURIs())
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindSubject:
		err = domain.EnsureType(target, victims, domain.RecordTypeSubject)
	case KindContainerProfile:
		err = domain.EnsureType(target, victims, domain.RecordTypeContainerProfile)
	case KindAgent:
		err = domain.EnsureAgents(domain.FieldMergeRequest, target, victims)
	case KindResource:
		if err = domain.CheckRepository(target, victims, repoID); err == nil {
			err = domain.EnsureType(target, victims, domain.RecordTypeResource)
		}
	case KindDigitalObject:
		if err = domain.CheckRepository(target, victims, repoID); err == nil {
			err = domain.EnsureType(target, victims, domain.RecordTypeDigitalObject)
		}
	default:
		err = fmt.Errorf("unknown merge kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	assimilated, err := s.records.Assimilate(target.URI, uris(victims))
	if err != nil {
		return nil, fmt.Errorf("failed to merge into %s: %w", target.URI, err)
	}

	result := &Result{Status: StatusOK, RequestID: uuid.NewString(), Assimilated: assimilated}
	s.logger.Info("merge completed",
		zap.String("request_id", result.RequestID),
		zap.String("kind", string(kind)),
		zap.String("target", target.URI),
		zap.Strings("victims", uris(victims)),
		zap.Bool("dry_run", false))
	return result, nil
}

// MergeDetail merges agent records, copying the selected fields of the first
// victim into the target. With dryRun nothing is written and the merged
// target is returned as a preview.
func (s *Service) MergeDetail(req MergeRequestDetail, dryRun bool) (*DetailResult, error) {
	field := domain.FieldMergeRequestDetail
	target, victims, err := domain.ParseReferences(field, req.Target.Ref, req.VictimURIs())
	if err != nil {
		return nil, err
	}
	sel, err := selection.ParseBytes(req.Selections)
	if err != nil {
		return nil, &domain.ValidationError{Field: field, Kind: "invalid_selections", Message: err.Error()}
	}
	if err := domain.EnsureAgents(field, target, victims); err != nil {
		return nil, err
	}

	targetRec, err := s.records.Get(target.URI)
	if err != nil {
		return nil, err
	}
	victimRec, err := s.records.Get(victims[0].URI)
	if err != nil {
		return nil, err
	}

	result := &DetailResult{
		Result: Result{Status: StatusOK, RequestID: uuid.NewString()},
		Target: targetRec.Clone(),
	}

	// Event links follow the records through assimilation, not selection.
	working, detached := targetRec.Clone(), victimRec.Clone()
	delete(working, "linked_events")
	delete(detached, "linked_events")

	if dryRun {
		res, err := s.engine.DryRun(working, detached, sel)
		if err != nil {
			return nil, err
		}
		if err := s.resolveRelatedAgents(res.Record); err != nil {
			return nil, err
		}
		result.Steps, result.Skipped, result.Preview = res.Steps, res.Skipped(), res.Record
	} else {
		res, err := s.engine.Apply(working, detached, sel)
		if err != nil {
			return nil, err
		}
		var updated record.Record
		if !sel.Empty() {
			updated = res.Record
			if events, ok := targetRec["linked_events"]; ok {
				updated["linked_events"] = events
			}
		}
		assimilated, err := s.records.AssimilateAndUpdate(target.URI, uris(victims), updated)
		if err != nil {
			return nil, fmt.Errorf("failed to merge into %s: %w", target.URI, err)
		}
		result.Steps, result.Skipped, result.Assimilated = res.Steps, res.Skipped(), assimilated
	}

	s.logger.Info("merge completed",
		zap.String("request_id", result.RequestID),
		zap.String("kind", "agent_detail"),
		zap.String("target", target.URI),
		zap.Strings("victims", uris(victims)),
		zap.Strings("selections", sel.Strings()),
		zap.Bool("dry_run", dryRun))
	return result, nil
}

// resolveRelatedAgents embeds the record each related agent points at under
// _resolved. References to records that are not stored stay unresolved.
func (s *Service) resolveRelatedAgents(rec record.Record) error {
	for _, item := range rec.List("related_agents") {
		entry, ok := record.AsMap(item)
		if !ok {
			continue
		}
		ref, _ := entry["ref"].(string)
		if ref == "" {
			continue
		}
		resolved, err := s.records.Get(ref)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("related agent not resolved", zap.String("ref", ref))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", ref, err)
		}
		entry["_resolved"] = map[string]any(resolved)
	}
	return nil
}

func uris(refs []domain.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.URI
	}
	return out
}
