package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNoHierarchySource is returned by lookups when no hierarchy source is
// configured. Callers recover by falling back to a single-level hierarchy.
var ErrNoHierarchySource = errors.New("no hierarchy source configured")

// Service builds patient-count hierarchies from stored clinical data.
type Service struct {
	events EventRepository
	source HierarchySource
	cache  HierarchyCache
	engine *Engine
	logger zerolog.Logger
}

// NewService creates a new hierarchy service. source and cache may be nil.
func NewService(events EventRepository, source HierarchySource, cache HierarchyCache, engine *Engine, logger zerolog.Logger) *Service {
	return &Service{events: events, source: source, cache: cache, engine: engine, logger: logger}
}

// Engine returns the engine used by the service.
func (s *Service) Engine() *Engine {
	return s.engine
}

// LoadResources fetches the three clinical resource kinds concurrently.
func (s *Service) LoadResources(ctx context.Context) (ClinicalResources, error) {
	var out ClinicalResources
	if s.events == nil {
		return out, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rs, err := s.events.ListConditions(gCtx)
		out.Conditions = rs
		return err
	})
	g.Go(func() error {
		rs, err := s.events.ListProcedures(gCtx)
		out.Procedures = rs
		return err
	})
	g.Go(func() error {
		rs, err := s.events.ListMedicationRequests(gCtx)
		out.Medications = rs
		return err
	})
	if err := g.Wait(); err != nil {
		return ClinicalResources{}, fmt.Errorf("load clinical resources: %w", err)
	}
	return out, nil
}

// PatientHierarchy builds the hierarchy for all stored clinical data. With no
// coded events the result is empty. When the hierarchy lookup fails or
// returns nothing, the single-level fallback is returned instead.
func (s *Service) PatientHierarchy(ctx context.Context) (*Result, error) {
	resources, err := s.LoadResources(ctx)
	if err != nil {
		return nil, err
	}
	return s.ForEvents(ctx, resources.Events()), nil
}

// ForEvents looks up the hierarchy of the events' codes and builds the tree,
// degrading to the single-level fallback when no hierarchy is available.
func (s *Service) ForEvents(ctx context.Context, events []ClinicalEvent) *Result {
	codes := ExtractCodes(events)
	if len(codes) == 0 {
		return emptyResult()
	}

	records, err := s.Lookup(ctx, codes)
	if err != nil {
		s.logger.Warn().Err(err).Int("codes", len(codes)).Msg("hierarchy lookup failed, using single-level fallback")
		return s.engine.Fallback(events)
	}
	if len(records) == 0 {
		s.logger.Warn().Int("codes", len(codes)).Msg("hierarchy lookup returned no records, using single-level fallback")
		return s.engine.Fallback(events)
	}
	return s.engine.Build(records, events)
}

// ComputeRequest carries caller-supplied hierarchy records and clinical
// resources. A nil Records means no hierarchy is available; an empty,
// non-nil Records yields an empty tree.
type ComputeRequest struct {
	Records []ConceptRecord `json:"records"`
	ClinicalResources
}

// Compute runs the engine over caller-supplied data.
func (s *Service) Compute(req *ComputeRequest) *Result {
	events := req.Events()
	if req.Records == nil {
		return s.engine.Fallback(events)
	}
	return s.engine.Build(req.Records, events)
}

// Lookup resolves the partial hierarchy for codes, consulting the cache
// first. When every requested code is cached the ancestors are followed in
// the cache; otherwise the source is queried and the cache refreshed.
func (s *Service) Lookup(ctx context.Context, codes []string) ([]ConceptRecord, error) {
	if s.cache != nil {
		records, complete, err := s.cachedClosure(ctx, codes)
		if err != nil {
			s.logger.Warn().Err(err).Msg("hierarchy cache read failed")
		} else if complete {
			return records, nil
		}
	}

	if s.source == nil {
		return nil, ErrNoHierarchySource
	}
	records, err := s.source.PartialHierarchy(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("partial hierarchy: %w", err)
	}

	if s.cache != nil && len(records) > 0 {
		if err := s.cache.Upsert(ctx, records); err != nil {
			s.logger.Warn().Err(err).Int("records", len(records)).Msg("hierarchy cache write failed")
		}
	}
	return records, nil
}

// cachedClosure collects the cached records of codes and of every ancestor
// reachable through cached parents. complete is false when a requested code
// is not cached.
func (s *Service) cachedClosure(ctx context.Context, codes []string) ([]ConceptRecord, bool, error) {
	seen := make(map[string]bool)
	var out []ConceptRecord

	frontier := codes
	first := true
	for len(frontier) > 0 {
		recs, err := s.cache.GetByCodes(ctx, frontier)
		if err != nil {
			return nil, false, err
		}
		if first && len(recs) < len(uniqueStrings(frontier)) {
			return nil, false, nil
		}
		first = false

		var next []string
		for _, rec := range recs {
			if seen[rec.Code] {
				continue
			}
			seen[rec.Code] = true
			out = append(out, rec)
			for _, p := range rec.Parents {
				if !seen[p] {
					next = append(next, p)
				}
			}
		}
		frontier = uniqueStrings(next)
	}
	return out, true, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func emptyResult() *Result {
	return &Result{
		Nodes:  []FlatTreeNode{},
		Counts: Counts{Patients: map[string]int{}, Events: map[string]int{}},
	}
}
