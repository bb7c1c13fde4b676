package hierarchy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/conceptchart/internal/platform/fhir"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// =========== Event Repository ===========

type eventRepoPG struct{ pool *pgxpool.Pool }

// NewEventRepoPG reads conditions, procedures and medication requests from
// the EHR clinical tables.
func NewEventRepoPG(pool *pgxpool.Pool) EventRepository { return &eventRepoPG{pool: pool} }

func (r *eventRepoPG) conn() queryable {
	return r.pool
}

func (r *eventRepoPG) ListConditions(ctx context.Context) ([]Resource, error) {
	rows, err := r.conn().Query(ctx,
		`SELECT fhir_id, patient_id, COALESCE(code_system,''), code_value, code_display
		 FROM condition ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	return scanCodedRows(rows, KindCondition, false)
}

func (r *eventRepoPG) ListProcedures(ctx context.Context) ([]Resource, error) {
	rows, err := r.conn().Query(ctx,
		`SELECT fhir_id, patient_id, COALESCE(code_system,''), code_value, code_display
		 FROM procedure_record ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list procedures: %w", err)
	}
	return scanCodedRows(rows, KindProcedure, false)
}

func (r *eventRepoPG) ListMedicationRequests(ctx context.Context) ([]Resource, error) {
	rows, err := r.conn().Query(ctx,
		`SELECT mr.fhir_id, mr.patient_id, COALESCE(m.code_system,''), m.code_value, m.code_display
		 FROM medication_request mr
		 JOIN medication m ON m.id = mr.medication_id
		 ORDER BY mr.created_at, mr.id`)
	if err != nil {
		return nil, fmt.Errorf("list medication requests: %w", err)
	}
	return scanCodedRows(rows, KindMedication, true)
}

func scanCodedRows(rows pgx.Rows, kind string, medication bool) ([]Resource, error) {
	defer rows.Close()
	var results []Resource
	for rows.Next() {
		var fhirID, system, code, display string
		var patientID uuid.UUID
		if err := rows.Scan(&fhirID, &patientID, &system, &code, &display); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		cc := &fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: system, Code: code, Display: display}},
			Text:   display,
		}
		res := Resource{
			ResourceType: kind,
			ID:           fhirID,
			Subject:      &fhir.Reference{Reference: fhir.FormatReference("Patient", patientID.String())},
		}
		if medication {
			res.MedicationCodeableConcept = cc
		} else {
			res.Code = cc
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// =========== Hierarchy Cache ===========

type hierarchyCachePG struct{ pool *pgxpool.Pool }

// NewHierarchyCachePG stores concept records in the concept_hierarchy table.
func NewHierarchyCachePG(pool *pgxpool.Pool) HierarchyCache { return &hierarchyCachePG{pool: pool} }

func (r *hierarchyCachePG) conn() queryable {
	return r.pool
}

func (r *hierarchyCachePG) GetByCodes(ctx context.Context, codes []string) ([]ConceptRecord, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := r.conn().Query(ctx,
		`SELECT code, COALESCE(term,''), COALESCE(parents, '{}')
		 FROM concept_hierarchy WHERE code = ANY($1) ORDER BY code`, codes)
	if err != nil {
		return nil, fmt.Errorf("concept hierarchy get: %w", err)
	}
	defer rows.Close()
	var results []ConceptRecord
	for rows.Next() {
		var rec ConceptRecord
		if err := rows.Scan(&rec.Code, &rec.Term, &rec.Parents); err != nil {
			return nil, fmt.Errorf("scan concept hierarchy: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (r *hierarchyCachePG) Upsert(ctx context.Context, records []ConceptRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		parents := rec.Parents
		if parents == nil {
			parents = []string{}
		}
		batch.Queue(
			`INSERT INTO concept_hierarchy (code, term, parents, fetched_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (code) DO UPDATE SET term = EXCLUDED.term, parents = EXCLUDED.parents, fetched_at = NOW()`,
			rec.Code, rec.Term, parents)
	}
	br := r.conn().SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("concept hierarchy upsert: %w", err)
		}
	}
	return nil
}
