package pipeline

import (
	"context"

	"github.com/TobiSchelling/auditreports/internal/airtable"
	"github.com/TobiSchelling/auditreports/internal/audit"
)

// Source fetches audit records. List returns the records matching an
// Airtable formula. Get returns airtable.ErrNotFound for a missing id.
type Source interface {
	ListAll(ctx context.Context) ([]audit.Record, error)
	List(ctx context.Context, formula string) ([]audit.Record, error)
	Get(ctx context.Context, id string) (audit.Record, error)
}

// AirtableSource adapts an Airtable client to Source.
type AirtableSource struct {
	Client *airtable.Client
}

func (s AirtableSource) ListAll(ctx context.Context) ([]audit.Record, error) {
	raw, err := s.Client.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return airtable.ExtractFields(raw), nil
}

func (s AirtableSource) List(ctx context.Context, formula string) ([]audit.Record, error) {
	raw, err := s.Client.List(ctx, formula)
	if err != nil {
		return nil, err
	}
	return airtable.ExtractFields(raw), nil
}

func (s AirtableSource) Get(ctx context.Context, id string) (audit.Record, error) {
	raw, err := s.Client.GetByID(ctx, id)
	if err != nil {
		return audit.Record{}, err
	}
	return audit.Normalize(raw.ID, raw.Fields), nil
}
