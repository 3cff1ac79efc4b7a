/*
query.go - Filtered, paginated history listings

PURPOSE:
  Answers "what happened?" for audit: which adjustments were applied and
  which time entries were logged, newest first, optionally narrowed by type,
  start instant and count.

FILTER SEMANTICS:
  type   exact AdjustmentType ID; an unknown ID yields an empty list
  since  inclusive lower bound on CreatedAt; a future instant yields nothing
  limit  caps the result count; 0 yields an empty list, omitted is unbounded

  A negative limit is the only filter the service rejects.

SEE ALSO:
  - filter.go: Filter types and ordering helpers
  - store.go:  Store listing contract
*/
package screentime

import "context"

// QueryService lists records through a Store.
type QueryService struct {
	store Store
}

// NewQueryService creates a query service over store.
func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

// ListAdjustmentTypes returns every adjustment type in creation order.
func (q *QueryService) ListAdjustmentTypes(ctx context.Context) ([]AdjustmentType, error) {
	types, err := q.store.ListAdjustmentTypes(ctx)
	if err != nil {
		return nil, err
	}
	if types == nil {
		types = []AdjustmentType{}
	}
	return types, nil
}

// ListAdjustments returns adjustments matching filter, most recent first.
func (q *QueryService) ListAdjustments(ctx context.Context, filter AdjustmentFilter) ([]Adjustment, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Empty() {
		return []Adjustment{}, nil
	}

	adjs, err := q.store.ListAdjustments(ctx, filter)
	if err != nil {
		return nil, err
	}
	if adjs == nil {
		adjs = []Adjustment{}
	}
	return adjs, nil
}

// ListTimeEntries returns time entries matching filter, most recent first.
func (q *QueryService) ListTimeEntries(ctx context.Context, filter TimeEntryFilter) ([]TimeEntry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Empty() {
		return []TimeEntry{}, nil
	}

	entries, err := q.store.ListTimeEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []TimeEntry{}
	}
	return entries, nil
}
