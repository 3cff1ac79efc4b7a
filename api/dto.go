/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the screentime domain model from the external API contract.

NAMING CONVENTION:
  - *DTO:      Response types returned to clients
  - *Request:  Request body types from clients
  - *Response: Small fixed-shape replies

TIMESTAMPS:
  Rendered as RFC 3339 with nanoseconds in UTC, so a created_at read from
  a listing can be passed back verbatim as a since filter.

MINUTES:
  Minute amounts are plain integers. Where a human reads them, a companion
  *_formatted field carries the h:mm rendering.

SEE ALSO:
  - handlers.go: Uses these types
  - screentime/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/warp/screentime/screentime"
)

// =============================================================================
// REQUESTS
// =============================================================================

// CreateAdjustmentTypeRequest is the body of POST /adjustment-types.
type CreateAdjustmentTypeRequest struct {
	Description string `json:"description"`
	Adjustment  *int64 `json:"adjustment"`
}

// CreateAdjustmentRequest is the body of POST /adjustments.
type CreateAdjustmentRequest struct {
	Type        *int64  `json:"type"`
	Description *string `json:"description,omitempty"`
}

// CreateTimeEntryRequest is the body of POST /time-entries.
type CreateTimeEntryRequest struct {
	Time *int64 `json:"time"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// AdjustmentTypeDTO represents an adjustment type in API responses.
type AdjustmentTypeDTO struct {
	ID                  int64  `json:"id"`
	Description         string `json:"description"`
	Adjustment          int64  `json:"adjustment"`
	AdjustmentFormatted string `json:"adjustment_formatted"`
}

// AdjustmentDTO represents an applied adjustment.
type AdjustmentDTO struct {
	ID          int64   `json:"id"`
	Type        int64   `json:"type"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at"`
	Minutes     int64   `json:"minutes"`
}

// TimeEntryDTO represents recorded screen time.
type TimeEntryDTO struct {
	ID            int64  `json:"id"`
	Time          int64  `json:"time"`
	TimeFormatted string `json:"time_formatted"`
	CreatedAt     string `json:"created_at"`
}

// BalanceDTO is the response of GET /time.
type BalanceDTO struct {
	Time          int64   `json:"time"`
	FormattedTime string  `json:"formatted_time"`
	Hours         string  `json:"hours"`
	Earned        int64   `json:"earned"`
	Spent         int64   `json:"spent"`
	Adjustments   int     `json:"adjustments"`
	TimeEntries   int     `json:"time_entries"`
	Since         *string `json:"since,omitempty"`
	Until         *string `json:"until,omitempty"`
	AsOf          string  `json:"as_of"`
}

// TimelineEventDTO is one row of GET /time/timeline.
type TimelineEventDTO struct {
	At               string `json:"at"`
	Kind             string `json:"kind"`
	ID               int64  `json:"id"`
	Type             *int64 `json:"type,omitempty"`
	Delta            int64  `json:"delta"`
	Balance          int64  `json:"balance"`
	BalanceFormatted string `json:"balance_formatted"`
}

// DeleteResponse reports how many records a DELETE removed.
type DeleteResponse struct {
	Deleted int `json:"deleted"`
}

// VersionResponse is the response of GET /.
type VersionResponse struct {
	Version string `json:"version"`
}

// HealthResponse is the response of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toAdjustmentTypeDTO(t screentime.AdjustmentType) AdjustmentTypeDTO {
	return AdjustmentTypeDTO{
		ID:                  t.ID,
		Description:         t.Description,
		Adjustment:          int64(t.Adjustment),
		AdjustmentFormatted: t.Adjustment.Format(),
	}
}

func toAdjustmentDTO(a screentime.Adjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:          a.ID,
		Type:        a.TypeID,
		Description: a.Description,
		CreatedAt:   formatTimestamp(a.CreatedAt),
		Minutes:     int64(a.Minutes),
	}
}

func toTimeEntryDTO(te screentime.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:            te.ID,
		Time:          int64(te.Time),
		TimeFormatted: te.Time.Format(),
		CreatedAt:     formatTimestamp(te.CreatedAt),
	}
}

func toBalanceDTO(b screentime.Balance) BalanceDTO {
	dto := BalanceDTO{
		Time:          int64(b.Minutes),
		FormattedTime: b.Minutes.Format(),
		Hours:         b.Minutes.Hours().StringFixed(2),
		Earned:        int64(b.Adjusted),
		Spent:         int64(b.Spent),
		Adjustments:   b.Adjustments,
		TimeEntries:   b.TimeEntries,
		AsOf:          formatTimestamp(b.AsOf),
	}
	if b.Window.Since != nil {
		s := formatTimestamp(*b.Window.Since)
		dto.Since = &s
	}
	if b.Window.Until != nil {
		u := formatTimestamp(*b.Window.Until)
		dto.Until = &u
	}
	return dto
}

func toTimelineEventDTO(e screentime.TimelineEvent) TimelineEventDTO {
	dto := TimelineEventDTO{
		At:               formatTimestamp(e.At),
		Kind:             string(e.Kind),
		ID:               e.RecordID,
		Delta:            int64(e.Delta),
		Balance:          int64(e.Balance),
		BalanceFormatted: e.Balance.Format(),
	}
	if e.Kind == screentime.EventAdjustment {
		typeID := e.TypeID
		dto.Type = &typeID
	}
	return dto
}

func mapSlice[T, D any](in []T, f func(T) D) []D {
	out := make([]D, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}
