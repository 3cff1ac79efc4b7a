/*
handlers.go - HTTP API handlers for the screen time tracker

PURPOSE:
  Exposes the balance engine and record store via a small REST API.
  Handles HTTP request/response and JSON serialization, and delegates
  everything else to the screentime package.

ENDPOINTS:
  GET    /                          {"version": "..."}
  GET    /health                    Store reachability

  Adjustment types:
    GET    /adjustment-types        List (creation order)
    POST   /adjustment-types        Create {description, adjustment}
    GET    /adjustment-types/{id}   Fetch
    DELETE /adjustment-types/{id}   Delete (409 while adjustments reference it)

  Adjustments:
    GET    /adjustments             List ?type=&since=&limit= (newest first)
    POST   /adjustments             Apply a type {type, description?}
    GET    /adjustments/{id}        Fetch
    DELETE /adjustments/{id}        Delete

  Time entries:
    GET    /time-entries            List ?since=&limit= (newest first)
    POST   /time-entries            Record {time}
    GET    /time-entries/{id}       Fetch
    DELETE /time-entries/{id}       Delete

  Balance:
    GET    /time                    Balance ?since=&until=
    GET    /time/timeline           Running balance per record ?since=&until=

REQUEST FLOW:
  1. Parse path and query parameters
  2. Decode the JSON body (writes only)
  3. Call the store, query service or balance engine
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"} with:
  - 400: *screentime.ValidationError, malformed parameters or body
  - 404: *screentime.NotFoundError
  - 409: *screentime.ConflictError
  - 500: everything else (logged with the request id)

SECURITY NOTE:
  No authentication. The API is meant for a household LAN.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/screentime/screentime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   screentime.Store
	Query   *screentime.QueryService
	Engine  *screentime.BalanceEngine
	Version string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store screentime.Store, version string) *Handler {
	return &Handler{
		Store:   store,
		Query:   screentime.NewQueryService(store),
		Engine:  screentime.NewBalanceEngine(store),
		Version: version,
	}
}

// =============================================================================
// META
// =============================================================================

// GetVersion returns the API version.
// GET /
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: h.Version})
}

// Health reports whether the store is reachable.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			h.fail(w, r, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// ADJUSTMENT TYPES
// =============================================================================

// ListAdjustmentTypes returns every adjustment type.
// GET /adjustment-types
func (h *Handler) ListAdjustmentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Query.ListAdjustmentTypes(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list adjustment types", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(types, toAdjustmentTypeDTO))
}

// CreateAdjustmentType creates a reusable adjustment rule.
// POST /adjustment-types
func (h *Handler) CreateAdjustmentType(w http.ResponseWriter, r *http.Request) {
	var req CreateAdjustmentTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Adjustment == nil {
		h.fail(w, r, "Invalid request body", &screentime.ValidationError{Field: "adjustment", Message: "is required"})
		return
	}

	t, err := h.Store.CreateAdjustmentType(r.Context(), req.Description, screentime.Minutes(*req.Adjustment))
	if err != nil {
		h.fail(w, r, "Failed to create adjustment type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentTypeDTO(t))
}

// GetAdjustmentType returns one adjustment type.
// GET /adjustment-types/{id}
func (h *Handler) GetAdjustmentType(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.Store.GetAdjustmentType(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get adjustment type", err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustmentTypeDTO(t))
}

// DeleteAdjustmentType removes an adjustment type no adjustment references.
// DELETE /adjustment-types/{id}
func (h *Handler) DeleteAdjustmentType(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteAdjustmentType(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete adjustment type", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: 1})
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// ListAdjustments returns adjustments newest first.
// GET /adjustments?type=&since=&limit=
func (h *Handler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	var filter screentime.AdjustmentFilter
	var err error
	q := r.URL.Query()
	if filter.Type, err = parseInt64Param(q.Get("type"), "type"); err != nil {
		h.fail(w, r, "Invalid query parameter", err)
		return
	}
	if filter.Since, err = screentime.ParseInstant(q.Get("since"), "since", screentime.StartOfDay); err != nil {
		h.fail(w, r, "Invalid query parameter", err)
		return
	}
	if filter.Limit, err = parseLimitParam(q.Get("limit")); err != nil {
		h.fail(w, r, "Invalid query parameter", err)
		return
	}

	adjs, err := h.Query.ListAdjustments(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list adjustments", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(adjs, toAdjustmentDTO))
}

// CreateAdjustment applies an adjustment type now.
// POST /adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req CreateAdjustmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Type == nil {
		h.fail(w, r, "Invalid request body", &screentime.ValidationError{Field: "type", Message: "is required"})
		return
	}

	a, err := h.Store.CreateAdjustment(r.Context(), *req.Type, req.Description)
	if err != nil {
		h.fail(w, r, "Failed to create adjustment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdjustmentDTO(a))
}

// GetAdjustment returns one adjustment.
// GET /adjustments/{id}
func (h *Handler) GetAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.Store.GetAdjustment(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAdjustmentDTO(a))
}

// DeleteAdjustment removes an adjustment and with it its contribution.
// DELETE /adjustments/{id}
func (h *Handler) DeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteAdjustment(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: 1})
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// ListTimeEntries returns time entries newest first.
// GET /time-entries?since=&limit=
func (h *Handler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	var filter screentime.TimeEntryFilter
	var err error
	q := r.URL.Query()
	if filter.Since, err = screentime.ParseInstant(q.Get("since"), "since", screentime.StartOfDay); err != nil {
		h.fail(w, r, "Invalid query parameter", err)
		return
	}
	if filter.Limit, err = parseLimitParam(q.Get("limit")); err != nil {
		h.fail(w, r, "Invalid query parameter", err)
		return
	}

	entries, err := h.Query.ListTimeEntries(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "Failed to list time entries", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, toTimeEntryDTO))
}

// CreateTimeEntry records minutes of screen time used.
// POST /time-entries
func (h *Handler) CreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateTimeEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Time == nil {
		h.fail(w, r, "Invalid request body", &screentime.ValidationError{Field: "time", Message: "is required"})
		return
	}

	te, err := h.Store.CreateTimeEntry(r.Context(), screentime.Minutes(*req.Time))
	if err != nil {
		h.fail(w, r, "Failed to create time entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeEntryDTO(te))
}

// GetTimeEntry returns one time entry.
// GET /time-entries/{id}
func (h *Handler) GetTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	te, err := h.Store.GetTimeEntry(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get time entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeEntryDTO(te))
}

// DeleteTimeEntry removes a time entry and with it its contribution.
// DELETE /time-entries/{id}
func (h *Handler) DeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteTimeEntry(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete time entry", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: 1})
}

// =============================================================================
// BALANCE
// =============================================================================

// GetBalance returns the balance over all records or a window.
// GET /time?since=&until=
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	window, ok := h.window(w, r)
	if !ok {
		return
	}

	b, err := h.Engine.Window(r.Context(), window)
	if err != nil {
		h.fail(w, r, "Failed to compute balance", err)
		return
	}
	if window.Since == nil && window.Until == nil {
		BalanceMinutes.Set(float64(b.Minutes))
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// GetTimeline returns every record in the window with the running balance.
// GET /time/timeline?since=&until=
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	window, ok := h.window(w, r)
	if !ok {
		return
	}

	events, err := h.Engine.Timeline(r.Context(), window)
	if err != nil {
		h.fail(w, r, "Failed to compute timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(events, toTimelineEventDTO))
}

func (h *Handler) window(w http.ResponseWriter, r *http.Request) (screentime.Window, bool) {
	var (
		window screentime.Window
		err    error
	)
	q := r.URL.Query()
	if window.Since, err = screentime.ParseInstant(q.Get("since"), "since", screentime.StartOfDay); err != nil {
		h.fail(w, r, "Invalid query parameter", err)
		return window, false
	}
	if window.Until, err = screentime.ParseInstant(q.Get("until"), "until", screentime.EndOfDay); err != nil {
		h.fail(w, r, "Invalid query parameter", err)
		return window, false
	}
	return window, true
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case !screentime.IsClientError(err):
		return http.StatusInternalServerError
	case screentime.IsNotFound(err):
		return http.StatusNotFound
	case screentime.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// fail writes err with its mapped status. Server errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(message,
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	writeError(w, status, message, err)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.fail(w, r, "Invalid ID", &screentime.ValidationError{Field: "id", Message: fmt.Sprintf("%q is not an integer", raw)})
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func parseInt64Param(raw, field string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &screentime.ValidationError{Field: field, Message: fmt.Sprintf("%q is not an integer", raw)}
	}
	return &v, nil
}

// parseLimitParam leaves sign checks to the query service.
func parseLimitParam(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &screentime.ValidationError{Field: "limit", Message: fmt.Sprintf("%q is not an integer", raw)}
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
