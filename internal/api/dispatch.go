package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/engram/internal/watch"
)

// Actions accepted by the watch API.
const (
	ActionCreate = "create"
	ActionPoll   = "poll"
	ActionList   = "list"
	ActionStop   = "stop"
)

// Request is the decoded form of a watch API call.
type Request struct {
	Action    string        `json:"action"`
	WatcherID string        `json:"watcherId,omitempty"`
	Filters   *watch.Filter `json:"filters,omitempty"`
}

// CreateResponse is the payload for a successful create.
type CreateResponse struct {
	Created   bool         `json:"created"`
	WatcherID string       `json:"watcherId"`
	Filters   watch.Filter `json:"filters"`
}

// PollResponse is the payload for a successful poll. Changes is empty,
// never null, when nothing matched.
type PollResponse struct {
	Changes []watch.MatchedChange `json:"changes"`
}

// WatcherSummary is one row of a list response.
type WatcherSummary struct {
	WatcherID string       `json:"watcherId"`
	Active    bool         `json:"active"`
	Filters   watch.Filter `json:"filters"`
	CreatedAt time.Time    `json:"createdAt"`
}

// ListResponse is the payload for a successful list.
type ListResponse struct {
	Total    int              `json:"total"`
	Watchers []WatcherSummary `json:"watchers"`
}

// StopResponse is the payload for a successful stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// Dispatcher routes multiplexed watch requests to the Service.
type Dispatcher struct {
	svc *watch.Service
}

// NewDispatcher creates a Dispatcher over the given watch service.
func NewDispatcher(svc *watch.Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Dispatch validates and executes one raw request on behalf of the
// acting session. The response is one of the *Response types; the
// error, when non-nil, is always a *watch.Error so callers can branch
// on its code.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, raw json.RawMessage) (any, error) {
	// Probe the action first so unknown operations surface as
	// INVALID_ACTION even when the rest of the request is also wrong.
	var probe struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		// The taxonomy has no malformed-request kind; an unparseable
		// request has no recognizable action, so it reports under the
		// invalid-action code.
		return nil, &watch.Error{
			Code:    watch.ErrCodeInvalidAction,
			Message: fmt.Sprintf("malformed request: %v", err),
		}
	}
	if !knownAction(probe.Action) {
		return nil, watch.NewInvalidActionError(probe.Action)
	}

	// The action is known, so any remaining schema violation is a
	// request-shape problem (almost always the filter).
	detail, err := validateRequest(raw)
	if err != nil {
		return nil, watch.NewStoreError("validate request", err)
	}
	if detail != "" {
		return nil, watch.NewInvalidFilterError(strings.TrimSpace(detail))
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		// Schema passed, so this should not happen.
		return nil, watch.NewStoreError("decode request", err)
	}

	return d.execute(ctx, sessionID, req)
}

// Do executes an already-decoded request. Used by callers that build
// requests programmatically; Dispatch is the raw-JSON entry point.
func (d *Dispatcher) Do(ctx context.Context, sessionID string, req Request) (any, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, watch.NewStoreError("encode request", err)
	}
	return d.Dispatch(ctx, sessionID, raw)
}

func (d *Dispatcher) execute(ctx context.Context, sessionID string, req Request) (any, error) {
	switch req.Action {
	case ActionCreate:
		var f watch.Filter
		if req.Filters != nil {
			f = *req.Filters
		}
		w, err := d.svc.Create(ctx, sessionID, f)
		if err != nil {
			return nil, err
		}
		return CreateResponse{Created: true, WatcherID: w.ID, Filters: w.Filter}, nil

	case ActionPoll:
		changes, err := d.svc.Poll(ctx, req.WatcherID)
		if err != nil {
			return nil, err
		}
		return PollResponse{Changes: changes}, nil

	case ActionList:
		watchers, err := d.svc.List(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		summaries := make([]WatcherSummary, 0, len(watchers))
		for _, w := range watchers {
			summaries = append(summaries, WatcherSummary{
				WatcherID: w.ID,
				Active:    w.Active,
				Filters:   w.Filter,
				CreatedAt: w.CreatedAt,
			})
		}
		return ListResponse{Total: len(summaries), Watchers: summaries}, nil

	case ActionStop:
		if err := d.svc.Stop(ctx, req.WatcherID); err != nil {
			return nil, err
		}
		return StopResponse{Stopped: true}, nil
	}

	// Unreachable: knownAction gates the switch.
	return nil, watch.NewInvalidActionError(req.Action)
}

func knownAction(action string) bool {
	switch action {
	case ActionCreate, ActionPoll, ActionList, ActionStop:
		return true
	}
	return false
}
