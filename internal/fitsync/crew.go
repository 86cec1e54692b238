package fitsync

import (
	"context"
	"strings"
	"unicode/utf8"
)

// MinSearchTermLength is the shortest term, in characters, sent to the remote
// user search.
const MinSearchTermLength = 3

// CrewState is the viewer's relationships, partitioned by status and
// direction.
type CrewState struct {
	Crew         []CrewMember
	Requests     []CrewMember
	SentRequests []CrewMember
	Loading      bool
	Error        error
}

// Crew loads every connection touching the viewer and classifies it as
// confirmed crew, an incoming request or an outgoing request. Every mutation
// reloads the whole set.
type Crew struct {
	deps Deps
	h    *handle

	// guarded by h.mu
	crew     []CrewMember
	requests []CrewMember
	sent     []CrewMember
	err      error
}

// NewCrew creates a crew accessor. Nothing is fetched until Load.
func NewCrew(deps Deps) *Crew {
	return &Crew{deps: deps.withDefaults(), h: newHandle()}
}

// State returns a copy of the three connection lists with the load flag
// and the last load error.
func (c *Crew) State() CrewState {
	var s CrewState
	c.h.read(func(loading bool) {
		s = CrewState{
			Crew:         append([]CrewMember(nil), c.crew...),
			Requests:     append([]CrewMember(nil), c.requests...),
			SentRequests: append([]CrewMember(nil), c.sent...),
			Loading:      loading,
			Error:        c.err,
		}
	})
	return s
}

// Crew returns the confirmed connections.
func (c *Crew) Crew() []CrewMember { return c.State().Crew }

// Requests returns pending connections the viewer received.
func (c *Crew) Requests() []CrewMember { return c.State().Requests }

// SentRequests returns pending connections the viewer sent.
func (c *Crew) SentRequests() []CrewMember { return c.State().SentRequests }

// Watch calls fn with the new state after every change until Close.
func (c *Crew) Watch(fn func(CrewState)) {
	c.h.watch(func() { fn(c.State()) })
}

// Close cancels in-flight calls and drops later results. Idempotent.
func (c *Crew) Close() { c.h.close() }

// Load fetches the viewer's connections and their counterparts' summaries.
// A failure is recorded in State().Error and returned; previously loaded
// views are kept.
func (c *Crew) Load(ctx context.Context) error {
	if c.h.isClosed() {
		return ErrClosed
	}
	viewerID, err := c.deps.viewer()
	if err != nil {
		c.h.commit(c.h.token(), true, func() {
			c.crew, c.requests, c.sent, c.err = nil, nil, nil, nil
		})
		return nil
	}

	ctx, cancel := c.h.bind(ctx)
	defer cancel()
	token := c.h.startLoad()
	defer c.h.endLoad()

	crew, requests, sent, err := c.fetch(ctx, viewerID)
	if err != nil {
		c.deps.remoteFailed("crew.load", err, "user_id", viewerID)
		c.h.commit(token, false, func() { c.err = err })
		return err
	}
	c.h.commit(token, true, func() {
		c.crew, c.requests, c.sent, c.err = crew, requests, sent, nil
	})
	c.deps.Logger.Debug("crew loaded", "user_id", viewerID,
		"crew", len(crew), "requests", len(requests), "sent", len(sent))
	return nil
}

func (c *Crew) fetch(ctx context.Context, viewerID string) (crew, requests, sent []CrewMember, err error) {
	rows, err := c.deps.Store.Select(ctx, Query{
		Table:   TableCrewMembers,
		Filters: []Filter{Or(Eq("requester_id", viewerID), Eq("receiver_id", viewerID))},
		Order:   []Order{{Column: "created_at", Desc: true}},
	})
	if err != nil {
		return nil, nil, nil, err
	}
	records, err := decodeRows[Connection](rows)
	if err != nil {
		return nil, nil, nil, err
	}

	summaries, err := c.summaries(ctx, counterparts(viewerID, records))
	if err != nil {
		return nil, nil, nil, err
	}
	crew, requests, sent = Partition(viewerID, records, summaries)
	return crew, requests, sent, nil
}

// summaries batch-fetches profile summaries for ids.
func (c *Crew) summaries(ctx context.Context, ids []string) (map[string]ProfileSummary, error) {
	out := make(map[string]ProfileSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := c.deps.Store.Select(ctx, Query{
		Table:   TableProfiles,
		Columns: summaryColumns,
		Filters: []Filter{In("id", ids)},
	})
	if err != nil {
		return nil, err
	}
	list, err := decodeRows[ProfileSummary](rows)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		out[s.ID] = s
	}
	return out, nil
}

// counterparts returns the distinct other parties of records, in first-seen
// order.
func counterparts(viewerID string, records []Connection) []string {
	seen := make(map[string]bool, len(records))
	var ids []string
	for _, r := range records {
		id := r.Counterpart(viewerID)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Partition classifies records from viewerID's side. Accepted records become
// crew, pending ones become incoming or outgoing requests. Records the viewer
// is not party to, and records whose counterpart has no summary, are dropped.
func Partition(viewerID string, records []Connection, summaries map[string]ProfileSummary) (crew, requests, sent []CrewMember) {
	crew, requests, sent = []CrewMember{}, []CrewMember{}, []CrewMember{}
	for _, r := range records {
		if r.RequesterID != viewerID && r.ReceiverID != viewerID {
			continue
		}
		summary, ok := summaries[r.Counterpart(viewerID)]
		if !ok {
			continue
		}
		m := CrewMember{Connection: r, Direction: r.DirectionFor(viewerID), Profile: summary}
		switch {
		case r.Status == StatusAccepted:
			crew = append(crew, m)
		case m.Direction == DirectionIncoming:
			requests = append(requests, m)
		case m.Direction == DirectionOutgoing:
			sent = append(sent, m)
		}
	}
	return crew, requests, sent
}

// AddCrewMember sends a crew request from the viewer to targetID. The
// relationships are reloaded whether or not the insert succeeded; the
// insert's error is returned.
func (c *Crew) AddCrewMember(ctx context.Context, targetID string) (*Connection, error) {
	if c.h.isClosed() {
		return nil, ErrClosed
	}
	viewerID, err := c.deps.viewer()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(targetID) == "" {
		return nil, validationFailed("crew request needs a receiver")
	}

	ctx, cancel := c.h.bind(ctx)
	defer cancel()

	row, insertErr := c.deps.Store.Insert(ctx, TableCrewMembers, Row{
		"id":           c.deps.IDs.New(),
		"requester_id": viewerID,
		"receiver_id":  targetID,
		"status":       string(StatusPending),
	})
	var created *Connection
	if insertErr != nil {
		c.deps.remoteFailed("crew.add", insertErr, "user_id", viewerID, "target_id", targetID)
	} else {
		var conn Connection
		if err := decodeRow(row, &conn); err != nil {
			insertErr = err
		} else {
			created = &conn
			c.deps.Logger.Info("crew request sent", "user_id", viewerID, "target_id", targetID)
		}
	}
	_ = c.Load(ctx)
	return created, insertErr
}

// AcceptCrewRequest confirms the connection recordID. The relationships are
// reloaded either way. Authorization is left to the store.
func (c *Crew) AcceptCrewRequest(ctx context.Context, recordID string) (*Connection, error) {
	if c.h.isClosed() {
		return nil, ErrClosed
	}
	ctx, cancel := c.h.bind(ctx)
	defer cancel()

	row, err := c.deps.Store.Update(ctx, TableCrewMembers,
		Row{"status": string(StatusAccepted)}, Eq("id", recordID))
	defer func() { _ = c.Load(ctx) }()
	if err != nil {
		c.deps.remoteFailed("crew.accept", err, "record_id", recordID)
		return nil, err
	}
	var conn Connection
	if err := decodeRow(row, &conn); err != nil {
		return nil, err
	}
	c.deps.Logger.Info("crew request accepted", "record_id", recordID)
	return &conn, nil
}

// RemoveCrewMember deletes the connection recordID and reloads. Rejecting,
// cancelling and unfriending all end here.
func (c *Crew) RemoveCrewMember(ctx context.Context, recordID string) error {
	if c.h.isClosed() {
		return ErrClosed
	}
	ctx, cancel := c.h.bind(ctx)
	defer cancel()

	defer func() { _ = c.Load(ctx) }()
	if err := c.deps.Store.Delete(ctx, TableCrewMembers, Eq("id", recordID)); err != nil {
		c.deps.remoteFailed("crew.remove", err, "record_id", recordID)
		return err
	}
	c.deps.Logger.Info("crew connection removed", "record_id", recordID)
	return nil
}

// SearchUsers finds profiles matching term for new crew requests. Terms
// shorter than MinSearchTermLength runes, whitespace included, return
// nothing without a remote call. The term is sent as given. Failures degrade
// to no matches. The viewer is never listed.
func (c *Crew) SearchUsers(ctx context.Context, term string) []ProfileSummary {
	if utf8.RuneCountInString(term) < MinSearchTermLength {
		c.deps.Metrics.SearchSkipped()
		return []ProfileSummary{}
	}
	if c.h.isClosed() {
		return []ProfileSummary{}
	}

	ctx, cancel := c.h.bind(ctx)
	defer cancel()

	if c.deps.SearchLimiter != nil {
		if err := c.deps.SearchLimiter.Wait(ctx); err != nil {
			c.deps.degraded("crew.search", err, "term", term)
			return []ProfileSummary{}
		}
	}
	rows, err := c.deps.Store.Call(ctx, ProcSearchNewCrew, Row{"search_term": term})
	if err != nil {
		c.deps.degraded("crew.search", err, "term", term)
		return []ProfileSummary{}
	}
	found, err := decodeRows[ProfileSummary](rows)
	if err != nil {
		c.deps.degraded("crew.search", err, "term", term)
		return []ProfileSummary{}
	}

	viewerID, _ := c.deps.Identity.CurrentUserID()
	out := found[:0]
	for _, p := range found {
		if p.ID != viewerID {
			out = append(out, p)
		}
	}
	return out
}
