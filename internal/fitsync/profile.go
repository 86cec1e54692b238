package fitsync

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ProfileState is what a presentation layer renders for the viewer's profile.
type ProfileState struct {
	Profile *Profile
	Loading bool
	Error   error
}

// Profiles keeps the viewer's profile in sync with the remote store,
// painting from the local cache first.
type Profiles struct {
	deps Deps
	h    *handle

	// guarded by h.mu
	profile *Profile
	err     error
}

// NewProfiles creates a profile accessor. Call Load to populate it and Close
// when the owning view goes away.
func NewProfiles(deps Deps) *Profiles {
	return &Profiles{deps: deps.withDefaults(), h: newHandle()}
}

// State returns a snapshot of the current state.
func (p *Profiles) State() ProfileState {
	var s ProfileState
	p.h.read(func(loading bool) {
		s = ProfileState{Profile: p.profile.clone(), Loading: loading, Error: p.err}
	})
	return s
}

// Watch registers fn to run after every state change.
func (p *Profiles) Watch(fn func(ProfileState)) {
	p.h.watch(func() { fn(p.State()) })
}

// Close cancels in-flight work. Later completions are discarded.
func (p *Profiles) Close() { p.h.close() }

// Load paints the cached profile, if it belongs to the viewer, and fetches
// the authoritative row concurrently. A missing row leaves the profile nil
// without an error. Any other fetch failure is recorded in State().Error,
// keeps whatever was painted, and is returned.
func (p *Profiles) Load(ctx context.Context) error {
	if p.h.isClosed() {
		return ErrClosed
	}
	userID, err := p.deps.viewer()
	if err != nil {
		p.h.commit(p.h.token(), true, func() {
			p.profile = nil
			p.err = nil
		})
		return nil
	}

	ctx, cancel := p.h.bind(ctx)
	defer cancel()
	token := p.h.startLoad()
	defer p.h.endLoad()

	var g errgroup.Group
	g.Go(func() error {
		p.paintFromCache(token, userID)
		return nil
	})
	g.Go(func() error {
		return p.fetch(ctx, token, userID)
	})
	return g.Wait()
}

func (p *Profiles) paintFromCache(token uint64, userID string) {
	var cached Profile
	hit, err := p.deps.Cache.Read(ProfileCacheKey, userID, &cached)
	if err != nil {
		p.deps.Logger.Warn("reading cached profile", "user_id", userID, "err", err)
		return
	}
	if !hit {
		return
	}
	if p.h.commit(token, false, func() { p.profile = &cached }) {
		p.deps.Logger.Debug("painted profile from cache", "user_id", userID)
	}
}

func (p *Profiles) fetch(ctx context.Context, token uint64, userID string) error {
	row, err := p.deps.Store.Single(ctx, Query{
		Table:   TableProfiles,
		Filters: []Filter{Eq("id", userID)},
	})
	if IsNoRows(err) {
		if p.h.commit(token, true, func() {
			p.profile = nil
			p.err = nil
		}) {
			if err := p.deps.Cache.Remove(ProfileCacheKey); err != nil {
				p.deps.Logger.Warn("clearing cache for absent profile", "user_id", userID, "err", err)
			}
		}
		return nil
	}
	if err != nil {
		p.deps.remoteFailed("profile.load", err, "user_id", userID)
		p.h.commit(token, false, func() { p.err = err })
		return err
	}

	var fresh Profile
	if err := decodeRow(row, &fresh); err != nil {
		p.deps.Logger.Error("decoding profile", "user_id", userID, "err", err)
		p.h.commit(token, false, func() { p.err = err })
		return err
	}
	if p.h.commit(token, true, func() {
		p.profile = &fresh
		p.err = nil
	}) {
		p.writeCache(userID, &fresh)
	}
	return nil
}

func (p *Profiles) writeCache(userID string, profile *Profile) {
	if err := p.deps.Cache.Write(ProfileCacheKey, userID, profile); err != nil {
		p.deps.Logger.Warn("writing profile cache", "user_id", userID, "err", err)
	}
}

// publish makes profile the authoritative state and refreshes the cache.
func (p *Profiles) publish(userID string, profile *Profile) {
	if p.h.commit(p.h.token(), true, func() {
		p.profile = profile.clone()
		p.err = nil
	}) {
		p.writeCache(userID, profile)
	}
}

// UpdateProfile merges the non-nil fields of upd into the viewer's stored
// profile, creating it if needed. On success the server's row replaces state
// and cache; on failure state is untouched.
func (p *Profiles) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	if p.h.isClosed() {
		return nil, ErrClosed
	}
	userID, err := p.deps.viewer()
	if err != nil {
		return nil, err
	}
	if err := validateInput(upd); err != nil {
		return nil, err
	}

	ctx, cancel := p.h.bind(ctx)
	defer cancel()

	row := upd.row()
	row["id"] = userID
	saved, err := p.upsert(ctx, "profile.update", userID, row)
	if err != nil {
		return nil, err
	}
	p.publish(userID, saved)
	p.deps.Logger.Info("profile updated", "user_id", userID)
	return saved, nil
}

func (p *Profiles) upsert(ctx context.Context, op, userID string, row Row) (*Profile, error) {
	stored, err := p.deps.Store.Upsert(ctx, TableProfiles, row, "id")
	if err != nil {
		p.deps.remoteFailed(op, err, "user_id", userID)
		return nil, err
	}
	var saved Profile
	if err := decodeRow(stored, &saved); err != nil {
		p.deps.Logger.Error("decoding profile", "op", op, "user_id", userID, "err", err)
		return nil, err
	}
	return &saved, nil
}

// current returns the loaded profile, falling back to the stored row when
// nothing has been loaded yet. It returns nil when the viewer has no profile.
func (p *Profiles) current(ctx context.Context, userID string) (*Profile, error) {
	var loaded *Profile
	p.h.read(func(bool) { loaded = p.profile.clone() })
	if loaded != nil && loaded.ID == userID {
		return loaded, nil
	}
	row, err := p.deps.Store.MaybeSingle(ctx, Query{
		Table:   TableProfiles,
		Filters: []Filter{Eq("id", userID)},
	})
	if err != nil || row == nil {
		return nil, err
	}
	var stored Profile
	if err := decodeRow(row, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// AddBadge awards badgeID to the viewer. Awarding a badge already held fails
// with ErrAlreadyExists and leaves the badge set unchanged.
func (p *Profiles) AddBadge(ctx context.Context, badgeID string) (*Profile, error) {
	if p.h.isClosed() {
		return nil, ErrClosed
	}
	userID, err := p.deps.viewer()
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.h.bind(ctx)
	defer cancel()

	cur, err := p.current(ctx, userID)
	if err != nil {
		p.deps.remoteFailed("profile.add_badge", err, "user_id", userID)
		return nil, err
	}
	if cur.HasBadge(badgeID) {
		err := alreadyExists("badge", badgeID)
		p.deps.Logger.Info("badge already earned", "user_id", userID, "badge", badgeID, "kind", KindConflict)
		return nil, err
	}

	var badges []string
	if cur != nil {
		badges = append(badges, cur.Badges...)
	}
	badges = append(badges, badgeID)

	saved, err := p.upsert(ctx, "profile.add_badge", userID, Row{"id": userID, "badges": badges})
	if err != nil {
		return nil, err
	}
	saved.Badges = badges
	p.publish(userID, saved)
	p.deps.Logger.Info("badge earned", "user_id", userID, "badge", badgeID)
	return saved, nil
}

// RemoveBadge takes badgeID away from the viewer. Removing a badge that is
// not held returns the current profile without contacting the store.
func (p *Profiles) RemoveBadge(ctx context.Context, badgeID string) (*Profile, error) {
	if p.h.isClosed() {
		return nil, ErrClosed
	}
	userID, err := p.deps.viewer()
	if err != nil {
		return nil, err
	}

	ctx, cancel := p.h.bind(ctx)
	defer cancel()

	cur, err := p.current(ctx, userID)
	if err != nil {
		p.deps.remoteFailed("profile.remove_badge", err, "user_id", userID)
		return nil, err
	}
	if !cur.HasBadge(badgeID) {
		return cur, nil
	}

	badges := make([]string, 0, len(cur.Badges)-1)
	for _, b := range cur.Badges {
		if b != badgeID {
			badges = append(badges, b)
		}
	}

	stored, err := p.deps.Store.Update(ctx, TableProfiles, Row{"badges": badges}, Eq("id", userID))
	if err != nil {
		p.deps.remoteFailed("profile.remove_badge", err, "user_id", userID)
		return nil, err
	}
	var saved Profile
	if err := decodeRow(stored, &saved); err != nil {
		return nil, err
	}
	saved.Badges = badges
	p.publish(userID, &saved)
	p.deps.Logger.Info("badge removed", "user_id", userID, "badge", badgeID)
	return &saved, nil
}

// HasBadge reports whether the loaded profile holds badgeID.
func (p *Profiles) HasBadge(badgeID string) bool {
	var has bool
	p.h.read(func(bool) { has = p.profile.HasBadge(badgeID) })
	return has
}

// ClearCache drops the cached profile and empties state. Used on sign-out.
func (p *Profiles) ClearCache() error {
	p.h.commit(p.h.token(), true, func() {
		p.profile = nil
		p.err = nil
	})
	if err := p.deps.Cache.Remove(ProfileCacheKey); err != nil {
		p.deps.Logger.Error("clearing profile cache", "err", err)
		return err
	}
	return nil
}
