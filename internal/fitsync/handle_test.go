package fitsync

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestHandle_CommitDiscardsStaleTokens(t *testing.T) {
	h := newHandle()
	value := ""

	older := h.token()
	newer := h.token()

	if !h.commit(newer, true, func() { value = "newer" }) {
		t.Fatal("commit(newer) was discarded")
	}
	if h.commit(older, true, func() { value = "older" }) {
		t.Error("commit(older) applied after newer landed")
	}
	if h.commit(newer, false, func() { value = "paint" }) {
		t.Error("non-authoritative commit with landed token applied")
	}
	if value != "newer" {
		t.Errorf("value = %q, want %q", value, "newer")
	}
}

func TestHandle_PaintThenAuthoritative(t *testing.T) {
	h := newHandle()
	value := ""
	tok := h.startLoad()

	if !h.commit(tok, false, func() { value = "cache" }) {
		t.Fatal("paint discarded before fetch landed")
	}
	if !h.commit(tok, true, func() { value = "server" }) {
		t.Fatal("fetch discarded after paint")
	}
	if h.commit(tok, false, func() { value = "late cache" }) {
		t.Error("late paint applied after fetch")
	}
	h.endLoad()
	if value != "server" {
		t.Errorf("value = %q, want %q", value, "server")
	}
}

func TestHandle_PatchReplaysOverLaterLoad(t *testing.T) {
	h := newHandle()
	var items []string

	tok := h.startLoad()
	if !h.patch(func() { items = append(items, "created") }) {
		t.Fatal("patch discarded")
	}
	if len(items) != 1 {
		t.Fatalf("items = %v, want patch applied immediately", items)
	}
	if !h.commit(tok, true, func() { items = []string{"stored"} }) {
		t.Fatal("load discarded after a patch")
	}
	h.endLoad()

	if strings.Join(items, ",") != "stored,created" {
		t.Errorf("items = %v, want load result plus patch", items)
	}
}

func TestHandle_PatchNotReplayedOverNewerLoad(t *testing.T) {
	h := newHandle()
	var items []string

	h.startLoad()
	h.patch(func() { items = append(items, "created") })
	newer := h.startLoad()
	if !h.commit(newer, true, func() { items = []string{"stored", "created"} }) {
		t.Fatal("newer load discarded")
	}
	h.endLoad()
	h.endLoad()

	if strings.Join(items, ",") != "stored,created" {
		t.Errorf("items = %v, want the newer load untouched", items)
	}
}

func TestHandle_PatchesDroppedWhenIdle(t *testing.T) {
	h := newHandle()
	replays := 0

	h.startLoad()
	h.patch(func() { replays++ })
	h.endLoad()

	tok := h.startLoad()
	h.commit(tok, true, func() {})
	h.endLoad()
	if replays != 1 {
		t.Errorf("patch ran %d times, want 1", replays)
	}

	h.close()
	if h.patch(func() { t.Error("patch ran after close") }) {
		t.Error("patch after close reported success")
	}
}

func TestHandle_Loading(t *testing.T) {
	h := newHandle()
	loading := func() bool {
		var l bool
		h.read(func(b bool) { l = b })
		return l
	}

	h.startLoad()
	h.startLoad()
	h.endLoad()
	if !loading() {
		t.Error("loading = false with one load in flight")
	}
	h.endLoad()
	if loading() {
		t.Error("loading = true with none in flight")
	}
	h.endLoad()
	if loading() {
		t.Error("extra endLoad made loading true")
	}
}

func TestHandle_Close(t *testing.T) {
	h := newHandle()
	notified := 0
	h.watch(func() { notified++ })

	ctx, cancel := h.bind(context.Background())
	defer cancel()

	h.close()
	h.close()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("bound context not canceled by close")
	}
	if h.commit(h.token(), true, func() { t.Error("apply ran after close") }) {
		t.Error("commit after close reported success")
	}
	h.notify()
	if notified != 0 {
		t.Errorf("watcher called %d times after close", notified)
	}
	if !h.isClosed() {
		t.Error("isClosed() = false")
	}
}

func TestHandle_BindReleasesOnCancel(t *testing.T) {
	h := newHandle()
	ctx, cancel := h.bind(context.Background())
	cancel()
	if ctx.Err() == nil {
		t.Error("bound context still live after its cancel")
	}
	if h.isClosed() {
		t.Error("canceling a bound context closed the handle")
	}
}
