package hls

import (
	"testing"
	"time"
)

func collectLimiter(t *testing.T, l *Limiter, items []Item) []Item {
	t.Helper()
	var out []Item
	for _, item := range items {
		l.Process(item, func(i Item) { out = append(out, i) })
	}
	return out
}

func TestLimiterEmitsEndMarkerOnSizeOverflow(t *testing.T) {
	l := NewLimiter(LimiterConfig{MaxSizeBytes: 1 << 20}) // 1 MiB
	seg := func(n int) Item {
		return TsSegment{Entry: PlaylistEntry{}, Data: make([]byte, n)}
	}
	items := []Item{
		seg(400 * 1024),
		seg(400 * 1024),
		seg(400 * 1024),
	}
	out := collectLimiter(t, l, items)

	wantKinds := []string{"segment", "segment", "endmarker", "segment"}
	if len(out) != len(wantKinds) {
		t.Fatalf("got %d items, want %d", len(out), len(wantKinds))
	}
	for i, want := range wantKinds {
		switch want {
		case "segment":
			if _, ok := out[i].(TsSegment); !ok {
				t.Errorf("item %d = %T, want TsSegment", i, out[i])
			}
		case "endmarker":
			if _, ok := out[i].(EndMarker); !ok {
				t.Errorf("item %d = %T, want EndMarker", i, out[i])
			}
		}
	}
}

func TestLimiterReemitsCachedInitAfterRotation(t *testing.T) {
	l := NewLimiter(LimiterConfig{MaxDuration: 300 * time.Second})
	init := M4sInit{Data: []byte("ftyp+moov")}

	mediaSeg := func(dur time.Duration) Item {
		return M4sSegment{Entry: PlaylistEntry{Duration: dur}, Data: []byte("moof+mdat")}
	}

	var items []Item
	items = append(items, init)
	// 10 segments totaling 600s, 60s each.
	for i := 0; i < 10; i++ {
		items = append(items, mediaSeg(60*time.Second))
	}

	out := collectLimiter(t, l, items)

	var endMarkers, inits, mediaSegs int
	for _, item := range out {
		switch item.(type) {
		case EndMarker:
			endMarkers++
		case M4sInit:
			inits++
		case M4sSegment:
			mediaSegs++
		}
	}
	if endMarkers != 1 {
		t.Fatalf("got %d EndMarkers, want 1 (600s / 300s limit)", endMarkers)
	}
	if inits != 2 {
		t.Fatalf("got %d M4sInit emissions, want 2 (original + re-emitted after rotation)", inits)
	}
	if mediaSegs != 10 {
		t.Fatalf("got %d media segments, want 10 (none dropped)", mediaSegs)
	}

	if _, ok := out[0].(M4sInit); !ok {
		t.Fatalf("first item = %T, want M4sInit", out[0])
	}
}

func TestLimiterPassesThroughExplicitEndMarkerAndResets(t *testing.T) {
	l := NewLimiter(LimiterConfig{MaxSizeBytes: 100})
	seg := TsSegment{Data: make([]byte, 90)}

	out := collectLimiter(t, l, []Item{seg, EndMarker{}, seg})
	if len(out) != 3 {
		t.Fatalf("got %d items, want 3 (no spurious EndMarker after an explicit one resets counters)", len(out))
	}
	if _, ok := out[1].(EndMarker); !ok {
		t.Fatalf("item 1 = %T, want EndMarker", out[1])
	}
}

func TestLimiterZeroLimitsNeverRotate(t *testing.T) {
	l := NewLimiter(LimiterConfig{})
	seg := TsSegment{Data: make([]byte, 10_000_000)}
	out := collectLimiter(t, l, []Item{seg, seg, seg})
	for _, item := range out {
		if _, ok := item.(EndMarker); ok {
			t.Fatal("unconfigured (zero) limits must never trigger rotation")
		}
	}
}
