package timeline

import (
	"testing"
	"time"

	"github.com/retracehq/retrace/internal/retrace"
)

func deepLinkEvents() []retrace.Event {
	return []retrace.Event{
		evt("u1", retrace.KindUser, "hi"),
		evt("th1", retrace.KindThinking, "considering"),
		evt("a1", retrace.KindAssistant, "done"),
	}
}

func TestDeepLink_FiresOncePerTarget(t *testing.T) {
	events := deepLinkEvents()
	items := Group(events)
	d := NewDeepLink(nil)

	d.SetTarget("a1")
	idx, fire := d.Evaluate(events, items)
	if !fire || idx != 2 {
		t.Fatalf("expected fire at item 2, got idx=%d fire=%v", idx, fire)
	}
	d.ConfirmScrolled()

	// Re-evaluations for the same target never re-fire.
	if idx, fire := d.Evaluate(events, items); fire || idx != 2 {
		t.Errorf("expected burned latch, got idx=%d fire=%v", idx, fire)
	}

	// A different target re-arms.
	d.SetTarget("u1")
	if idx, fire := d.Evaluate(events, items); !fire || idx != 0 {
		t.Errorf("expected re-armed fire at item 0, got idx=%d fire=%v", idx, fire)
	}
}

func TestDeepLink_SameTargetDoesNotRearm(t *testing.T) {
	events := deepLinkEvents()
	items := Group(events)
	d := NewDeepLink(nil)

	d.SetTarget("a1")
	d.Evaluate(events, items)
	d.ConfirmScrolled()

	d.SetTarget("a1") // no-op
	if _, fire := d.Evaluate(events, items); fire {
		t.Error("re-setting the same target must not re-fire")
	}
}

func TestDeepLink_AbsentTargetIsSilent(t *testing.T) {
	events := deepLinkEvents()
	items := Group(events)
	d := NewDeepLink(nil)

	signals := 0
	d.SetOnTargetFiltered(func(bool) { signals++ })

	d.SetTarget("no-such-event")
	idx, fire := d.Evaluate(events, items)
	if fire || idx != -1 {
		t.Errorf("expected silent no-op, got idx=%d fire=%v", idx, fire)
	}
	if d.TargetFilteredOut() {
		t.Error("absent target must not read as filtered out")
	}
	if signals != 0 {
		t.Errorf("expected no filter signals, got %d", signals)
	}
}

func TestDeepLink_EmptyTargetNoOp(t *testing.T) {
	events := deepLinkEvents()
	d := NewDeepLink(nil)

	if idx, fire := d.Evaluate(events, Group(events)); fire || idx != -1 {
		t.Errorf("expected no-op without a target, got idx=%d fire=%v", idx, fire)
	}
}

func TestDeepLink_FilteredOutSignalAndDeferredScroll(t *testing.T) {
	events := deepLinkEvents()
	all := Group(events)
	noThinking := Group(NewKindFilter().Toggle(retrace.KindThinking).Apply(events))

	d := NewDeepLink(nil)
	var signals []bool
	d.SetOnTargetFiltered(func(hidden bool) { signals = append(signals, hidden) })

	d.SetTarget("th1")

	// Target exists but its kind is hidden: signal, no scroll.
	if idx, fire := d.Evaluate(events, noThinking); fire || idx != -1 {
		t.Fatalf("expected no fire while hidden, got idx=%d fire=%v", idx, fire)
	}
	if !d.TargetFilteredOut() {
		t.Fatal("expected filtered-out state")
	}

	// Re-evaluation with unchanged filters does not repeat the signal.
	d.Evaluate(events, noThinking)

	// Re-enabling the kind clears the signal and performs the deferred
	// one-shot scroll.
	idx, fire := d.Evaluate(events, all)
	if !fire || idx != 1 {
		t.Fatalf("expected deferred fire at item 1, got idx=%d fire=%v", idx, fire)
	}
	d.ConfirmScrolled()
	if d.TargetFilteredOut() {
		t.Error("expected filtered-out cleared")
	}

	want := []bool{true, false}
	if len(signals) != len(want) {
		t.Fatalf("expected %d signals, got %v", len(want), signals)
	}
	for i := range want {
		if signals[i] != want[i] {
			t.Errorf("signal %d: expected %v, got %v", i, want[i], signals[i])
		}
	}

	// Hiding it again after the scroll still reports, but never re-scrolls.
	if _, fire := d.Evaluate(events, noThinking); fire {
		t.Error("expected burned latch after hide")
	}
	if _, fire := d.Evaluate(events, all); fire {
		t.Error("expected burned latch after reveal")
	}
}

func TestDeepLink_AbandonBurnsLatch(t *testing.T) {
	events := deepLinkEvents()
	items := Group(events)
	d := NewDeepLink(nil)

	d.SetTarget("a1")
	if _, fire := d.Evaluate(events, items); !fire {
		t.Fatal("expected initial fire")
	}
	d.Abandon()

	if _, fire := d.Evaluate(events, items); fire {
		t.Error("expected no fire after abandon")
	}
	if d.Highlighted("a1") {
		t.Error("abandon must not highlight")
	}
}

func TestDeepLink_HighlightWindow(t *testing.T) {
	clock := time.Unix(1000, 0)
	d := NewDeepLink(func() time.Time { return clock })
	events := deepLinkEvents()

	d.SetTarget("a1")
	d.Evaluate(events, Group(events))
	d.ConfirmScrolled()

	if !d.Highlighted("a1") {
		t.Fatal("expected highlight right after scroll")
	}
	if d.Highlighted("u1") {
		t.Error("only the target highlights")
	}

	clock = clock.Add(2400 * time.Millisecond)
	if !d.Highlighted("a1") {
		t.Error("expected highlight at 2.4s")
	}

	clock = clock.Add(200 * time.Millisecond)
	if d.Highlighted("a1") {
		t.Error("expected highlight expired past 2.5s")
	}

	if !d.ClearExpired() {
		t.Error("expected ClearExpired to report a change")
	}
	if d.ClearExpired() {
		t.Error("expected second ClearExpired to be a no-op")
	}
}

func TestDeepLink_NewTargetCancelsHighlight(t *testing.T) {
	clock := time.Unix(1000, 0)
	d := NewDeepLink(func() time.Time { return clock })
	events := deepLinkEvents()

	d.SetTarget("a1")
	d.Evaluate(events, Group(events))
	d.ConfirmScrolled()
	if !d.Highlighted("a1") {
		t.Fatal("expected highlight")
	}

	d.SetTarget("u1")
	if d.Highlighted("a1") {
		t.Error("expected the old highlight cancelled")
	}
}
