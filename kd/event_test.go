package kd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planScheduler() *EventScheduler {
	return NewEventScheduler(
		[]Event{
			{Name: "layer3", Epoch: 5, Kind: EventHint},
			{Name: "layer4", Epoch: 5, Kind: EventHint},
		},
		[]Event{
			{Name: "layer3.0.conv1", Epoch: 5, Kind: EventUnfreeze},
		},
		[]Event{
			{Name: "layer3.0.conv1", Epoch: 5, Kind: EventPrune},
			{Name: "layer3.0.conv2", Epoch: 8, Kind: EventPrune},
		},
	)
}

func eventNames(events []Event) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = string(ev.Kind) + ":" + ev.Name
	}
	return names
}

func TestEventScheduler_FireDueIsIdempotent(t *testing.T) {
	es := planScheduler()

	first := es.FireDue(5)
	require.Len(t, first, 4)
	second := es.FireDue(5)
	assert.Empty(t, second, "second call with the same epoch must return nothing")
}

func TestEventScheduler_CategoryThenListOrder(t *testing.T) {
	es := planScheduler()

	got := eventNames(es.FireDue(5))
	want := []string{"hint:layer3", "hint:layer4", "unfreeze:layer3.0.conv1", "prune:layer3.0.conv1"}
	assert.Equal(t, want, got)
}

func TestEventScheduler_EpochWithNoEvents(t *testing.T) {
	es := planScheduler()
	assert.Empty(t, es.FireDue(1))
	assert.Empty(t, es.FireDue(7))
}

func TestEventScheduler_FiredEventsStayInspectable(t *testing.T) {
	es := planScheduler()
	es.FireDue(5)

	assert.Len(t, es.Events(), 5, "plan keeps fired events")
	pending := es.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "layer3.0.conv2", pending[0].Name)
}

func TestEventScheduler_RestoreFired(t *testing.T) {
	es := planScheduler()
	es.FireDue(5)
	keys := es.FiredNames()

	resumed := planScheduler()
	resumed.RestoreFired(keys)
	assert.Empty(t, resumed.FireDue(5), "restored events must not re-fire")
	assert.Len(t, resumed.FireDue(8), 1)
}

func TestEventScheduler_RestoreKeepsLaterDuplicatePending(t *testing.T) {
	build := func() *EventScheduler {
		return NewEventScheduler(nil, nil, []Event{
			{Name: "layer3.0.conv2", Epoch: 2, Kind: EventPrune},
			{Name: "layer3.0.conv2", Epoch: 10, Kind: EventPrune},
		})
	}

	es := build()
	require.Len(t, es.FireDue(2), 1)

	resumed := build()
	resumed.RestoreFired(es.FiredNames())
	assert.Empty(t, resumed.FireDue(2), "epoch-2 prune must not re-fire")
	got := resumed.FireDue(10)
	require.Len(t, got, 1, "epoch-10 prune of the same module must survive the resume")
	assert.Equal(t, 10, got[0].Epoch)
}

func TestEventScheduler_RestoreIgnoresUnknownKeys(t *testing.T) {
	es := planScheduler()
	es.RestoreFired([]string{"prune:not.in.plan"})
	assert.Len(t, es.FireDue(5), 4)
}
