package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPubSub_NotifyHandlers(t *testing.T) {
	ps := NewPubSub("postgresql://localhost/none", MediaJobsChannel)
	defer ps.cancel()

	var got []Event
	ps.Subscribe(func(e Event) { got = append(got, e) })
	ps.Subscribe(func(e Event) { got = append(got, e) })

	ps.notifyHandlers(Event{Channel: MediaJobsChannel, Payload: "asset-1"})

	assert.Len(t, got, 2)
	assert.Equal(t, "asset-1", got[0].Payload)
	assert.Equal(t, MediaJobsChannel, got[1].Channel)
}
