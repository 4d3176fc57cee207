package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/hivewire/internal/runtime/addressing"
	"github.com/drblury/hivewire/internal/runtime/envelope"
	errspkg "github.com/drblury/hivewire/internal/runtime/errors"
	"github.com/drblury/hivewire/internal/runtime/headers"
	"github.com/drblury/hivewire/internal/runtime/logging"
)

func newTestPublisher(tr *mockTransport) *Publisher {
	cfg := testConfig()
	resolver, builder := newTestResolver(cfg)
	return NewPublisher(cfg, resolver, builder, tr, logging.Nop(), newTestMetrics())
}

func TestPublishBroadcast(t *testing.T) {
	tr := newMockTransport()
	pub := newTestPublisher(tr)

	results, err := pub.Publish(context.Background(), addressing.Descriptor{
		Type:       addressing.Broadcast,
		Agent:      "puppet",
		Collective: "mcollective",
		Payload:    []byte("ping"),
	})
	require.NoError(t, err)
	assert.Nil(t, results)

	published := tr.published()
	require.Len(t, published, 1)
	assert.Equal(t, "mcollective.broadcast.agent.puppet", published[0].subject)
	assert.Empty(t, published[0].replyTo)

	payload, hdrs, err := envelope.Decode(published[0].data)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), payload)
	assert.Equal(t, "node0.example.net", hdrs.Sender())
	assert.Empty(t, hdrs.ReplyTo())
}

func TestPublishRequestSynthesizesReplySubject(t *testing.T) {
	tr := newMockTransport()
	pub := newTestPublisher(tr)

	_, err := pub.Publish(context.Background(), addressing.Descriptor{
		Type:       addressing.Request,
		Agent:      "puppet",
		Collective: "mcollective",
		Payload:    []byte("status"),
	})
	require.NoError(t, err)

	published := tr.published()
	require.Len(t, published, 1)
	assert.Equal(t, "mcollective.broadcast.agent.puppet", published[0].subject)

	_, hdrs, err := envelope.Decode(published[0].data)
	require.NoError(t, err)

	wantPrefix := fmt.Sprintf("mcollective.reply.node0.example.net.%d.", os.Getpid())
	assert.Contains(t, hdrs.ReplyTo(), wantPrefix)
	assert.Equal(t, hdrs.ReplyTo(), published[0].replyTo)
}

func TestPublishRequestKeepsForwardedReplySubject(t *testing.T) {
	tr := newMockTransport()
	pub := newTestPublisher(tr)

	_, err := pub.Publish(context.Background(), addressing.Descriptor{
		Type:       addressing.Request,
		Agent:      "puppet",
		Collective: "mcollective",
		ReplyTo:    "mcollective.reply.client1.999.7",
	})
	require.NoError(t, err)

	published := tr.published()
	require.Len(t, published, 1)

	_, hdrs, err := envelope.Decode(published[0].data)
	require.NoError(t, err)
	assert.Equal(t, "mcollective.reply.client1.999.7", hdrs.ReplyTo())
}

func TestPublishReply(t *testing.T) {
	t.Run("goes to the request's reply subject", func(t *testing.T) {
		tr := newMockTransport()
		pub := newTestPublisher(tr)

		_, err := pub.Publish(context.Background(), addressing.Descriptor{
			Type:       addressing.Reply,
			Agent:      "puppet",
			Collective: "mcollective",
			ReplyTo:    "mcollective.reply.client1.999.7",
			Payload:    []byte("done"),
		})
		require.NoError(t, err)

		published := tr.published()
		require.Len(t, published, 1)
		assert.Equal(t, "mcollective.reply.client1.999.7", published[0].subject)

		_, hdrs, err := envelope.Decode(published[0].data)
		require.NoError(t, err)
		assert.Empty(t, hdrs.ReplyTo())
	})

	t.Run("fails without a reply subject", func(t *testing.T) {
		tr := newMockTransport()
		pub := newTestPublisher(tr)

		_, err := pub.Publish(context.Background(), addressing.Descriptor{
			Type:       addressing.Reply,
			Agent:      "puppet",
			Collective: "mcollective",
		})
		assert.ErrorIs(t, err, errspkg.ErrMissingReplyAddress)
		assert.Empty(t, tr.published())
	})
}

func TestPublishDirected(t *testing.T) {
	tr := newMockTransport()
	pub := newTestPublisher(tr)

	_, err := pub.Publish(context.Background(), addressing.Descriptor{
		Type:        addressing.Directed,
		Agent:       "puppet",
		Collective:  "subco",
		Destination: "node7.example.net",
	})
	require.NoError(t, err)

	published := tr.published()
	require.Len(t, published, 1)
	assert.Equal(t, "subco.node.node7.example.net", published[0].subject)
}

func TestPublishAddressingErrorsBeforeTransport(t *testing.T) {
	t.Run("invalid type", func(t *testing.T) {
		tr := newMockTransport()
		pub := newTestPublisher(tr)

		_, err := pub.Publish(context.Background(), addressing.Descriptor{
			Type:       addressing.MessageType(99),
			Agent:      "puppet",
			Collective: "mcollective",
		})
		assert.ErrorIs(t, err, errspkg.ErrInvalidTargetType)
		assert.Empty(t, tr.published())
	})

	t.Run("unknown collective", func(t *testing.T) {
		tr := newMockTransport()
		pub := newTestPublisher(tr)

		_, err := pub.Publish(context.Background(), addressing.Descriptor{
			Type:       addressing.Broadcast,
			Agent:      "puppet",
			Collective: "othernet",
		})
		assert.ErrorIs(t, err, errspkg.ErrUnknownCollective)
		assert.Empty(t, tr.published())
	})

	t.Run("invalid type wins over unknown collective", func(t *testing.T) {
		tr := newMockTransport()
		pub := newTestPublisher(tr)

		_, err := pub.Publish(context.Background(), addressing.Descriptor{
			Type:       addressing.MessageType(99),
			Agent:      "puppet",
			Collective: "othernet",
		})
		assert.ErrorIs(t, err, errspkg.ErrInvalidTargetType)
	})
}

func TestPublishDirectRequestFanOut(t *testing.T) {
	tr := newMockTransport()
	pub := newTestPublisher(tr)

	hosts := []string{"node1.example.net", "node2.example.net", "node3.example.net"}
	results, err := pub.Publish(context.Background(), addressing.Descriptor{
		Type:            addressing.DirectRequest,
		Agent:           "puppet",
		Collective:      "mcollective",
		Payload:         []byte("restart"),
		DiscoveredHosts: hosts,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	published := tr.published()
	require.Len(t, published, 3)

	var replySubjects []string
	for i, host := range hosts {
		assert.Equal(t, host, results[i].Identity)
		assert.NoError(t, results[i].Err)
		assert.Equal(t, "mcollective.node."+host, published[i].subject)

		payload, hdrs, err := envelope.Decode(published[i].data)
		require.NoError(t, err)
		assert.Equal(t, []byte("restart"), payload)
		replySubjects = append(replySubjects, hdrs.ReplyTo())
	}

	// One request, one reply subject, shared across the fan-out
	assert.NotEmpty(t, replySubjects[0])
	assert.Equal(t, replySubjects[0], replySubjects[1])
	assert.Equal(t, replySubjects[0], replySubjects[2])
}

func TestPublishDirectRequestContinuesPastNodeFailure(t *testing.T) {
	tr := newMockTransport()
	tr.publishErrs["mcollective.node.node2.example.net"] = errors.New("slow consumer")
	pub := newTestPublisher(tr)

	results, err := pub.Publish(context.Background(), addressing.Descriptor{
		Type:            addressing.DirectRequest,
		Agent:           "puppet",
		Collective:      "mcollective",
		DiscoveredHosts: []string{"node1.example.net", "node2.example.net", "node3.example.net"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.ErrorContains(t, results[1].Err, "slow consumer")
	assert.NoError(t, results[2].Err)

	// All three nodes were attempted despite the failure in the middle
	assert.Len(t, tr.published(), 3)
}

func TestPublishDirectRequestWithoutHosts(t *testing.T) {
	tr := newMockTransport()
	pub := newTestPublisher(tr)

	_, err := pub.Publish(context.Background(), addressing.Descriptor{
		Type:       addressing.DirectRequest,
		Agent:      "puppet",
		Collective: "mcollective",
	})
	assert.ErrorIs(t, err, errspkg.ErrMissingDiscoveredHosts)
	assert.Empty(t, tr.published())
}

func TestPublishReplySequenceAdvancesPerRequest(t *testing.T) {
	tr := newMockTransport()
	pub := newTestPublisher(tr)

	subjects := make(map[string]struct{})
	for i := 0; i < 3; i++ {
		_, err := pub.Publish(context.Background(), addressing.Descriptor{
			Type:       addressing.Request,
			Agent:      "puppet",
			Collective: "mcollective",
		})
		require.NoError(t, err)
	}

	for _, record := range tr.published() {
		_, hdrs, err := envelope.Decode(record.data)
		require.NoError(t, err)
		subjects[hdrs[headers.ReplyTo]] = struct{}{}
	}
	assert.Len(t, subjects, 3)
}
