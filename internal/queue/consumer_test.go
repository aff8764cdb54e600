package queue

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerHandleLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsumer("amqp://unused", zerolog.New(&buf))

	body, err := json.Marshal(NotificationEvent{
		Kind: KindRentalRequested, UserID: 7, Title: "New rental request", Message: "Drill requested", RelatedID: 3,
	})
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "rental.requested", line["kind"])
	assert.Equal(t, float64(7), line["user_id"])
	assert.Equal(t, "Drill requested", line["message"])
	assert.Equal(t, "notification-consumer", line["component"])
}

func TestConsumerHandleRejectsMalformed(t *testing.T) {
	c := NewConsumer("amqp://unused", zerolog.Nop())
	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"kind":"rental.paid"}`)))
}
