package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/iliyamo/rentable/internal/model"
)

const checkoutPayload = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_1",
    "object": "checkout.session",
    "payment_intent": "pi_1",
    "metadata": {"rental_id": "12", "user_id": "7"}
  }}
}`

func TestParseUnsignedCheckout(t *testing.T) {
	v := NewVerifier("")
	require.True(t, v.Insecure())

	ev, err := v.Parse([]byte(checkoutPayload), "")
	require.NoError(t, err)
	cc, ok := ev.(CheckoutCompleted)
	require.True(t, ok)
	assert.Equal(t, "evt_1", cc.Meta().ID)
	assert.Equal(t, "cs_1", cc.SessionID)
	require.NotNil(t, cc.RentalID)
	assert.Equal(t, uint64(12), *cc.RentalID)
	require.NotNil(t, cc.UserID)
	assert.Equal(t, uint64(7), *cc.UserID)
	require.NotNil(t, cc.PaymentIntentID)
	assert.Equal(t, "pi_1", *cc.PaymentIntentID)
}

func TestParseSignedPayload(t *testing.T) {
	v := NewVerifier("whsec_test")
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(checkoutPayload),
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	ev, err := v.Parse(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, TypeCheckoutCompleted, ev.Meta().Type)

	_, err = v.Parse(signed.Payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrSignature)
}

func TestParseSubscriptionEvents(t *testing.T) {
	v := NewVerifier("")
	ev, err := v.Parse([]byte(`{"id":"evt_2","type":"customer.subscription.updated",
		"data":{"object":{"id":"sub_1","status":"past_due","metadata":{"user_id":"3","tier":"pro"}}}}`), "")
	require.NoError(t, err)
	sc, ok := ev.(SubscriptionChanged)
	require.True(t, ok)
	assert.Equal(t, model.TierPro, sc.Tier)
	assert.False(t, sc.Active)
	assert.Equal(t, "sub_1", sc.SubscriptionID)

	ev, err = v.Parse([]byte(`{"id":"evt_3","type":"customer.subscription.created",
		"data":{"object":{"id":"sub_2","status":"active","metadata":{"user_id":"3"}}}}`), "")
	require.NoError(t, err)
	sc = ev.(SubscriptionChanged)
	assert.Equal(t, model.TierStarter, sc.Tier)
	assert.True(t, sc.Active)

	ev, err = v.Parse([]byte(`{"id":"evt_4","type":"customer.subscription.deleted",
		"data":{"object":{"id":"sub_2","metadata":{"user_id":"3"}}}}`), "")
	require.NoError(t, err)
	sd := ev.(SubscriptionDeleted)
	require.NotNil(t, sd.UserID)
	assert.Equal(t, uint64(3), *sd.UserID)
}

func TestParseUnknownAndMalformed(t *testing.T) {
	v := NewVerifier("")
	ev, err := v.Parse([]byte(`{"id":"evt_5","type":"invoice.paid","data":{"object":{}}}`), "")
	require.NoError(t, err)
	_, ok := ev.(Unknown)
	assert.True(t, ok)

	_, err = v.Parse([]byte(`not json`), "")
	assert.ErrorIs(t, err, ErrPayload)

	_, err = v.Parse([]byte(`{"type":"invoice.paid"}`), "")
	assert.ErrorIs(t, err, ErrPayload)
}
