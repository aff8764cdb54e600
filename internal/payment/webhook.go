package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrSignature is returned when the Stripe-Signature header does not
	// match the payload.
	ErrSignature = errors.New("invalid webhook signature")
	// ErrPayload is returned for payloads that cannot be parsed.
	ErrPayload = errors.New("invalid webhook payload")
)

// Verifier checks webhook signatures.  With an empty secret it parses
// payloads without verification; that mode exists for local development
// only and is refused by the production config.
type Verifier struct {
	secret string
}

// NewVerifier returns a Verifier for the endpoint secret.
func NewVerifier(secret string) *Verifier { return &Verifier{secret: secret} }

// Insecure reports whether signatures are skipped.
func (v *Verifier) Insecure() bool { return v.secret == "" }

// Parse verifies payload against the signature header and converts it
// into a typed Event.
func (v *Verifier) Parse(payload []byte, signature string) (Event, error) {
	var ev stripe.Event
	if v.secret != "" {
		var err error
		ev, err = webhook.ConstructEventWithOptions(payload, signature, v.secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrInvalidHeader) ||
				errors.Is(err, webhook.ErrNoValidSignature) || errors.Is(err, webhook.ErrTooOld) {
				return nil, fmt.Errorf("%w: %v", ErrSignature, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrPayload, err)
		}
	} else if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return FromStripe(ev)
}
