package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purescan/backend/internal/domain"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	now := time.Now()

	t.Run("accepts valid signature", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), sign(payload, testSecret, now))
		assert.NoError(t, VerifySignature(payload, header, testSecret, now))
	})

	t.Run("accepts one valid signature among several", func(t *testing.T) {
		// Stripe sends multiple v1 entries during secret rotation
		header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(), sign(payload, "old-secret", now), sign(payload, testSecret, now))
		assert.NoError(t, VerifySignature(payload, header, testSecret, now))
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), sign(payload, "wrong-secret", now))
		err := VerifySignature(payload, header, testSecret, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("rejects tampered payload", func(t *testing.T) {
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), sign(payload, testSecret, now))
		err := VerifySignature([]byte(`{"type":"evil"}`), header, testSecret, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("rejects old timestamp", func(t *testing.T) {
		old := now.Add(-6 * time.Minute)
		header := fmt.Sprintf("t=%d,v1=%s", old.Unix(), sign(payload, testSecret, old))
		err := VerifySignature(payload, header, testSecret, now)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("accepts timestamp within tolerance", func(t *testing.T) {
		recent := now.Add(-4 * time.Minute)
		header := fmt.Sprintf("t=%d,v1=%s", recent.Unix(), sign(payload, testSecret, recent))
		assert.NoError(t, VerifySignature(payload, header, testSecret, now))
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		for _, header := range []string{"", "garbage", "t=123", "v1=abc", "t=notanumber,v1=abc"} {
			err := VerifySignature(payload, header, testSecret, now)
			assert.ErrorIs(t, err, domain.ErrInvalidSignature, "header %q", header)
		}
	})
}

func TestParseEvent(t *testing.T) {
	t.Run("parses checkout event", func(t *testing.T) {
		payload := []byte(`{
			"type": "checkout.session.completed",
			"data": {
				"object": {
					"customer": "cus_123",
					"client_reference_id": "user-42",
					"subscription": "sub_9"
				}
			}
		}`)

		event, err := ParseEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, domain.EventCheckoutCompleted, event.Type)
		assert.Equal(t, "cus_123", event.Object.Customer)
		assert.Equal(t, "user-42", event.Object.ClientReferenceID)
		assert.Equal(t, "sub_9", event.Object.Subscription)
	})

	t.Run("parses subscription event status", func(t *testing.T) {
		payload := []byte(`{
			"type": "customer.subscription.updated",
			"data": {"object": {"customer": "cus_123", "status": "past_due"}}
		}`)

		event, err := ParseEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, "past_due", event.Object.Status)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := ParseEvent([]byte("not json"))
		assert.Error(t, err)
	})
}
