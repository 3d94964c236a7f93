package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/purescan/backend/internal/domain"
)

// signatureTolerance is the maximum age of a webhook signature timestamp.
// Older events are treated as replays and rejected.
const signatureTolerance = 300 * time.Second

// VerifySignature checks a Stripe-Signature header against the raw request
// body. The header carries a unix timestamp and one or more v1 signatures;
// each signature is HMAC-SHA256 over "<timestamp>.<body>" keyed with the
// endpoint secret.
func VerifySignature(payload []byte, sigHeader, secret string, now time.Time) error {
	var (
		timestamp  string
		signatures []string
	)
	for _, part := range strings.Split(sigHeader, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed signature header", domain.ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", domain.ErrInvalidSignature)
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", domain.ErrInvalidSignature)
}

// ParseEvent decodes a verified webhook body into the fields the
// entitlement logic needs
func ParseEvent(payload []byte) (*domain.WebhookEvent, error) {
	var envelope struct {
		Type string `json:"type"`
		Data struct {
			Object domain.WebhookObject `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse webhook event: %w", err)
	}
	return &domain.WebhookEvent{Type: envelope.Type, Object: envelope.Data.Object}, nil
}
