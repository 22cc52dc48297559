package service

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/dujiao-next/marketing/internal/constants"
)

func TestTrackingCaptureRoundTrip(t *testing.T) {
	capture := NewTrackingCapture(7)
	now := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)

	token := capture.Capture(" abcd1234", UTMParams{Source: strPtr("Email")}, 9, constants.LinkTargetCampaign, now)
	if token == nil {
		t.Fatalf("expected token")
	}
	encoded, err := capture.Encode(token)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := capture.Decode(encoded, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded == nil || decoded.CID != "ABCD1234" || decoded.CampaignID != 9 {
		t.Fatalf("unexpected decoded token: %+v", decoded)
	}
	if decoded.Source == nil || *decoded.Source != "email" {
		t.Fatalf("expected normalized source email, got %v", decoded.Source)
	}
	if !decoded.CapturedAt.Equal(now) {
		t.Fatalf("captured_at mismatch: %v", decoded.CapturedAt)
	}
}

func TestTrackingCaptureWithoutSignal(t *testing.T) {
	capture := NewTrackingCapture(7)
	if token := capture.Capture("bad", UTMParams{Source: strPtr("  ")}, 1, constants.LinkTargetCampaign, time.Now()); token != nil {
		t.Fatalf("expected nil token without signal, got %+v", token)
	}
}

func TestTrackingCaptureDecodeExpiredAndMalformed(t *testing.T) {
	capture := NewTrackingCapture(1)
	now := time.Now().UTC()
	token := capture.Capture("ABCD1234", UTMParams{}, 1, constants.LinkTargetCampaign, now.Add(-48*time.Hour))
	encoded, err := capture.Encode(token)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := capture.Decode(encoded, now)
	if err != nil {
		t.Fatalf("expired token should not be an error: %v", err)
	}
	if decoded != nil {
		t.Fatalf("expected expired token to be dropped")
	}

	if _, err := capture.Decode("%%%not-base64", now); err == nil {
		t.Fatalf("expected malformed token error")
	}
	notJSON := base64.RawURLEncoding.EncodeToString([]byte("plain"))
	if _, err := capture.Decode(notJSON, now); err == nil {
		t.Fatalf("expected json error")
	}
	if decoded, err := capture.Decode("", now); err != nil || decoded != nil {
		t.Fatalf("expected empty cookie to be absent")
	}
}

func TestTrackingCaptureDecodeRejectsFutureToken(t *testing.T) {
	capture := NewTrackingCapture(7)
	now := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)

	cases := []struct {
		name       string
		capturedAt time.Time
		wantErr    bool
	}{
		{name: "within clock skew", capturedAt: now.Add(2 * time.Minute), wantErr: false},
		{name: "beyond clock skew", capturedAt: now.Add(10 * time.Minute), wantErr: true},
		{name: "years ahead", capturedAt: now.Add(5 * 365 * 24 * time.Hour), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := capture.Capture("ABCD1234", UTMParams{}, 1, constants.LinkTargetCampaign, tc.capturedAt)
			encoded, err := capture.Encode(token)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			decoded, err := capture.Decode(encoded, now)
			if tc.wantErr {
				if err == nil || decoded != nil {
					t.Fatalf("future token should be malformed, got %+v %v", decoded, err)
				}
				return
			}
			if err != nil || decoded == nil {
				t.Fatalf("token within skew should decode, got %+v %v", decoded, err)
			}
		})
	}
}
