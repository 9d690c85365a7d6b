package transport

import "testing"

func validFrame() string {
	return "14020.10|AA1A|X|CQ|14000|20|25|CW|1|1000000|1005000|extra"
}

func TestParseFrameAcceptsWellFormedPayload(t *testing.T) {
	c, ok := ParseFrame([]byte(validFrame()))
	if !ok {
		t.Fatalf("expected well-formed frame to parse")
	}
	if c.De != "X" || c.Dx != "AA1A" {
		t.Fatalf("unexpected de/dx: %+v", c)
	}
	if c.Freq != 14020.10 {
		t.Fatalf("unexpected freq: %v", c.Freq)
	}
	if c.Snr != 20 {
		t.Fatalf("unexpected snr: %v", c.Snr)
	}
	if c.Mode != "CW" {
		t.Fatalf("unexpected mode: %v", c.Mode)
	}
	if c.TimeMS != 1005000 {
		t.Fatalf("expected TimeMS from jstime_recv_ms, got %v", c.TimeMS)
	}
}

func TestParseFrameRejectsWrongFieldCount(t *testing.T) {
	if _, ok := ParseFrame([]byte("14020|AA1A|X")); ok {
		t.Fatalf("expected rejection of short frame")
	}
}

func TestParseFrameRejectsNonNumericFreq(t *testing.T) {
	bad := "notanumber|AA1A|X|CQ|14000|20|25|CW|1|1000000|1005000|extra"
	if _, ok := ParseFrame([]byte(bad)); ok {
		t.Fatalf("expected rejection of malformed freq field")
	}
}

func TestIsSpotTopicRecognizesPrefix(t *testing.T) {
	if !IsSpotTopic("PROD_SPOT/20m") {
		t.Fatalf("expected PROD_SPOT-prefixed topic recognized")
	}
	if IsSpotTopic("OTHER_TOPIC") {
		t.Fatalf("expected non-matching topic rejected")
	}
}
