// Package transport implements the external two-frame spot subscriber and
// daily-summary publisher of spec.md §6, over MQTT (the pub/sub transport
// madpsy-wsprnet_mqtt/wsprnet_mqtt already uses for ham-radio spot-like
// traffic).
package transport

import (
	"strconv"
	"strings"

	"dxcluster/window"
)

// TopicPrefix is the frame-1 prefix that identifies a spot message
// (spec §6: "Frame 1: ASCII topic, recognized if it begins with PROD_SPOT").
const TopicPrefix = "PROD_SPOT"

// frameFieldCount is the number of pipe-delimited fields frame 2 requires.
const frameFieldCount = 12

// IsSpotTopic reports whether topic is a recognized spot-stream topic.
func IsSpotTopic(topic string) bool {
	return strings.HasPrefix(topic, TopicPrefix)
}

// ParseFrame decodes frame 2's pipe-delimited payload into a
// window.Candidate. It returns false for anything that isn't exactly 12
// fields or fails to parse a numeric field, per spec §6 ("malformed records
// are dropped").
//
// Field order: freq_kHz | dx | de | spot_type | base_freq | snr | speed |
// mode | ntp | jstime_sent_ms | jstime_recv_ms | extradata.
func ParseFrame(payload []byte) (window.Candidate, bool) {
	fields := strings.Split(string(payload), "|")
	if len(fields) != frameFieldCount {
		return window.Candidate{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	freq, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return window.Candidate{}, false
	}
	dx := fields[1]
	de := fields[2]
	spotType := window.SpotType(strings.ToUpper(fields[3]))
	snr, err := strconv.Atoi(fields[5])
	if err != nil {
		return window.Candidate{}, false
	}
	mode := strings.ToUpper(fields[7])
	recvMS, err := strconv.ParseInt(fields[10], 10, 64)
	if err != nil {
		return window.Candidate{}, false
	}

	if de == "" || dx == "" {
		return window.Candidate{}, false
	}

	return window.Candidate{
		De:       de,
		Dx:       dx,
		TimeMS:   recvMS,
		Snr:      snr,
		Freq:     freq,
		Mode:     mode,
		SpotType: spotType,
	}, true
}
