package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainGraph = "eventloop/graph/v1"
	DomainTrace = "eventloop/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GraphHash computes the content hash of a decoded config document.
// Two documents differing only in key order or whitespace hash identically.
func GraphHash(doc any) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("GraphHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// TraceDigest hashes the observable content of a trace: kinds, events,
// actions and details in sequence order. Run ids are excluded so two runs of
// the same graph with the same capability behavior produce the same digest.
func TraceDigest(events []TraceEvent) (string, error) {
	list := make([]any, len(events))
	for i, ev := range events {
		list[i] = TraceEventMap(ev, false)
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("TraceDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// TraceEventMap converts a trace event to a map for canonical serialization.
// Empty optional fields are omitted.
func TraceEventMap(ev TraceEvent, withRunID bool) map[string]any {
	m := map[string]any{
		"seq":   ev.Seq,
		"kind":  string(ev.Kind),
		"depth": ev.Depth,
	}
	if withRunID && ev.RunID != "" {
		m["run_id"] = ev.RunID
	}
	if ev.EventID != "" {
		m["event_id"] = ev.EventID
	}
	if ev.Action != "" {
		m["action"] = string(ev.Action)
	}
	if len(ev.Detail) > 0 {
		m["detail"] = ev.Detail
	}
	return m
}
