package domain

import (
	"testing"
)

func TestTableNames(t *testing.T) {
	if got := (Document{}).TableName(); got != "documents" {
		t.Fatalf("Document table = %q", got)
	}
	if got := (ChatSession{}).TableName(); got != "chat_sessions" {
		t.Fatalf("ChatSession table = %q", got)
	}
	if got := (ChatMessage{}).TableName(); got != "chat_messages" {
		t.Fatalf("ChatMessage table = %q", got)
	}
	if got := (UserProfile{}).TableName(); got != "user_profiles" {
		t.Fatalf("UserProfile table = %q", got)
	}
}

func TestValidCategory(t *testing.T) {
	cases := map[string]bool{
		"business": true,
		"citizen":  true,
		"student":  true,
		"Business": false,
		"":         false,
		"personal": false,
	}
	for in, want := range cases {
		if got := ValidCategory(in); got != want {
			t.Errorf("ValidCategory(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestValidRiskLevel(t *testing.T) {
	cases := map[string]bool{
		"low":      true,
		"medium":   true,
		"high":     true,
		"critical": false,
		"":         false,
		"LOW":      false,
	}
	for in, want := range cases {
		if got := ValidRiskLevel(in); got != want {
			t.Errorf("ValidRiskLevel(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestDocument_Analyzed(t *testing.T) {
	d := &Document{Status: StatusUploaded}
	if d.Analyzed() {
		t.Fatalf("uploaded document must not report analyzed")
	}
	d.Status = StatusProcessing
	if d.Analyzed() {
		t.Fatalf("processing document must not report analyzed")
	}
	d.Status = StatusCompleted
	if !d.Analyzed() {
		t.Fatalf("completed document must report analyzed")
	}
}

func TestStringList_ValueAndScan(t *testing.T) {
	// nil round-trips as NULL
	var nilList StringList
	v, err := nilList.Value()
	if err != nil {
		t.Fatalf("Value(nil): %v", err)
	}
	if v != nil {
		t.Fatalf("nil StringList should store NULL, got %v", v)
	}
	var scanned StringList
	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if scanned != nil {
		t.Fatalf("Scan(nil) should yield nil, got %v", scanned)
	}

	// values round-trip through the JSON text column
	l := StringList{"first clause", "second clause"}
	v, err = l.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Value should produce string, got %T", v)
	}
	var back StringList
	if err := back.Scan(s); err != nil {
		t.Fatalf("Scan(string): %v", err)
	}
	if len(back) != 2 || back[0] != "first clause" || back[1] != "second clause" {
		t.Fatalf("round-trip mismatch: %v", back)
	}
	// []byte sources are accepted too (driver-dependent)
	var fromBytes StringList
	if err := fromBytes.Scan([]byte(s)); err != nil {
		t.Fatalf("Scan([]byte): %v", err)
	}
	if len(fromBytes) != 2 {
		t.Fatalf("byte round-trip mismatch: %v", fromBytes)
	}
	// anything else is rejected
	if err := fromBytes.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported source type")
	}
}

func TestGlossaryTerms_ValueAndScan(t *testing.T) {
	var nilTerms GlossaryTerms
	v, err := nilTerms.Value()
	if err != nil {
		t.Fatalf("Value(nil): %v", err)
	}
	if v != nil {
		t.Fatalf("nil GlossaryTerms should store NULL, got %v", v)
	}

	g := GlossaryTerms{
		{Term: "force majeure", Definition: "unforeseeable circumstances preventing fulfillment"},
		{Term: "lien", Definition: "a claim against property as security for a debt"},
	}
	v, err = g.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Value should produce string, got %T", v)
	}
	var back GlossaryTerms
	if err := back.Scan(s); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(back) != 2 || back[0].Term != "force majeure" || back[1].Definition == "" {
		t.Fatalf("round-trip mismatch: %+v", back)
	}
	if err := back.Scan(3.14); err == nil {
		t.Fatalf("expected error for unsupported source type")
	}
}
