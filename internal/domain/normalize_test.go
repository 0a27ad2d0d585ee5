package domain

import "testing"

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Hello   World  ", "hello world"},
		{"l'avion", "l'avion"},
		{"", ""},
		{"\tUn\nDeux", "un deux"},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a <b>bold</b> word", "a bold word"},
		{"dangling <tag", "dangling "},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSegmentAudioKey(t *testing.T) {
	t.Parallel()

	if got := SegmentAudioKey(" Le  <i>chat</i>\ndort. "); got != "Le chat dort." {
		t.Fatalf("SegmentAudioKey = %q", got)
	}
	// Case preserved for normal segments, lowered in phonetic mode.
	if got := PhoneticSegmentAudioKey(" ʃa "); got != "ʃa" {
		t.Fatalf("PhoneticSegmentAudioKey = %q", got)
	}
}

func TestSchemaAndPhaseEnums(t *testing.T) {
	t.Parallel()

	if !SchemaLemmaAndGloss.IsValid() || Schema("bogus").IsValid() {
		t.Fatal("Schema.IsValid misbehaves")
	}
	if !PhaseRenderPhonetic.IsValid() || Phase("bogus").IsValid() {
		t.Fatal("Phase.IsValid misbehaves")
	}
	if !ProvenanceMerged.IsValid() || Provenance("bogus").IsValid() {
		t.Fatal("Provenance.IsValid misbehaves")
	}
}
