package domain

// ElementType discriminates the kinds of leaf content elements.
type ElementType string

const (
	ElementWord    ElementType = "WORD"
	ElementNonWord ElementType = "NONWORD"
	ElementMarkup  ElementType = "MARKUP"
	ElementImage   ElementType = "IMAGE"
)

func (t ElementType) String() string { return string(t) }

// IsValid returns true if the element type is a known value.
func (t ElementType) IsValid() bool {
	switch t {
	case ElementWord, ElementNonWord, ElementMarkup, ElementImage:
		return true
	}
	return false
}

// Schema names the annotation kind a text is in.
type Schema string

const (
	SchemaPlain         Schema = "plain"
	SchemaSegmented     Schema = "segmented"
	SchemaGloss         Schema = "gloss"
	SchemaLemma         Schema = "lemma"
	SchemaLemmaAndGloss Schema = "lemma_and_gloss"
	SchemaPinyin        Schema = "pinyin"
	SchemaPhonetic      Schema = "phonetic"
)

func (s Schema) String() string { return string(s) }

// IsValid returns true if the schema is a known value.
func (s Schema) IsValid() bool {
	switch s {
	case SchemaPlain, SchemaSegmented, SchemaGloss, SchemaLemma,
		SchemaLemmaAndGloss, SchemaPinyin, SchemaPhonetic:
		return true
	}
	return false
}

// Provenance records how a saved phase file came to be.
type Provenance string

const (
	ProvenanceAIGenerated     Provenance = "ai_generated"
	ProvenanceAIRevised       Provenance = "ai_revised"
	ProvenanceAICorrected     Provenance = "ai_corrected"
	ProvenanceHumanRevised    Provenance = "human_revised"
	ProvenanceJiebaGenerated  Provenance = "jieba_generated"
	ProvenanceTaggerGenerated Provenance = "tagger_generated"
	ProvenanceTrivial         Provenance = "trivial"
	ProvenanceMerged          Provenance = "merged"
	ProvenanceGenerated       Provenance = "generated"
)

func (p Provenance) String() string { return string(p) }

// IsValid returns true if the provenance is a known value.
func (p Provenance) IsValid() bool {
	switch p {
	case ProvenanceAIGenerated, ProvenanceAIRevised, ProvenanceAICorrected,
		ProvenanceHumanRevised, ProvenanceJiebaGenerated,
		ProvenanceTaggerGenerated, ProvenanceTrivial, ProvenanceMerged,
		ProvenanceGenerated:
		return true
	}
	return false
}

// Phase names a stage of the annotation pipeline.
type Phase string

const (
	PhasePlain             Phase = "plain"
	PhaseTitle             Phase = "title"
	PhaseSummary           Phase = "summary"
	PhaseCEFRLevel         Phase = "cefr_level"
	PhaseSegmented         Phase = "segmented"
	PhaseGloss             Phase = "gloss"
	PhaseLemma             Phase = "lemma"
	PhaseLemmaAndGloss     Phase = "lemma_and_gloss"
	PhasePinyin            Phase = "pinyin"
	PhasePhonetic          Phase = "phonetic"
	PhaseImages            Phase = "images"
	PhaseAudio             Phase = "audio"
	PhaseFormatPreferences Phase = "format_preferences"
	PhaseRender            Phase = "render"
	PhaseRenderPhonetic    Phase = "render_phonetic"
	PhaseSocialNetwork     Phase = "social_network"
)

func (p Phase) String() string { return string(p) }

// IsValid returns true if the phase is a known value.
func (p Phase) IsValid() bool {
	switch p {
	case PhasePlain, PhaseTitle, PhaseSummary, PhaseCEFRLevel, PhaseSegmented,
		PhaseGloss, PhaseLemma, PhaseLemmaAndGloss, PhasePinyin, PhasePhonetic,
		PhaseImages, PhaseAudio, PhaseFormatPreferences, PhaseRender,
		PhaseRenderPhonetic, PhaseSocialNetwork:
		return true
	}
	return false
}

// AudioStrategy selects how audio for a scope (words or segments) is produced.
type AudioStrategy string

const (
	AudioTTS   AudioStrategy = "tts"
	AudioHuman AudioStrategy = "human"
)

// IsValid returns true if the strategy is a known value.
func (s AudioStrategy) IsValid() bool {
	return s == AudioTTS || s == AudioHuman
}

// HumanVoiceEngine is the engine id used for imported human recordings.
const HumanVoiceEngine = "human_voice"
