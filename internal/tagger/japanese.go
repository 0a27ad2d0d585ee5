package tagger

import (
	"context"
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/clara-project/clara-core/internal/domain"
)

// ipaPOS maps the IPA dictionary's top-level category to the uniform
// tagset. Subcategories refine pronouns and numerals below.
var ipaPOS = map[string]string{
	"名詞":   "NOUN",
	"動詞":   "VERB",
	"形容詞":  "ADJ",
	"副詞":   "ADV",
	"助詞":   "ADP",
	"助動詞":  "AUX",
	"連体詞":  "DET",
	"接続詞":  "CONJ",
	"感動詞":  "INTJ",
	"記号":   "PUNCT",
	"接頭詞":  "X",
	"フィラー": "X",
	"その他":  "X",
}

// Japanese analyses text with the kagome tokenizer over the bundled
// IPA dictionary.
type Japanese struct {
	tok *tokenizer.Tokenizer
}

func NewJapanese() (*Japanese, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("init kagome tokenizer: %w", err)
	}
	return &Japanese{tok: t}, nil
}

func (j *Japanese) Languages() []string { return []string{"japanese"} }

func (j *Japanese) Analyze(ctx context.Context, text string) ([]Morph, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ktoks := j.tok.Tokenize(text)
	out := make([]Morph, 0, len(ktoks))
	for _, kt := range ktoks {
		if strings.TrimSpace(kt.Surface) == "" {
			continue
		}
		lemma, ok := kt.BaseForm()
		if !ok || lemma == "" || lemma == "*" {
			lemma = kt.Surface
		}
		out = append(out, Morph{
			Surface: kt.Surface,
			Lemma:   lemma,
			POS:     convertIPAPOS(kt.POS()),
		})
	}
	return out, nil
}

// convertIPAPOS folds an IPA feature list into the uniform tagset.
func convertIPAPOS(features []string) string {
	if len(features) == 0 {
		return domain.NoPOS
	}
	if features[0] == "名詞" && len(features) > 1 {
		switch features[1] {
		case "代名詞":
			return "PRON"
		case "数":
			return "NUM"
		}
	}
	if tag, ok := ipaPOS[features[0]]; ok {
		return tag
	}
	return "X"
}
