package domain

// Clone returns a deep copy of the text. Phase operations annotate a copy
// so that a failed phase never leaves the caller's model half-mutated.
func (t *Text) Clone() *Text {
	out := &Text{
		L2Language: t.L2Language,
		L1Language: t.L1Language,
		Voice:      t.Voice,
	}
	out.Pages = make([]Page, len(t.Pages))
	for p := range t.Pages {
		out.Pages[p].Annotations = t.Pages[p].Annotations.clone()
		out.Pages[p].Segments = make([]Segment, len(t.Pages[p].Segments))
		for s := range t.Pages[p].Segments {
			src := &t.Pages[p].Segments[s]
			dst := &out.Pages[p].Segments[s]
			dst.Annotations = src.Annotations.clone()
			dst.Elements = make([]ContentElement, len(src.Elements))
			for i := range src.Elements {
				dst.Elements[i] = src.Elements[i]
				dst.Elements[i].Annotations = src.Elements[i].Annotations.clone()
			}
		}
	}
	if t.Annotations.Concordance != nil {
		out.Annotations.Concordance = make(map[string]*ConcordanceEntry, len(t.Annotations.Concordance))
		for lemma, e := range t.Annotations.Concordance {
			segs := make([]int, len(e.Segments))
			copy(segs, e.Segments)
			out.Annotations.Concordance[lemma] = &ConcordanceEntry{Frequency: e.Frequency, Segments: segs}
		}
	}
	if t.Annotations.Other != nil {
		out.Annotations.Other = make(map[string]string, len(t.Annotations.Other))
		for k, v := range t.Annotations.Other {
			out.Annotations.Other[k] = v
		}
	}
	return out
}

func (a Annotations) clone() Annotations {
	out := a
	if a.TTS != nil {
		ref := *a.TTS
		out.TTS = &ref
	}
	if a.Other != nil {
		out.Other = make(map[string]string, len(a.Other))
		for k, v := range a.Other {
			out.Other[k] = v
		}
	}
	return out
}
