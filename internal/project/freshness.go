package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clara-project/clara-core/internal/domain"
)

// upstream declares which phases feed each phase. A phase is stale when any
// upstream phase has a newer effective timestamp.
var upstream = map[domain.Phase][]domain.Phase{
	domain.PhaseTitle:             {domain.PhasePlain},
	domain.PhaseSummary:           {domain.PhasePlain},
	domain.PhaseCEFRLevel:         {domain.PhasePlain},
	domain.PhaseSegmented:         {domain.PhasePlain},
	domain.PhaseImages:            {domain.PhaseSegmented},
	domain.PhasePhonetic:          {domain.PhaseSegmented},
	domain.PhaseGloss:             {domain.PhaseSegmented},
	domain.PhaseLemma:             {domain.PhaseSegmented},
	domain.PhaseAudio:             {domain.PhaseSegmented},
	domain.PhaseFormatPreferences: {domain.PhaseSegmented},
	domain.PhaseLemmaAndGloss:     {domain.PhaseGloss, domain.PhaseLemma},
	domain.PhaseRender: {
		domain.PhaseTitle, domain.PhaseGloss, domain.PhaseLemma,
		domain.PhaseImages, domain.PhaseAudio, domain.PhaseFormatPreferences,
	},
	domain.PhaseRenderPhonetic: {
		domain.PhasePhonetic, domain.PhaseImages,
		domain.PhaseAudio, domain.PhaseFormatPreferences,
	},
	domain.PhaseSocialNetwork: {
		domain.PhaseRender, domain.PhaseRenderPhonetic,
		domain.PhaseSummary, domain.PhaseCEFRLevel,
	},
}

// statusOrder lists the phases in pipeline order for status reports.
var statusOrder = []domain.Phase{
	domain.PhasePlain, domain.PhaseTitle, domain.PhaseSummary,
	domain.PhaseCEFRLevel, domain.PhaseSegmented, domain.PhaseGloss,
	domain.PhaseLemma, domain.PhaseLemmaAndGloss, domain.PhasePinyin,
	domain.PhasePhonetic, domain.PhaseImages, domain.PhaseAudio,
	domain.PhaseFormatPreferences, domain.PhaseRender,
	domain.PhaseRenderPhonetic, domain.PhaseSocialNetwork,
}

// PhaseStatus reports one phase's presence and freshness. Staleness is
// advisory: nothing rebuilds automatically.
type PhaseStatus struct {
	Phase   domain.Phase
	Exists  bool
	ModTime time.Time
	Stale   bool
}

// Status reports every phase of the project in pipeline order.
func (p *Project) Status() []PhaseStatus {
	out := make([]PhaseStatus, 0, len(statusOrder))
	for _, phase := range statusOrder {
		st := PhaseStatus{Phase: phase}
		if ts, ok := p.effectiveTime(phase); ok {
			st.Exists = true
			st.ModTime = ts
			st.Stale = p.staleAgainstUpstream(phase, ts)
		}
		out = append(out, st)
	}
	return out
}

// Stale reports whether a phase's output is older than any of its declared
// upstream phases. An absent phase is never stale.
func (p *Project) Stale(phase domain.Phase) bool {
	ts, ok := p.effectiveTime(phase)
	if !ok {
		return false
	}
	return p.staleAgainstUpstream(phase, ts)
}

func (p *Project) staleAgainstUpstream(phase domain.Phase, ts time.Time) bool {
	for _, up := range upstream[phase] {
		if upTS, ok := p.effectiveTime(up); ok && upTS.After(ts) {
			return true
		}
	}
	return false
}

// effectiveTime returns a phase's effective timestamp: the phase file's
// mtime, or for artifact phases the latest mtime of any artifact. Rendered
// phases count only the emitted HTML files.
func (p *Project) effectiveTime(phase domain.Phase) (time.Time, bool) {
	if !isArtifactPhase(phase) {
		info, err := os.Stat(p.PhaseFile(phase))
		if err != nil {
			return time.Time{}, false
		}
		return info.ModTime(), true
	}

	htmlOnly := phase == domain.PhaseRender || phase == domain.PhaseRenderPhonetic
	var latest time.Time
	found := false
	_ = filepath.WalkDir(p.Dir(phase), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if htmlOnly && !strings.HasSuffix(path, ".html") {
			return nil
		}
		if info, err := d.Info(); err == nil {
			if !found || info.ModTime().After(latest) {
				latest = info.ModTime()
				found = true
			}
		}
		return nil
	})
	return latest, found
}
