package project

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clara-project/clara-core/internal/config"
	"github.com/clara-project/clara-core/internal/diff"
	"github.com/clara-project/clara-core/internal/domain"
	"github.com/clara-project/clara-core/pkg/ctxutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProject(t *testing.T) *Project {
	t.Helper()
	core := New(testLogger(), config.ProjectConfig{RootDir: t.TempDir()})
	p, err := core.Create("p1", "french", "english")
	require.NoError(t, err)
	return p
}

func TestCreateOpenRemove(t *testing.T) {
	t.Parallel()

	core := New(testLogger(), config.ProjectConfig{RootDir: t.TempDir()})

	p, err := core.Create("p1", "french", "english")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID())

	_, err = core.Create("p1", "french", "english")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	opened, err := core.Open("p1")
	require.NoError(t, err)
	assert.Equal(t, "french", opened.Metadata().L2Language)
	assert.Equal(t, "english", opened.Metadata().L1Language)

	_, err = core.Open("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, core.Remove("p1"))
	_, err = core.Open("p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, core.Remove("p1"), domain.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	core := New(testLogger(), config.ProjectConfig{RootDir: t.TempDir()})

	_, err := core.Create("", "french", "english")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = core.Create("p1", "", "english")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	content := "le#the# chat#cat#"
	require.NoError(t, p.Save(ctx, domain.PhaseGloss, content, domain.ProvenanceAIGenerated))

	got, err := p.Load(domain.PhaseGloss)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Windows line endings canonicalise on the way in.
	require.NoError(t, p.Save(ctx, domain.PhasePlain, "line one\r\nline two\r\n", domain.ProvenanceHumanRevised))
	got, err = p.Load(domain.PhasePlain)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", got)
}

func TestSave_ArchivesPreviousVersion(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	first := "le#the# chat#cat#"
	second := "le#the# chat#kitty#"
	require.NoError(t, p.Save(ctx, domain.PhaseGloss, first, domain.ProvenanceAIGenerated))
	require.NoError(t, p.Save(ctx, domain.PhaseGloss, second, domain.ProvenanceHumanRevised))

	got, err := p.Load(domain.PhaseGloss)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	hist, err := p.PhaseHistory(domain.PhaseGloss)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, 1, hist[0].Version)
	assert.Equal(t, 2, hist[1].Version)
	assert.Equal(t, "ai_generated", hist[0].Source)
	assert.Equal(t, "human_revised", hist[1].Source)

	archived, err := os.ReadFile(p.ArchivedFile(domain.PhaseGloss, hist[0]))
	require.NoError(t, err)
	assert.Equal(t, first, string(archived))
}

func TestSave_Validation(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	err := p.Save(ctx, domain.Phase("bogus"), "x", domain.ProvenanceAIGenerated)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = p.Save(ctx, domain.PhaseRender, "x", domain.ProvenanceAIGenerated)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = p.Save(ctx, domain.PhaseGloss, "x", domain.Provenance("bogus"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	// A rejected save never touches the file or the history.
	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the#", domain.ProvenanceAIGenerated))
	require.Error(t, p.Save(ctx, domain.PhaseGloss, "y", domain.Provenance("bogus")))
	got, err := p.Load(domain.PhaseGloss)
	require.NoError(t, err)
	assert.Equal(t, "le#the#", got)
	hist, err := p.History()
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestSave_UserAttribution(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	userID := uuid.New()
	ctx := ctxutil.WithUserID(context.Background(), userID)

	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the#", domain.ProvenanceHumanRevised))
	require.NoError(t, p.Save(context.Background(), domain.PhaseGloss, "le#a#", domain.ProvenanceHumanRevised))

	hist, err := p.History()
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, userID.String(), hist[0].User)
	assert.Equal(t, "system", hist[1].User)
}

func TestSaveOpts_HistoryFields(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	opts := SaveOptions{Label: "reviewed", GoldStandard: true, Description: "checked by hand"}
	require.NoError(t, p.SaveOpts(context.Background(), domain.PhaseGloss, "le#the#", domain.ProvenanceHumanRevised, opts))

	hist, err := p.History()
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "reviewed", hist[0].Label)
	assert.True(t, hist[0].GoldStandard)
	assert.Equal(t, "checked by hand", hist[0].Description)
	assert.Len(t, hist[0].Timestamp, 14)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	_, err := p.Load(domain.PhaseGloss)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadText_MaterialisesLemmaAndGloss(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the# chat#cat#", domain.ProvenanceAIGenerated))
	require.NoError(t, p.Save(ctx, domain.PhaseLemma, "le#le/DET# chat#chat/NOUN#", domain.ProvenanceTaggerGenerated))

	text, err := p.LoadText(ctx, domain.PhaseLemmaAndGloss)
	require.NoError(t, err)
	assert.Equal(t, "french", text.L2Language)

	words := text.Words()
	require.Len(t, words, 2)
	assert.Equal(t, "cat", words[1].Annotations.Gloss)
	assert.Equal(t, "chat", words[1].Annotations.Lemma)
	assert.Equal(t, "NOUN", words[1].Annotations.POS)

	assert.True(t, p.Exists(domain.PhaseLemmaAndGloss))
	hist, err := p.PhaseHistory(domain.PhaseLemmaAndGloss)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "merged", hist[0].Source)

	// The cached file is authoritative: a later gloss change is ignored.
	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the# chat#kitty#", domain.ProvenanceHumanRevised))
	text, err = p.LoadText(ctx, domain.PhaseLemmaAndGloss)
	require.NoError(t, err)
	assert.Equal(t, "cat", text.Words()[1].Annotations.Gloss)
}

func TestLoadText_MaterialiseNeedsBothInputs(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()
	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the#", domain.ProvenanceAIGenerated))

	_, err := p.LoadText(ctx, domain.PhaseLemmaAndGloss)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDiffEditions(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the# chat#cat#", domain.ProvenanceAIGenerated))
	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the# chat#kitty#", domain.ProvenanceHumanRevised))

	hist, err := p.PhaseHistory(domain.PhaseGloss)
	require.NoError(t, err)
	archived := p.ArchivedFile(domain.PhaseGloss, hist[0])

	report, err := p.DiffEditions(domain.PhaseGloss, archived, "", diff.Want{ErrorRate: true, Details: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.WordCount)
	assert.Equal(t, 1, report.Mismatches)
	assert.InDelta(t, 0.5, report.ErrorRate, 1e-9)
	assert.Contains(t, report.Details, "kitty")

	_, err = p.DiffEditions(domain.PhaseGloss, "archive/nope.txt", "", diff.Want{ErrorRate: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWordCount(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, domain.PhaseSegmented, "Le chat dort.||Il dort.", domain.ProvenanceAIGenerated))
	n, err := p.WordCount(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Adjacent letter chunks count as one word.
	require.NoError(t, p.Save(ctx, domain.PhasePhonetic, "Ch#ʃ#|a#a#|t#t# dort#dɔʁ#", domain.ProvenanceGenerated))
	n, err = p.WordCount(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p2 := newProject(t)
	_, err = p2.WordCount(ctx, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the#", domain.ProvenanceAIGenerated))
	require.True(t, p.Exists(domain.PhaseGloss))
	require.NoError(t, p.Delete(domain.PhaseGloss))
	assert.False(t, p.Exists(domain.PhaseGloss))

	// Deleting an absent phase is a no-op.
	assert.NoError(t, p.Delete(domain.PhaseGloss))
	assert.ErrorIs(t, p.Delete(domain.Phase("bogus")), domain.ErrValidation)

	renderDir := p.Dir(domain.PhaseRender)
	require.NoError(t, os.MkdirAll(renderDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(renderDir, "page_1.html"), []byte("<html>"), 0o644))
	require.True(t, p.Exists(domain.PhaseRender))
	require.NoError(t, p.Delete(domain.PhaseRender))
	assert.False(t, p.Exists(domain.PhaseRender))
}

func TestDeleteMany(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the#", domain.ProvenanceAIGenerated))
	require.NoError(t, p.Save(ctx, domain.PhaseLemma, "le#le/DET#", domain.ProvenanceTaggerGenerated))

	err := p.DeleteMany([]domain.Phase{domain.PhaseGloss, domain.Phase("bogus"), domain.PhaseLemma})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, p.Exists(domain.PhaseGloss))
	assert.False(t, p.Exists(domain.PhaseLemma))
}

func TestStatus_Staleness(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, domain.PhasePlain, "Le chat dort.", domain.ProvenanceHumanRevised))
	require.NoError(t, p.Save(ctx, domain.PhaseSegmented, "Le chat dort.", domain.ProvenanceAIGenerated))

	assert.False(t, p.Stale(domain.PhaseSegmented))
	assert.False(t, p.Stale(domain.PhasePlain))
	assert.False(t, p.Stale(domain.PhaseGloss), "absent phase is never stale")

	// An upstream edit makes the downstream phase stale.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(p.PhaseFile(domain.PhasePlain), future, future))
	assert.True(t, p.Stale(domain.PhaseSegmented))

	statuses := p.Status()
	byPhase := map[domain.Phase]PhaseStatus{}
	for _, st := range statuses {
		byPhase[st.Phase] = st
	}
	assert.True(t, byPhase[domain.PhaseSegmented].Exists)
	assert.True(t, byPhase[domain.PhaseSegmented].Stale)
	assert.True(t, byPhase[domain.PhasePlain].Exists)
	assert.False(t, byPhase[domain.PhasePlain].Stale)
	assert.False(t, byPhase[domain.PhaseRender].Exists)
}

func TestStatus_RenderTracksEmittedHTML(t *testing.T) {
	t.Parallel()

	p := newProject(t)
	ctx := context.Background()

	renderDir := p.Dir(domain.PhaseRender)
	require.NoError(t, os.MkdirAll(renderDir, 0o755))
	page := filepath.Join(renderDir, "page_1.html")
	require.NoError(t, os.WriteFile(page, []byte("<html>"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(page, past, past))

	// A stray non-HTML file must not count as render output.
	notes := filepath.Join(renderDir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("scratch"), 0o644))

	require.NoError(t, p.Save(ctx, domain.PhaseGloss, "le#the#", domain.ProvenanceAIGenerated))
	assert.True(t, p.Stale(domain.PhaseRender))
}
