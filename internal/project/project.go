// Package project manages the on-disk state of an annotation project: one
// directory per project holding a canonical file per phase, an archive of
// overwritten versions, and an append-only history.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/clara-project/clara-core/internal/config"
	"github.com/clara-project/clara-core/internal/diff"
	"github.com/clara-project/clara-core/internal/domain"
	"github.com/clara-project/clara-core/internal/markup"
	"github.com/clara-project/clara-core/internal/merge"
	"github.com/clara-project/clara-core/pkg/ctxutil"
)

const (
	metadataFile    = "metadata.json"
	historyFile     = "history.json"
	archiveDirName  = "archive"
	timestampLayout = "20060102150405"
)

// Metadata identifies a project and its language pair.
type Metadata struct {
	ID         string    `json:"id"`
	L2Language string    `json:"l2_language"`
	L1Language string    `json:"l1_language"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryEntry records one saved version of a phase file.
type HistoryEntry struct {
	File         string `json:"file"`
	Version      int    `json:"version"`
	Source       string `json:"source"`
	User         string `json:"user"`
	Timestamp    string `json:"timestamp"`
	Label        string `json:"label"`
	GoldStandard bool   `json:"gold_standard"`
	Description  string `json:"description"`
}

// SaveOptions carries the optional history fields of a save.
type SaveOptions struct {
	Label        string
	GoldStandard bool
	Description  string
}

// Core creates and opens projects under a configured root directory.
type Core struct {
	log  *slog.Logger
	root string
}

func New(log *slog.Logger, cfg config.ProjectConfig) *Core {
	return &Core{
		log:  log.With("service", "project"),
		root: cfg.RootDir,
	}
}

// Create initialises a new project directory.
func (c *Core) Create(id, l2Language, l1Language string) (*Project, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "project id must not be empty")
	}
	if l2Language == "" {
		return nil, domain.NewValidationError("l2_language", "l2 language must not be empty")
	}
	dir := filepath.Join(c.root, id)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err == nil {
		return nil, fmt.Errorf("project %q: %w", id, domain.ErrAlreadyExists)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	meta := Metadata{
		ID:         id,
		L2Language: l2Language,
		L1Language: l1Language,
		CreatedAt:  time.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
		return nil, fmt.Errorf("write project metadata: %w", err)
	}
	c.log.Info("created project", "id", id, "l2", l2Language, "l1", l1Language)
	return &Project{log: c.log, dir: dir, meta: meta}, nil
}

// Open loads an existing project.
func (c *Core) Open(id string) (*Project, error) {
	dir := filepath.Join(c.root, id)
	var meta Metadata
	if err := readJSON(filepath.Join(dir, metadataFile), &meta); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("project %q: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read project metadata: %w", err)
	}
	return &Project{log: c.log, dir: dir, meta: meta}, nil
}

// Remove deletes a project directory and everything in it.
func (c *Core) Remove(id string) error {
	dir := filepath.Join(c.root, id)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("project %q: %w", id, domain.ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove project dir: %w", err)
	}
	c.log.Info("removed project", "id", id)
	return nil
}

// Project is one open project directory.
type Project struct {
	log  *slog.Logger
	dir  string
	meta Metadata
}

func (p *Project) ID() string         { return p.meta.ID }
func (p *Project) Metadata() Metadata { return p.meta }

// Dir returns the artifact directory of a phase, e.g. where rendered HTML
// or imported audio for this project lives.
func (p *Project) Dir(phase domain.Phase) string {
	return filepath.Join(p.dir, phase.String())
}

// PhaseFile returns the canonical file path of a file-backed phase.
func (p *Project) PhaseFile(phase domain.Phase) string {
	return filepath.Join(p.dir, p.relFile(phase))
}

func (p *Project) relFile(phase domain.Phase) string {
	return filepath.Join(phase.String(), fmt.Sprintf("%s_%s.txt", p.meta.ID, phase))
}

// Exists reports whether the phase has any output: a canonical file for
// file-backed phases, a non-empty artifact directory otherwise.
func (p *Project) Exists(phase domain.Phase) bool {
	if isArtifactPhase(phase) {
		entries, err := os.ReadDir(p.Dir(phase))
		return err == nil && len(entries) > 0
	}
	_, err := os.Stat(p.PhaseFile(phase))
	return err == nil
}

// Save writes a new version of a phase file. The previous version, if any,
// is moved into the archive first; a write failure restores it, so the
// canonical file is never left partial.
func (p *Project) Save(ctx context.Context, phase domain.Phase, content string, prov domain.Provenance) error {
	return p.SaveOpts(ctx, phase, content, prov, SaveOptions{})
}

func (p *Project) SaveOpts(ctx context.Context, phase domain.Phase, content string, prov domain.Provenance, opts SaveOptions) error {
	if !phase.IsValid() {
		return domain.NewValidationError("phase", "unknown phase "+phase.String())
	}
	if isArtifactPhase(phase) {
		return domain.NewValidationError("phase", phase.String()+" is artifact-backed and has no phase file")
	}
	if !prov.IsValid() {
		return domain.NewValidationError("provenance", "unknown provenance "+prov.String())
	}

	canon := p.PhaseFile(phase)
	if err := os.MkdirAll(filepath.Dir(canon), 0o755); err != nil {
		return fmt.Errorf("create phase dir: %w", err)
	}

	hist, err := p.History()
	if err != nil {
		return err
	}
	rel := p.relFile(phase)

	archived := ""
	if _, err := os.Stat(canon); err == nil {
		archived = p.archivePath(phase, lastTimestampFor(hist, rel, canon))
		if err := os.MkdirAll(filepath.Dir(archived), 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
		if err := os.Rename(canon, archived); err != nil {
			return fmt.Errorf("archive phase file: %w", err)
		}
	}

	if err := os.WriteFile(canon, []byte(markup.CanonicaliseNewlines(content)), 0o644); err != nil {
		if archived != "" {
			if restoreErr := os.Rename(archived, canon); restoreErr != nil {
				p.log.Error("restore archived phase file", "file", archived, "error", restoreErr)
			}
		}
		return fmt.Errorf("write phase file: %w", err)
	}

	entry := HistoryEntry{
		File:         rel,
		Version:      versionCountFor(hist, rel) + 1,
		Source:       prov.String(),
		User:         userFrom(ctx),
		Timestamp:    time.Now().UTC().Format(timestampLayout),
		Label:        opts.Label,
		GoldStandard: opts.GoldStandard,
		Description:  opts.Description,
	}
	if err := writeJSON(filepath.Join(p.dir, historyFile), append(hist, entry)); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	p.log.Info("saved phase", "project", p.meta.ID, "phase", phase, "version", entry.Version, "source", prov)
	return nil
}

// Load returns the canonical content of a file-backed phase with newlines
// canonicalised.
func (p *Project) Load(phase domain.Phase) (string, error) {
	if isArtifactPhase(phase) {
		return "", domain.NewValidationError("phase", phase.String()+" is artifact-backed and has no phase file")
	}
	data, err := os.ReadFile(p.PhaseFile(phase))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("phase %s: %w", phase, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read phase file: %w", err)
	}
	return markup.CanonicaliseNewlines(string(data)), nil
}

// LoadText internalises a phase file under the phase's schema. Requesting
// lemma_and_gloss when no cached file exists materialises it by merging the
// gloss and lemma phases; the cached file is authoritative afterwards.
func (p *Project) LoadText(ctx context.Context, phase domain.Phase) (*domain.Text, error) {
	schema, ok := phaseSchema(phase)
	if !ok {
		return nil, domain.NewValidationError("phase", phase.String()+" has no text schema")
	}
	if phase == domain.PhaseLemmaAndGloss && !p.Exists(phase) {
		if err := p.materialiseLemmaAndGloss(ctx); err != nil {
			return nil, err
		}
	}
	content, err := p.Load(phase)
	if err != nil {
		return nil, err
	}
	text, err := markup.Parse(content, schema)
	if err != nil {
		return nil, err
	}
	text.L2Language = p.meta.L2Language
	text.L1Language = p.meta.L1Language
	return text, nil
}

func (p *Project) materialiseLemmaAndGloss(ctx context.Context) error {
	gloss, err := p.LoadText(ctx, domain.PhaseGloss)
	if err != nil {
		return fmt.Errorf("materialise lemma_and_gloss: %w", err)
	}
	lemma, err := p.LoadText(ctx, domain.PhaseLemma)
	if err != nil {
		return fmt.Errorf("materialise lemma_and_gloss: %w", err)
	}
	merged, err := merge.GlossAndLemma(gloss, lemma)
	if err != nil {
		return err
	}
	content, err := markup.Serialize(merged, domain.SchemaLemmaAndGloss)
	if err != nil {
		return err
	}
	return p.Save(ctx, domain.PhaseLemmaAndGloss, content, domain.ProvenanceMerged)
}

// Delete removes a phase's output: the canonical file for file-backed
// phases, the whole artifact directory otherwise. The archive keeps its
// copies.
func (p *Project) Delete(phase domain.Phase) error {
	if !phase.IsValid() {
		return domain.NewValidationError("phase", "unknown phase "+phase.String())
	}
	if isArtifactPhase(phase) {
		if err := os.RemoveAll(p.Dir(phase)); err != nil {
			return fmt.Errorf("delete phase dir: %w", err)
		}
		return nil
	}
	if err := os.Remove(p.PhaseFile(phase)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete phase file: %w", err)
	}
	return nil
}

// DeleteMany deletes several phases, continuing past failures.
func (p *Project) DeleteMany(phases []domain.Phase) error {
	var errs []error
	for _, phase := range phases {
		if err := p.Delete(phase); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// History returns the full save history, oldest first.
func (p *Project) History() ([]HistoryEntry, error) {
	var hist []HistoryEntry
	if err := readJSON(filepath.Join(p.dir, historyFile), &hist); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}
	return hist, nil
}

// PhaseHistory returns the history entries of one phase, oldest first.
func (p *Project) PhaseHistory(phase domain.Phase) ([]HistoryEntry, error) {
	hist, err := p.History()
	if err != nil {
		return nil, err
	}
	rel := p.relFile(phase)
	var out []HistoryEntry
	for _, e := range hist {
		if e.File == rel {
			out = append(out, e)
		}
	}
	return out, nil
}

// ArchivedFile returns the archive path holding the version a history entry
// describes, once a later save has displaced it.
func (p *Project) ArchivedFile(phase domain.Phase, entry HistoryEntry) string {
	return p.archivePath(phase, entry.Timestamp)
}

// DiffEditions compares two editions of a phase. An empty edition path
// selects the canonical file; anything else is a path relative to the
// project directory, typically into the archive.
func (p *Project) DiffEditions(phase domain.Phase, editionA, editionB string, want diff.Want) (diff.Report, error) {
	schema, ok := phaseSchema(phase)
	if !ok {
		return diff.Report{}, domain.NewValidationError("phase", phase.String()+" has no text schema")
	}
	reference, err := p.loadEdition(phase, editionA, schema)
	if err != nil {
		return diff.Report{}, err
	}
	candidate, err := p.loadEdition(phase, editionB, schema)
	if err != nil {
		return diff.Report{}, err
	}
	return diff.Compare(reference, candidate, schema, want)
}

func (p *Project) loadEdition(phase domain.Phase, edition string, schema domain.Schema) (*domain.Text, error) {
	path := p.PhaseFile(phase)
	switch {
	case edition == "":
	case filepath.IsAbs(edition):
		path = edition
	default:
		path = filepath.Join(p.dir, edition)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("edition %q: %w", edition, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read edition: %w", err)
	}
	return markup.Parse(markup.CanonicaliseNewlines(string(data)), schema)
}

// WordCount counts the words of the segmented text. In phonetic mode it
// counts the phonetic text's words instead, where a run of adjacent letter
// chunks is one word.
func (p *Project) WordCount(ctx context.Context, phonetic bool) (int, error) {
	phase := domain.PhaseSegmented
	if phonetic {
		phase = domain.PhasePhonetic
	}
	text, err := p.LoadText(ctx, phase)
	if err != nil {
		return 0, err
	}
	if !phonetic {
		return text.WordCount(), nil
	}
	count := 0
	for _, seg := range text.Segments() {
		inRun := false
		for i := range seg.Elements {
			if seg.Elements[i].IsWord() {
				if !inRun {
					count++
				}
				inRun = true
			} else {
				inRun = false
			}
		}
	}
	return count, nil
}

func (p *Project) archivePath(phase domain.Phase, timestamp string) string {
	name := fmt.Sprintf("%s_%s_%s.txt", p.meta.ID, phase, timestamp)
	return filepath.Join(p.dir, archiveDirName, name)
}

// lastTimestampFor names the archive slot of the version being displaced:
// the timestamp of its own history entry, or the file mtime when the file
// predates the history.
func lastTimestampFor(hist []HistoryEntry, rel, canon string) string {
	for i := len(hist) - 1; i >= 0; i-- {
		if hist[i].File == rel {
			return hist[i].Timestamp
		}
	}
	if info, err := os.Stat(canon); err == nil {
		return info.ModTime().UTC().Format(timestampLayout)
	}
	return time.Now().UTC().Format(timestampLayout)
}

func versionCountFor(hist []HistoryEntry, rel string) int {
	n := 0
	for _, e := range hist {
		if e.File == rel {
			n++
		}
	}
	return n
}

func userFrom(ctx context.Context) string {
	if id, ok := ctxutil.UserIDFromCtx(ctx); ok {
		return id.String()
	}
	return "system"
}

// phaseSchema maps a file-backed phase to the schema its file is written
// in. Title, summary and cefr_level hold free text under the plain schema.
func phaseSchema(phase domain.Phase) (domain.Schema, bool) {
	switch phase {
	case domain.PhasePlain, domain.PhaseTitle, domain.PhaseSummary, domain.PhaseCEFRLevel:
		return domain.SchemaPlain, true
	case domain.PhaseSegmented:
		return domain.SchemaSegmented, true
	case domain.PhaseGloss:
		return domain.SchemaGloss, true
	case domain.PhaseLemma:
		return domain.SchemaLemma, true
	case domain.PhaseLemmaAndGloss:
		return domain.SchemaLemmaAndGloss, true
	case domain.PhasePinyin:
		return domain.SchemaPinyin, true
	case domain.PhasePhonetic:
		return domain.SchemaPhonetic, true
	}
	return "", false
}

// isArtifactPhase reports whether a phase's output is a set of files in a
// directory rather than one canonical phase file.
func isArtifactPhase(phase domain.Phase) bool {
	switch phase {
	case domain.PhaseImages, domain.PhaseAudio, domain.PhaseRender, domain.PhaseRenderPhonetic:
		return true
	}
	return false
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
