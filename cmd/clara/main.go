// Command clara drives the annotation pipeline for one project at a time.
// Each subcommand runs one phase operation to completion and exits.
//
//	clara import -project p1 -l2 french -l1 english -file story.txt
//	clara segment -project p1
//	clara gloss -project p1 [-improve]
//	clara lemma -project p1 [-improve]
//	clara pinyin -project p1 [-improve]
//	clara tag -project p1
//	clara merge -project p1
//	clara phonetic -project p1 [-orthography f] [-lexicon f] [-aligned f]
//	clara audio -project p1 [-phonetic] [-words tts|human] [-segments tts|human]
//	clara audio-import -project p1 (-zip f | -audio f -metadata f | -audio f -labels f -text f)
//	clara concordance -project p1
//	clara render -project p1 [-phonetic]
//	clara history -project p1 [-phase gloss]
//	clara diff -project p1 -phase gloss -a archive/... [-b ...] [-details]
//	clara status -project p1
//
// Exit codes: 0 = success, 1 = error, 2 = usage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/clara-project/clara-core/internal/adapter/llm"
	"github.com/clara-project/clara-core/internal/adapter/postgres"
	"github.com/clara-project/clara-core/internal/adapter/postgres/audiofile"
	"github.com/clara-project/clara-core/internal/adapter/tts"
	"github.com/clara-project/clara-core/internal/annotate"
	"github.com/clara-project/clara-core/internal/app"
	"github.com/clara-project/clara-core/internal/audio"
	"github.com/clara-project/clara-core/internal/concordance"
	"github.com/clara-project/clara-core/internal/config"
	"github.com/clara-project/clara-core/internal/diff"
	"github.com/clara-project/clara-core/internal/domain"
	"github.com/clara-project/clara-core/internal/markup"
	"github.com/clara-project/clara-core/internal/phonetic"
	"github.com/clara-project/clara-core/internal/progress"
	"github.com/clara-project/clara-core/internal/project"
	"github.com/clara-project/clara-core/internal/render"
	"github.com/clara-project/clara-core/internal/tagger"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log)
	logger.Info("starting clara", slog.String("version", app.BuildVersion()), slog.String("command", os.Args[1]))

	e := &env{cfg: cfg, log: logger}

	commands := map[string]func(*env, []string) error{
		"import":       cmdImport,
		"segment":      cmdSegment,
		"gloss":        cmdAnnotate(annotate.KindGloss, domain.PhaseGloss),
		"lemma":        cmdAnnotate(annotate.KindLemma, domain.PhaseLemma),
		"pinyin":       cmdAnnotate(annotate.KindPinyin, domain.PhasePinyin),
		"tag":          cmdTag,
		"merge":        cmdMerge,
		"phonetic":     cmdPhonetic,
		"audio":        cmdAudio,
		"audio-import": cmdAudioImport,
		"concordance":  cmdConcordance,
		"render":       cmdRender,
		"history":      cmdHistory,
		"diff":         cmdDiff,
		"status":       cmdStatus,
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}
	if err := run(e, os.Args[2:]); err != nil {
		logger.Error("command failed", slog.String("command", os.Args[1]), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: clara <import|segment|gloss|lemma|pinyin|tag|merge|phonetic|audio|audio-import|concordance|render|history|diff|status> [flags]")
}

// env bundles what every subcommand needs.
type env struct {
	cfg *config.Config
	log *slog.Logger
}

func (e *env) core() *project.Core {
	return project.New(e.log, e.cfg.Project)
}

func (e *env) open(id string) (*project.Project, error) {
	if id == "" {
		return nil, errors.New("-project is required")
	}
	return e.core().Open(id)
}

// audioStack connects the database-backed audio store. The caller must
// invoke the returned close function.
func (e *env) audioStack(ctx context.Context) (*audio.Store, *postgres.TxManager, func(), error) {
	if e.cfg.Database.DSN == "" {
		return nil, nil, nil, errors.New("DATABASE_DSN is not configured")
	}
	if err := postgres.Migrate(ctx, e.cfg.Database.DSN); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := postgres.NewPool(ctx, e.cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	store := audio.NewStore(e.cfg.Audio.BaseDir, audiofile.New(pool))
	return store, postgres.NewTxManager(pool), pool.Close, nil
}

func (e *env) ttsRegistry(l2 string, phonetic bool) *tts.Registry {
	languages := map[string]tts.LanguageInfo{
		l2: {LanguageID: l2, Voices: []string{"default"}},
	}
	return tts.NewRegistry(
		tts.NewHTTP(e.cfg.TTS, languages, phonetic),
		tts.NewHuman(l2),
	)
}

func (e *env) engine() *annotate.Engine {
	templates := annotate.NewRegistry()
	if dir := e.cfg.Annotation.TemplateDir; dir != "" {
		if err := templates.LoadDir(dir); err != nil {
			e.log.Warn("load annotation templates", "dir", dir, "error", err)
		}
	}
	return annotate.NewEngine(e.log, llm.NewAnthropic(e.cfg.LLM), e.cfg.LLM, e.cfg.Annotation, templates)
}

func cmdImport(e *env, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	l2 := fs.String("l2", "", "text language")
	l1 := fs.String("l1", "", "gloss language")
	file := fs.String("file", "", "plain text file to import")
	fs.Parse(args)

	if *file == "" {
		return errors.New("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	p, err := e.core().Create(*id, *l2, *l1)
	if err != nil {
		return err
	}
	return p.Save(context.Background(), domain.PhasePlain, string(data), domain.ProvenanceHumanRevised)
}

func cmdSegment(e *env, args []string) error {
	fs := flag.NewFlagSet("segment", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	improve := fs.Bool("improve", false, "improve the existing segmentation")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	ctx := context.Background()

	phase, mode := domain.PhasePlain, annotate.ModeAnnotate
	if *improve {
		phase, mode = domain.PhaseSegmented, annotate.ModeImprove
	}
	text, err := p.LoadText(ctx, phase)
	if err != nil {
		return err
	}
	out, calls, err := e.engine().Segment(ctx, text, mode, progress.NewLogReporter(e.log))
	if err != nil {
		return err
	}
	logCalls(e.log, calls)
	content, err := markup.Serialize(out, domain.SchemaSegmented)
	if err != nil {
		return err
	}
	prov := domain.ProvenanceAIGenerated
	if *improve {
		prov = domain.ProvenanceAIRevised
	}
	return p.Save(ctx, domain.PhaseSegmented, content, prov)
}

// cmdAnnotate builds the handler for one LLM annotation kind.
func cmdAnnotate(kind annotate.Kind, phase domain.Phase) func(*env, []string) error {
	return func(e *env, args []string) error {
		fs := flag.NewFlagSet(kind.TargetSchema().String(), flag.ExitOnError)
		id := fs.String("project", "", "project id")
		improve := fs.Bool("improve", false, "improve the existing annotations")
		fs.Parse(args)

		p, err := e.open(*id)
		if err != nil {
			return err
		}
		ctx := context.Background()

		source, mode := domain.PhaseSegmented, annotate.ModeAnnotate
		if *improve {
			source, mode = phase, annotate.ModeImprove
		}
		text, err := p.LoadText(ctx, source)
		if err != nil {
			return err
		}
		out, calls, err := e.engine().Annotate(ctx, text, kind, mode, progress.NewLogReporter(e.log))
		if err != nil {
			return err
		}
		logCalls(e.log, calls)
		content, err := markup.Serialize(out, kind.TargetSchema())
		if err != nil {
			return err
		}
		prov := domain.ProvenanceAIGenerated
		if *improve {
			prov = domain.ProvenanceAIRevised
		}
		return p.Save(ctx, phase, content, prov)
	}
}

func cmdTag(e *env, args []string) error {
	fs := flag.NewFlagSet("tag", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	ctx := context.Background()

	text, err := p.LoadText(ctx, domain.PhaseSegmented)
	if err != nil {
		return err
	}
	japanese, err := tagger.NewJapanese()
	if err != nil {
		return err
	}
	out, err := tagger.NewAdapter(e.log, japanese).Tag(ctx, text)
	if err != nil {
		return err
	}
	content, err := markup.Serialize(out, domain.SchemaLemma)
	if err != nil {
		return err
	}
	return p.Save(ctx, domain.PhaseLemma, content, domain.ProvenanceTaggerGenerated)
}

func cmdMerge(e *env, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	if _, err := p.LoadText(context.Background(), domain.PhaseLemmaAndGloss); err != nil {
		return err
	}
	fmt.Println(p.PhaseFile(domain.PhaseLemmaAndGloss))
	return nil
}

func cmdPhonetic(e *env, args []string) error {
	fs := flag.NewFlagSet("phonetic", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	orthFile := fs.String("orthography", "", "orthography description file")
	lexFile := fs.String("lexicon", "", "plain pronunciation lexicon (JSON)")
	alignedFile := fs.String("aligned", "", "aligned pronunciation lexicon (JSON)")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	ctx := context.Background()

	var orth *phonetic.Orthography
	if *orthFile != "" {
		if orth, err = phonetic.LoadOrthography(*orthFile); err != nil {
			return err
		}
	}
	var aligner *phonetic.Aligner
	if *lexFile != "" {
		plain, err := phonetic.LoadPlainLexicon(*lexFile)
		if err != nil {
			return err
		}
		index := phonetic.Correspondences{}
		if *alignedFile != "" {
			if index, err = phonetic.LoadAlignedLexicon(*alignedFile); err != nil {
				return err
			}
		}
		aligner = phonetic.NewAligner(plain, index)
	}
	transformer, err := phonetic.NewTransformer(p.Metadata().L2Language, orth, aligner)
	if err != nil {
		return err
	}

	text, err := p.LoadText(ctx, domain.PhaseSegmented)
	if err != nil {
		return err
	}
	out, err := transformer.Transform(text)
	if err != nil {
		return err
	}
	content, err := markup.Serialize(out, domain.SchemaPhonetic)
	if err != nil {
		return err
	}
	return p.Save(ctx, domain.PhasePhonetic, content, domain.ProvenanceGenerated)
}

func cmdAudio(e *env, args []string) error {
	fs := flag.NewFlagSet("audio", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	phoneticMode := fs.Bool("phonetic", false, "voice the phonetic text")
	words := fs.String("words", "tts", "word audio strategy: tts or human")
	segments := fs.String("segments", "tts", "segment audio strategy: tts or human")
	humanVoice := fs.String("human-voice", "", "voice id of imported human recordings")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	store, _, closeDB, err := e.audioStack(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	annotator, err := audio.NewAnnotator(e.log, store,
		e.ttsRegistry(p.Metadata().L2Language, *phoneticMode),
		p.Metadata().L2Language,
		domain.AudioStrategy(*words), domain.AudioStrategy(*segments), *humanVoice)
	if err != nil {
		return err
	}

	source := domain.PhaseSegmented
	if *phoneticMode {
		source = domain.PhasePhonetic
	}
	text, err := p.LoadText(ctx, source)
	if err != nil {
		return err
	}
	if _, err := annotator.Annotate(ctx, text, *phoneticMode); err != nil {
		return err
	}
	return nil
}

func cmdAudioImport(e *env, args []string) error {
	fs := flag.NewFlagSet("audio-import", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	voice := fs.String("voice", "narrator", "voice id to file the recordings under")
	zipFile := fs.String("zip", "", "archive of recordings with metadata.json")
	audioFile := fs.String("audio", "", "single recording to cut")
	metadata := fs.String("metadata", "", "JSON cut metadata for -audio")
	labels := fs.String("labels", "", "Audacity label file for -audio")
	textFile := fs.String("text", "", "indexed segmented text for -labels")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	store, txm, closeDB, err := e.audioStack(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	importer := audio.NewImporter(e.log, store, p.Metadata().L2Language, *voice, e.cfg.Audio.FFmpegPath)

	// One transaction per import batch: either all index rows land or none.
	var n int
	err = txm.RunInTx(ctx, func(ctx context.Context) error {
		var runErr error
		switch {
		case *zipFile != "":
			n, runErr = importer.ImportArchive(ctx, *zipFile)
		case *audioFile != "" && *metadata != "":
			n, runErr = importer.ImportCutJSON(ctx, *audioFile, *metadata)
		case *audioFile != "" && *labels != "" && *textFile != "":
			indexed, readErr := os.ReadFile(*textFile)
			if readErr != nil {
				return fmt.Errorf("read indexed text: %w", readErr)
			}
			n, runErr = importer.ImportCutLabels(ctx, *audioFile, *labels, string(indexed))
		default:
			return errors.New("need -zip, or -audio with -metadata, or -audio with -labels and -text")
		}
		return runErr
	})
	if err != nil {
		return err
	}
	e.log.Info("imported recordings", slog.Int("count", n))
	return nil
}

func cmdConcordance(e *env, args []string) error {
	fs := flag.NewFlagSet("concordance", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	text, err := p.LoadText(context.Background(), domain.PhaseLemmaAndGloss)
	if err != nil {
		return err
	}
	out, err := concordance.Annotate(text)
	if err != nil {
		return err
	}

	lemmas := make([]string, 0, len(out.Annotations.Concordance))
	for lemma := range out.Annotations.Concordance {
		lemmas = append(lemmas, lemma)
	}
	sort.Strings(lemmas)
	for _, lemma := range lemmas {
		entry := out.Annotations.Concordance[lemma]
		fmt.Printf("%-24s %4d  segments %v\n", lemma, entry.Frequency, entry.Segments)
	}
	return nil
}

func cmdRender(e *env, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	phoneticMode := fs.Bool("phonetic", false, "render the phonetic text")
	withAudio := fs.Bool("audio", true, "attach audio from the repository")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	source, target := domain.PhaseLemmaAndGloss, domain.PhaseRender
	if *phoneticMode {
		source, target = domain.PhasePhonetic, domain.PhaseRenderPhonetic
	}
	text, err := p.LoadText(ctx, source)
	if err != nil {
		return err
	}

	if *withAudio {
		store, _, closeDB, err := e.audioStack(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		annotator, err := audio.NewAnnotator(e.log, store,
			e.ttsRegistry(p.Metadata().L2Language, *phoneticMode),
			p.Metadata().L2Language, domain.AudioTTS, domain.AudioTTS, "")
		if err != nil {
			return err
		}
		if text, err = annotator.Annotate(ctx, text, *phoneticMode); err != nil {
			return err
		}
	}

	text, err = concordance.Annotate(text)
	if err != nil {
		return err
	}

	title := p.ID()
	if t, err := p.Load(domain.PhaseTitle); err == nil {
		title = t
	}
	renderer, err := render.New(e.log, e.cfg.Render)
	if err != nil {
		return err
	}
	files, err := renderer.Render(text, title, p.Dir(target))
	if err != nil {
		return err
	}
	e.log.Info("rendered project", slog.String("project", p.ID()), slog.Int("files", len(files)))
	return nil
}

func cmdHistory(e *env, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	phase := fs.String("phase", "", "limit to one phase")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	var entries []project.HistoryEntry
	if *phase != "" {
		entries, err = p.PhaseHistory(domain.Phase(*phase))
	} else {
		entries, err = p.History()
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		gold := ""
		if entry.GoldStandard {
			gold = "  [gold]"
		}
		fmt.Printf("%s  v%-3d %-16s %-12s %s%s\n",
			entry.Timestamp, entry.Version, entry.Source, entry.User, entry.File, gold)
	}
	return nil
}

func cmdDiff(e *env, args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	phase := fs.String("phase", "", "phase to compare")
	editionA := fs.String("a", "", "reference edition (relative path, empty = canonical)")
	editionB := fs.String("b", "", "candidate edition (relative path, empty = canonical)")
	details := fs.Bool("details", false, "print a unified diff")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	report, err := p.DiffEditions(domain.Phase(*phase), *editionA, *editionB,
		diff.Want{ErrorRate: true, Details: *details})
	if err != nil {
		return err
	}
	fmt.Printf("words %d  mismatches %d  error rate %.3f\n",
		report.WordCount, report.Mismatches, report.ErrorRate)
	if *details {
		fmt.Print(report.Details)
	}
	return nil
}

func cmdStatus(e *env, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.String("project", "", "project id")
	fs.Parse(args)

	p, err := e.open(*id)
	if err != nil {
		return err
	}
	for _, st := range p.Status() {
		state := "missing"
		switch {
		case st.Exists && st.Stale:
			state = "stale"
		case st.Exists:
			state = "fresh"
		}
		ts := ""
		if st.Exists {
			ts = st.ModTime.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%-20s %-8s %s\n", st.Phase, state, ts)
	}
	return nil
}

func logCalls(logger *slog.Logger, calls []annotate.CallRecord) {
	var cost float64
	var retries int
	for _, call := range calls {
		cost += call.Cost
		retries += call.Retries
	}
	logger.Info("llm calls finished",
		slog.Int("calls", len(calls)),
		slog.Int("retries", retries),
		slog.Float64("estimated_cost_usd", cost),
	)
}
