package audio

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/clara-project/clara-core/internal/domain"
)

// Importer brings recorded human audio into the repository, either from a
// packaged archive of per-segment recordings or by cutting one long
// recording at annotated offsets.
type Importer struct {
	log     *slog.Logger
	repo    Repository
	l2      string
	voiceID string
	ffmpeg  string

	// run executes an external command; tests substitute it.
	run func(ctx context.Context, name string, args ...string) error
}

func NewImporter(log *slog.Logger, repo Repository, l2, voiceID, ffmpegPath string) *Importer {
	return &Importer{
		log:     log.With("service", "audio_import"),
		repo:    repo,
		l2:      l2,
		voiceID: voiceID,
		ffmpeg:  ffmpegPath,
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// archiveEntry is one line of the archive's metadata file.
type archiveEntry struct {
	Text string `json:"text"`
	File string `json:"file"`
}

// ImportArchive ingests a zip of recordings with a metadata.json listing
// {text, file} pairs. WAV recordings are transcoded to mp3 before the
// repository takes them. Returns the number of ingested recordings.
func (im *Importer) ImportArchive(ctx context.Context, zipPath string) (int, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, fmt.Errorf("open audio archive: %w", err)
	}
	defer r.Close()

	entries, err := readArchiveMetadata(&r.Reader)
	if err != nil {
		return 0, err
	}

	tmpDir, err := os.MkdirTemp("", "clara-audio-import-*")
	if err != nil {
		return 0, fmt.Errorf("create import temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	byName := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		byName[f.Name] = f
	}

	count := 0
	for _, entry := range entries {
		f, ok := byName[entry.File]
		if !ok {
			return count, fmt.Errorf("archive metadata names missing file %q: %w", entry.File, domain.ErrValidation)
		}
		extracted := filepath.Join(tmpDir, fmt.Sprintf("in_%d%s", count, filepath.Ext(entry.File)))
		if err := extractZipFile(f, extracted); err != nil {
			return count, err
		}

		mp3Path := extracted
		if !strings.EqualFold(filepath.Ext(extracted), ".mp3") {
			mp3Path = filepath.Join(tmpDir, fmt.Sprintf("out_%d.mp3", count))
			if err := im.run(ctx, im.ffmpeg, "-y", "-i", extracted, mp3Path); err != nil {
				return count, fmt.Errorf("transcode %q: %w", entry.File, err)
			}
		}

		key := domain.SegmentAudioKey(entry.Text)
		if _, err := im.repo.Put(ctx, domain.HumanVoiceEngine, im.l2, im.voiceID, key, mp3Path); err != nil {
			return count, err
		}
		count++
	}
	im.log.Info("imported human audio archive", "file", zipPath, "recordings", count)
	return count, nil
}

func readArchiveMetadata(r *zip.Reader) ([]archiveEntry, error) {
	for _, f := range r.File {
		if filepath.Base(f.Name) != "metadata.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open archive metadata: %w", err)
		}
		defer rc.Close()
		var entries []archiveEntry
		if err := json.NewDecoder(rc).Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode archive metadata: %w", domain.ErrValidation)
		}
		return entries, nil
	}
	return nil, fmt.Errorf("archive has no metadata.json: %w", domain.ErrValidation)
}

func extractZipFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("extract %q: %w", f.Name, err)
	}
	defer rc.Close()
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("extract %q: %w", f.Name, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %q: %w", f.Name, err)
	}
	return nil
}

// Cut is one slice of a long recording.
type Cut struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// ImportCutJSON cuts a long recording at the offsets in a JSON metadata
// file of [{text, start_time, end_time}] and ingests each slice.
func (im *Importer) ImportCutJSON(ctx context.Context, audioPath, metadataPath string) (int, error) {
	raw, err := os.ReadFile(metadataPath)
	if err != nil {
		return 0, fmt.Errorf("read cut metadata: %w", err)
	}
	var cuts []Cut
	if err := json.Unmarshal(raw, &cuts); err != nil {
		return 0, fmt.Errorf("decode cut metadata %s: %w", metadataPath, domain.ErrAlignment)
	}
	return im.importCuts(ctx, audioPath, cuts)
}

// ImportCutLabels cuts a long recording using an Audacity label file whose
// labels index into a segmented text of the form |0|seg1|1|seg2|…
func (im *Importer) ImportCutLabels(ctx context.Context, audioPath, labelPath, indexedText string) (int, error) {
	segments, err := parseIndexedText(indexedText)
	if err != nil {
		return 0, err
	}
	raw, err := os.ReadFile(labelPath)
	if err != nil {
		return 0, fmt.Errorf("read label file: %w", err)
	}

	var cuts []Cut
	for lineNo, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return 0, fmt.Errorf("label file line %d: want start/end/label: %w", lineNo+1, domain.ErrAlignment)
		}
		start, err1 := strconv.ParseFloat(fields[0], 64)
		end, err2 := strconv.ParseFloat(fields[1], 64)
		idx, err3 := strconv.Atoi(strings.TrimSpace(fields[2]))
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, fmt.Errorf("label file line %d is malformed: %w", lineNo+1, domain.ErrAlignment)
		}
		text, ok := segments[idx]
		if !ok {
			return 0, fmt.Errorf("label file line %d names unknown segment %d: %w", lineNo+1, idx, domain.ErrAlignment)
		}
		cuts = append(cuts, Cut{Text: text, StartTime: start, EndTime: end})
	}
	return im.importCuts(ctx, audioPath, cuts)
}

func (im *Importer) importCuts(ctx context.Context, audioPath string, cuts []Cut) (int, error) {
	tmpDir, err := os.MkdirTemp("", "clara-audio-cut-*")
	if err != nil {
		return 0, fmt.Errorf("create cut temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	count := 0
	for i, cut := range cuts {
		if cut.EndTime <= cut.StartTime {
			return count, fmt.Errorf("cut %d has end %.3f before start %.3f: %w",
				i, cut.EndTime, cut.StartTime, domain.ErrAlignment)
		}
		slicePath := filepath.Join(tmpDir, fmt.Sprintf("cut_%d.mp3", i))
		err := im.run(ctx, im.ffmpeg, "-y",
			"-i", audioPath,
			"-ss", formatSeconds(cut.StartTime),
			"-to", formatSeconds(cut.EndTime),
			"-c:a", "libmp3lame",
			slicePath)
		if err != nil {
			return count, fmt.Errorf("cut slice %d: %w", i, err)
		}

		key := domain.SegmentAudioKey(cut.Text)
		if _, err := im.repo.Put(ctx, domain.HumanVoiceEngine, im.l2, im.voiceID, key, slicePath); err != nil {
			return count, err
		}
		count++
	}
	im.log.Info("imported cut human audio", "file", audioPath, "slices", count)
	return count, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// parseIndexedText splits |0|seg1|1|seg2|… into index to segment text.
func parseIndexedText(s string) (map[int]string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || !strings.HasPrefix(trimmed, "|") {
		return nil, fmt.Errorf("indexed text must start with |: %w", domain.ErrAlignment)
	}
	parts := strings.Split(trimmed, "|")[1:]
	if len(parts)%2 == 1 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts)%2 != 0 {
		return nil, fmt.Errorf("indexed text has dangling index: %w", domain.ErrAlignment)
	}
	out := make(map[int]string, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		idx, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return nil, fmt.Errorf("indexed text: bad index %q: %w", parts[i], domain.ErrAlignment)
		}
		out[idx] = strings.TrimSpace(parts[i+1])
	}
	return out, nil
}
