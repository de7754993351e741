// --- examview-server/ingestion/ingestion.go ---
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"examview-server/models"
	"examview-server/utils"
)

const sourceName = "ingestion"

var (
	// ErrMissingQuizID is returned for exam files without a usable quiz_id.
	ErrMissingQuizID = errors.New("quiz_id is missing or not a positive integer")
	errNotMapping    = errors.New("top-level document must be a mapping")
)

// Store is what ingestion needs from the exam store.
type Store interface {
	UpsertExam(ctx context.Context, rec models.ExamRecord) (bool, error)
	LogError(source, examRef, filePath, fieldName, errMsg, fixSug string)
}

// Warning is a non-fatal problem found in an exam file.
type Warning struct {
	Field   string
	Message string
	Fix     string
}

// Result summarizes one ingestion run.
type Result struct {
	Processed int     // files stored or already up to date
	Unchanged int     // files whose checksum matched the stored exam
	Skipped   int     // files that could not be ingested
	Updated   []int64 // exam ids written by this run
}

// IsExamFile reports whether name has an extension ingestion reads.
func IsExamFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// ProcessExamDirectory ingests every exam file in dir. Problems with single
// files are logged and counted; only an unreadable directory is an error.
func ProcessExamDirectory(ctx context.Context, store Store, dir string) (Result, error) {
	var res Result
	entries, err := os.ReadDir(dir)
	if err != nil {
		store.LogError(sourceName, "", dir, "", "Failed to read exam directory", fmt.Sprintf("Ensure EXAMS.DATA_PATH exists and is readable: %v", err))
		return res, fmt.Errorf("failed to read exam directory %s: %w", dir, err)
	}

	seen := make(map[int64]string)
	for _, entry := range entries {
		if entry.IsDir() || !IsExamFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		path := filepath.Join(dir, entry.Name())

		rec, warnings, err := LoadExamFile(path)
		ref := entry.Name()
		if rec != nil {
			ref = strconv.FormatInt(rec.ID, 10)
		}
		for _, w := range warnings {
			store.LogError(sourceName, ref, path, w.Field, w.Message, w.Fix)
		}
		if err != nil {
			log.Printf("Skipping exam file %s: %v", path, err)
			field := ""
			if errors.Is(err, ErrMissingQuizID) {
				field = "quiz_id"
			}
			store.LogError(sourceName, ref, path, field, err.Error(), "Fix the file and re-run ingestion.")
			res.Skipped++
			continue
		}
		if first, dup := seen[rec.ID]; dup {
			store.LogError(sourceName, ref, path, "quiz_id", fmt.Sprintf("Duplicate quiz_id %d, already defined in %s", rec.ID, first), "Give every exam file a unique quiz_id.")
			res.Skipped++
			continue
		}
		seen[rec.ID] = path

		changed, err := store.UpsertExam(ctx, *rec)
		if err != nil {
			log.Printf("Error storing exam %d from %s: %v", rec.ID, path, err)
			store.LogError(sourceName, ref, path, "", "Failed to store exam", fmt.Sprintf("Database error: %v", err))
			res.Skipped++
			continue
		}
		res.Processed++
		if changed {
			res.Updated = append(res.Updated, rec.ID)
		} else {
			res.Unchanged++
		}
	}
	log.Printf("Ingestion of %s: %d processed, %d updated, %d unchanged, %d skipped", dir, res.Processed, len(res.Updated), res.Unchanged, res.Skipped)
	return res, nil
}

// LoadExamFile reads and normalizes one exam file. The record is returned
// along with any warnings even when err reports the file as unusable.
func LoadExamFile(path string) (*models.ExamRecord, []Warning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	rec, warnings, err := ParseExam(raw)
	if rec != nil {
		rec.SourcePath = path
	}
	return rec, warnings, err
}

// ParseExam decodes a YAML or JSON exam document into a record with a
// content checksum.
func ParseExam(raw []byte) (*models.ExamRecord, []Warning, error) {
	var doc any
	if json.Valid(raw) {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, nil, fmt.Errorf("failed to parse exam document: %w", err)
		}
	} else if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse exam document: %w", err)
	}
	top, ok := doc.(map[string]any)
	if !ok {
		return nil, nil, errNotMapping
	}
	warnings := shapeWarnings(top)

	asJSON, err := json.Marshal(top)
	if err != nil {
		return nil, warnings, fmt.Errorf("failed to convert exam document to JSON: %w", err)
	}
	var data models.ExamData
	if err := json.Unmarshal(asJSON, &data); err != nil {
		return nil, warnings, fmt.Errorf("failed to decode exam document: %w", err)
	}
	if data.QuizID <= 0 {
		return nil, warnings, ErrMissingQuizID
	}

	warnings = append(warnings, normalize(&data)...)
	warnings = append(warnings, validate(&data)...)

	canonical, err := json.Marshal(&data)
	if err != nil {
		return nil, warnings, fmt.Errorf("failed to encode exam %d: %w", data.QuizID, err)
	}
	sum := sha256.Sum256(canonical)

	title := data.Title
	if title == "" {
		title = fmt.Sprintf("Exam %d", data.QuizID)
	}
	return &models.ExamRecord{
		ID:       data.QuizID,
		Title:    title,
		Data:     &data,
		Checksum: hex.EncodeToString(sum[:]),
	}, warnings, nil
}

// shapeWarnings reports sections that are present but will decode to nothing.
func shapeWarnings(top map[string]any) []Warning {
	var out []Warning
	if v, ok := top["reorder_questions"]; ok {
		if _, isList := v.([]any); !isList {
			out = append(out, Warning{Field: "reorder_questions", Message: "Section is not a list and will be ignored", Fix: "Make reorder_questions a list of groups."})
		}
	}
	g, ok := top["groups"]
	if !ok {
		return out
	}
	groups, isMap := g.(map[string]any)
	if !isMap {
		return append(out, Warning{Field: "groups", Message: "groups is not a mapping and will be ignored", Fix: "Make groups a mapping of fill_short, fill_long and reading."})
	}
	for _, name := range []string{"fill_short", "fill_long", "reading"} {
		v, ok := groups[name]
		if !ok {
			continue
		}
		if _, isList := v.([]any); !isList {
			out = append(out, Warning{Field: "groups." + name, Message: "Section is not a list and will be ignored", Fix: "Make groups." + name + " a list of groups."})
		}
	}
	return out
}

type namedSection struct {
	name string
	list models.GroupList
}

func namedSections(data *models.ExamData) []namedSection {
	var out []namedSection
	if data.Groups != nil {
		out = append(out, namedSection{"groups.fill_short", data.Groups.FillShort})
	}
	out = append(out, namedSection{"reorder_questions", data.ReorderQuestions})
	if data.Groups != nil {
		out = append(out,
			namedSection{"groups.fill_long", data.Groups.FillLong},
			namedSection{"groups.reading", data.Groups.Reading},
		)
	}
	return out
}

// normalize assigns ids to group entries that lack one or repeat an id used
// earlier in the exam. Ids are derived from the quiz id and position, so
// re-ingesting an unchanged file yields the same checksum.
func normalize(data *models.ExamData) []Warning {
	var out []Warning
	seen := make(map[string]string)
	for _, s := range namedSections(data) {
		for i := range s.list {
			field := fmt.Sprintf("%s[%d].id", s.name, i)
			id := s.list[i].ID
			first, dup := seen[id]
			if id != "" && !dup {
				seen[id] = field
				continue
			}
			name := fmt.Sprintf("examview:%d:%s:%d", data.QuizID, s.name, i)
			s.list[i].ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
			seen[s.list[i].ID] = field
			if dup {
				out = append(out, Warning{
					Field:   field,
					Message: fmt.Sprintf("Group id %q already used by %s; assigned %s", id, first, s.list[i].ID),
					Fix:     "Give every group a unique id.",
				})
				continue
			}
			out = append(out, Warning{
				Field:   field,
				Message: "Group has no id; assigned " + s.list[i].ID,
				Fix:     "Add an explicit id so answers stay stable when groups are reordered.",
			})
		}
	}
	return out
}

func validate(data *models.ExamData) []Warning {
	var out []Warning
	for _, s := range namedSections(data) {
		for gi, g := range s.list {
			if g.Subquestions == nil {
				out = append(out, Warning{
					Field:   fmt.Sprintf("%s[%d].subquestions", s.name, gi),
					Message: "Group has no subquestions list and contributes no questions",
					Fix:     "Add a subquestions list.",
				})
				continue
			}
			for qi, q := range g.Subquestions {
				field := fmt.Sprintf("%s[%d].subquestions[%d]", s.name, gi, qi)
				if len(q.Options) == 0 {
					out = append(out, Warning{Field: field + ".options", Message: "Subquestion has no options", Fix: "Add options formatted as \"A. text\"."})
					continue
				}
				letters := utils.OptionLetters(len(q.Options))
				for oi, opt := range q.Options {
					if !strings.HasPrefix(opt, letters[oi]+". ") {
						out = append(out, Warning{
							Field:   fmt.Sprintf("%s.options[%d]", field, oi),
							Message: fmt.Sprintf("Option %q does not start with %q", opt, letters[oi]+". "),
							Fix:     "Prefix each option with its letter, a dot and a space.",
						})
					}
				}
				if !utils.ContainsString(letters, q.CorrectAnswer) {
					out = append(out, Warning{
						Field:   field + ".correct_answer",
						Message: fmt.Sprintf("correct_answer %q is not one of %s", q.CorrectAnswer, strings.Join(letters, ", ")),
						Fix:     "Set correct_answer to the letter of the right option.",
					})
				}
			}
		}
	}
	return out
}
