package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
)

//go:embed templates
var embeddedTemplates embed.FS

var (
	ErrTemplateNotFound = errors.New("prompt template not found")
	ErrInvalidQuestions = errors.New("invalid questions file")
)

// Shared fragments live at the root of the template tree; Shared is the pass
// name used to address them.
const Shared = ""

// Fragment names.
const (
	FragmentInvocation = "invocation"
	FragmentRealm      = "realm"
	FragmentSystem     = "system"
	FragmentUser       = "user"
	questionsFile      = "questions.json"
)

// Question is one entry of a pass's questions map. Order follows the file.
type Question struct {
	Key  string
	Text string
}

// Store reads prompt fragments from a template tree laid out as
//
//	invocation.md
//	realm.md
//	<pass>/system.md
//	<pass>/user.md
//	<pass>/questions.json   (analysis passes only)
//
// Fragments are read on every call so edits to a directory-backed tree take
// effect without a restart.
type Store struct {
	fsys fs.FS
}

func NewStore(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// Embedded returns a store over the templates compiled into the binary.
func Embedded() *Store {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(fmt.Sprintf("embedded templates: %v", err))
	}
	return NewStore(sub)
}

// NewStoreFromDir returns a store rooted at dir, or the embedded store when dir is empty.
func NewStoreFromDir(dir string) *Store {
	if dir == "" {
		return Embedded()
	}
	return NewStore(os.DirFS(dir))
}

func fragmentPath(pass, name string) string {
	if pass == Shared {
		return name + ".md"
	}
	return path.Join(pass, name+".md")
}

// Text returns the UTF-8 contents of a fragment.
func (s *Store) Text(pass, name string) (string, error) {
	p := fragmentPath(pass, name)
	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, p)
		}
		return "", fmt.Errorf("read template %s: %w", p, err)
	}
	return string(data), nil
}

// Questions returns the pass's question map in file order.
func (s *Store) Questions(pass string) ([]Question, error) {
	p := path.Join(pass, questionsFile)
	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, p)
		}
		return nil, fmt.Errorf("read template %s: %w", p, err)
	}
	qs, err := decodeQuestions(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidQuestions, p, err)
	}
	return qs, nil
}

// decodeQuestions walks the JSON object token by token so key order survives.
func decodeQuestions(data []byte) ([]Question, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}

	var qs []Question
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var text string
		if err := dec.Decode(&text); err != nil {
			return nil, fmt.Errorf("question %q: %w", key, err)
		}
		qs = append(qs, Question{Key: key, Text: text})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return qs, nil
}

// Validate checks that every fragment the analysis and reflection passes need
// is present and that the questions files decode.
func (s *Store) Validate() error {
	var errs []error
	check := func(pass, name string) {
		if _, err := s.Text(pass, name); err != nil {
			errs = append(errs, err)
		}
	}

	check(Shared, FragmentInvocation)
	check(Shared, FragmentRealm)
	for _, l := range domain.Layers {
		check(string(l), FragmentSystem)
		check(string(l), FragmentUser)
		if _, err := s.Questions(string(l)); err != nil {
			errs = append(errs, err)
		}
	}
	for _, rt := range domain.ReflectionTypes {
		check(rt.Pass(), FragmentSystem)
		check(rt.Pass(), FragmentUser)
	}
	return errors.Join(errs...)
}
