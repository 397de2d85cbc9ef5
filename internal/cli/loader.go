package cli

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/brplusa/spacelink/internal/space"
)

//go:embed schema.cue
var schemaCUE string

// spaceFile is the YAML/JSON input shape.
type spaceFile struct {
	Spaces []space.External `yaml:"spaces"`
}

// cueSpace is the decoded form of a #Space value.
type cueSpace struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Number  string  `json:"number"`
	Supply  float64 `json:"supply"`
	Return  float64 `json:"return"`
	Exhaust float64 `json:"exhaust"`
}

// LoadError reports an unusable space input file.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadSpaces reads external spaces from a .yaml, .yml, .json or .cue file.
//
// Every file holds a top-level "spaces" list whose entries have id, name,
// number, supply, return and exhaust. CUE files are unified with the #Space
// schema, which rejects unknown fields and supplies zero defaults.
func LoadSpaces(path string) ([]space.External, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "cannot read file", Err: err}
	}

	var spaces []space.External
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		spaces, err = decodeYAML(data)
	case ".cue":
		spaces, err = decodeCUE(path, data)
	default:
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported file type %q (want .yaml, .yml, .json or .cue)", ext)}
	}
	if err != nil {
		return nil, &LoadError{Path: path, Message: "invalid space input", Err: err}
	}
	if len(spaces) == 0 {
		return nil, &LoadError{Path: path, Message: "no spaces found"}
	}

	for i, sp := range spaces {
		if err := sp.Validate(); err != nil {
			return nil, &LoadError{Path: path, Message: fmt.Sprintf("spaces[%d]", i), Err: err}
		}
	}
	return spaces, nil
}

func decodeYAML(data []byte) ([]space.External, error) {
	var file spaceFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, err
	}
	return file.Spaces, nil
}

func decodeCUE(path string, data []byte) ([]space.External, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, err
	}

	unified := schema.LookupPath(cue.ParsePath("#File")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}

	var decoded []cueSpace
	if err := unified.LookupPath(cue.ParsePath("spaces")).Decode(&decoded); err != nil {
		return nil, err
	}

	spaces := make([]space.External, len(decoded))
	for i, d := range decoded {
		spaces[i] = space.External{
			ID:     d.ID,
			Name:   d.Name,
			Number: d.Number,
			Design: space.Airflow{Supply: d.Supply, Return: d.Return, Exhaust: d.Exhaust},
		}
	}
	return spaces, nil
}
