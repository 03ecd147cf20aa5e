package loader

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// ReadFile decodes a definition file by extension: .yaml and .yml as YAML,
// .cue as CUE checked against the definition schema.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{Code: ErrParse, File: path, Message: err.Error()}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(path, data)
	case ".cue":
		return DecodeCUE(path, data)
	default:
		return nil, &ValidationError{
			Code:    ErrUnsupportedFile,
			File:    path,
			Message: "definition files must end in .yaml, .yml or .cue",
		}
	}
}

// DecodeYAML decodes a YAML definition. Unknown fields are rejected.
func DecodeYAML(path string, data []byte) (*File, error) {
	f := &File{Path: path}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ValidationError{Code: ErrParse, File: path, Message: err.Error()}
	}
	return f, nil
}

// DecodeCUE compiles a CUE definition, unifies it with the #File schema
// and decodes the concrete result.
func DecodeCUE(path string, data []byte) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile definition schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueValidationError(ErrParse, path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#File")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueValidationError(ErrSchema, path, err)
	}

	// JSON is valid YAML, so both formats share one decoding path.
	js, err := unified.MarshalJSON()
	if err != nil {
		return nil, cueValidationError(ErrSchema, path, err)
	}
	f := &File{Path: path}
	if err := yaml.Unmarshal(js, f); err != nil {
		return nil, &ValidationError{Code: ErrSchema, File: path, Message: err.Error()}
	}
	return f, nil
}

// cueValidationError keeps the first CUE error and its position.
func cueValidationError(code, path string, err error) *ValidationError {
	ve := &ValidationError{Code: code, File: path, Message: err.Error()}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return ve
	}
	first := errs[0]
	ve.Message = first.Error()
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ve.Line = positions[0].Line()
	}
	return ve
}

// FindFiles expands paths: directories are walked for definition files,
// plain files are kept as given. Results keep argument order, with each
// directory's files in lexical order.
func FindFiles(paths ...string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("definitions path %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".yaml", ".yml", ".cue":
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
	}
	return files, nil
}
