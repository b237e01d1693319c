package compose

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/hydrant/internal/node"
)

// SchemaSuffix is appended to the root name to find its optional schema.
const SchemaSuffix = ".schema.json"

// SchemaPath returns where the schema for root would live.
func SchemaPath(root *RawConfig) string {
	return path.Join(root.Dir, root.Name+SchemaSuffix)
}

// ValidateSchema checks cfg against the JSON schema stored next to the root
// file. A root without a schema file always validates.
func ValidateSchema(root *RawConfig, cfg *node.Node) error {
	p := SchemaPath(root)
	data, err := fs.ReadFile(root.FS, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema %s: %w", p, err)
	}

	url := "file:///" + strings.TrimPrefix(p, "/")
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return &ParseError{Path: p, Err: err}
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return &ParseError{Path: p, Err: err}
	}

	doc, err := cfg.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode config for validation: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var instance interface{}
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("decode config for validation: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return schemaError(err)
	}
	return nil
}

// schemaError reduces a jsonschema error tree to its first leaf.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &ValidationError{Path: pointerToPath(ve.InstanceLocation), Message: ve.Message}
}

// pointerToPath converts a JSON pointer such as "/db/ports/0" into path
// syntax, "db.ports[0]".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(strings.TrimPrefix(ptr, "#"), "/")
	if ptr == "" {
		return ""
	}
	var p node.Path
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if idx, err := strconv.Atoi(part); err == nil {
			p = append(p, node.Idx(idx))
			continue
		}
		p = append(p, node.Key(part))
	}
	return p.String()
}
