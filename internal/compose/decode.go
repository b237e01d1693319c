package compose

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/nibzard/hydrant/internal/node"
)

// Decode parses a config file into a tree. The top level must be a
// mapping; an empty file is an empty mapping. Every failure is a
// *ParseError naming path.
func Decode(format Format, path string, data []byte) (*node.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return node.Map(), nil
	}

	var (
		n   *node.Node
		err error
	)
	switch format {
	case FormatYAML:
		n, err = decodeYAML(data)
	case FormatTOML:
		n, err = decodeTOML(data)
	case FormatJSON:
		n, err = decodeJSON(data)
	case FormatHCL:
		n, err = decodeHCL(path, data)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if n.IsNull() {
		return node.Map(), nil
	}
	if !n.IsMap() {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("top level must be a mapping, got %s", n.Kind())}
	}
	return n, nil
}

// decodeRaw parses a located file.
func decodeRaw(raw *RawConfig) (*node.Node, error) {
	return Decode(raw.Format, raw.Path, raw.Text)
}

func decodeYAML(data []byte) (*node.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return node.FromYAML(&doc)
}

func decodeTOML(data []byte) (*node.Node, error) {
	var m map[string]any
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	// Go maps lose document order; MetaData.Keys keeps it.
	order := make(map[string]int)
	for i, k := range md.Keys() {
		joined := strings.Join(k, "\x00")
		if _, ok := order[joined]; !ok {
			order[joined] = i
		}
	}
	return tomlNode(m, nil, order)
}

func tomlNode(v any, prefix []string, order map[string]int) (*node.Node, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		pos := func(k string) int {
			if p, ok := order[strings.Join(append(prefix[:len(prefix):len(prefix)], k), "\x00")]; ok {
				return p
			}
			return len(order)
		}
		sort.SliceStable(keys, func(i, j int) bool {
			pi, pj := pos(keys[i]), pos(keys[j])
			if pi != pj {
				return pi < pj
			}
			return keys[i] < keys[j]
		})
		entries := make([]node.Entry, 0, len(keys))
		for _, k := range keys {
			child, err := tomlNode(val[k], append(prefix[:len(prefix):len(prefix)], k), order)
			if err != nil {
				return nil, err
			}
			entries = append(entries, node.Entry{Key: k, Value: child})
		}
		return node.Map(entries...), nil
	case []map[string]any:
		items := make([]*node.Node, len(val))
		for i, item := range val {
			child, err := tomlNode(item, prefix, order)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return node.List(items...), nil
	case []any:
		items := make([]*node.Node, len(val))
		for i, item := range val {
			child, err := tomlNode(item, prefix, order)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		return node.List(items...), nil
	case time.Time:
		return node.String(tomlTime(val)), nil
	default:
		return node.FromValue(val)
	}
}

// tomlTime formats TOML date-times; local dates and times carry marker
// zones from the decoder and are written back without an offset.
func tomlTime(t time.Time) string {
	switch t.Location().String() {
	case "date-local":
		return t.Format("2006-01-02")
	case "time-local":
		return t.Format("15:04:05.999999999")
	case "datetime-local":
		return t.Format("2006-01-02T15:04:05.999999999")
	}
	return t.Format(time.RFC3339Nano)
}

func decodeJSON(data []byte) (*node.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := readJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return n, nil
}

// readJSON walks the token stream so object keys keep their order.
func readJSON(dec *json.Decoder) (*node.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return node.FromValue(tok)
	}
	switch delim {
	case '{':
		var entries []node.Entry
		seen := make(map[string]bool)
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key must be a string at offset %d", dec.InputOffset())
			}
			if seen[key] {
				return nil, fmt.Errorf("duplicate key %q at offset %d", key, dec.InputOffset())
			}
			seen[key] = true
			child, err := readJSON(dec)
			if err != nil {
				return nil, err
			}
			entries = append(entries, node.Entry{Key: key, Value: child})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return node.Map(entries...), nil
	case '[':
		var items []*node.Node
		for dec.More() {
			child, err := readJSON(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, child)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return node.List(items...), nil
	}
	return nil, fmt.Errorf("unexpected %q at offset %d", delim, dec.InputOffset())
}

func decodeHCL(path string, data []byte) (*node.Node, error) {
	file, diags := hclsyntax.ParseConfig(data, path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("unexpected body type %T", file.Body)
	}
	return hclBody(body)
}

// hclBody converts attributes and blocks in source order. A block becomes a
// map under its type, nested one level per label:
//
//	service "http" "web" { port = 80 }   =>   service.http.web.port = 80
func hclBody(body *hclsyntax.Body) (*node.Node, error) {
	type item struct {
		offset int
		attr   *hclsyntax.Attribute
		block  *hclsyntax.Block
	}
	items := make([]item, 0, len(body.Attributes)+len(body.Blocks))
	for _, attr := range body.Attributes {
		items = append(items, item{offset: attr.SrcRange.Start.Byte, attr: attr})
	}
	for _, block := range body.Blocks {
		items = append(items, item{offset: block.TypeRange.Start.Byte, block: block})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].offset < items[j].offset })

	out := node.Map()
	for _, it := range items {
		if it.attr != nil {
			val, diags := it.attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, diags
			}
			child, err := ctyNode(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", it.attr.Name, err)
			}
			if out.Has(quoteKey(it.attr.Name)) {
				return nil, fmt.Errorf("%s: duplicate definition of %q", it.attr.SrcRange, it.attr.Name)
			}
			out = node.Merge(out, node.Map(node.Entry{Key: it.attr.Name, Value: child}))
			continue
		}

		b := it.block
		inner, err := hclBody(b.Body)
		if err != nil {
			return nil, err
		}
		segs := append([]string{b.Type}, b.Labels...)
		if out.Has(quoteKeys(segs)) {
			return nil, fmt.Errorf("%s: duplicate block %s", b.TypeRange, strings.Join(segs, "."))
		}
		if existing, err := out.Field(b.Type); err == nil && !existing.IsMap() {
			return nil, fmt.Errorf("%s: block %q conflicts with an attribute", b.TypeRange, b.Type)
		}
		wrapped := inner
		for i := len(segs) - 1; i >= 0; i-- {
			wrapped = node.Map(node.Entry{Key: segs[i], Value: wrapped})
		}
		out = node.Merge(out, wrapped)
	}
	return out, nil
}

func quoteKey(k string) string {
	return fmt.Sprintf("[%q]", k)
}

func quoteKeys(ks []string) string {
	var b strings.Builder
	for _, k := range ks {
		b.WriteString(quoteKey(k))
	}
	return b.String()
}

func ctyNode(v cty.Value) (*node.Node, error) {
	if v.IsMarked() {
		v, _ = v.Unmark()
	}
	if !v.IsKnown() {
		return nil, errors.New("value is not known")
	}
	if v.IsNull() {
		return node.Null(), nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return node.String(v.AsString()), nil
	case ty == cty.Bool:
		return node.Bool(v.True()), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return node.Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return node.Float(f), nil
	case ty.IsListType(), ty.IsTupleType(), ty.IsSetType():
		var items []*node.Node
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			child, err := ctyNode(ev)
			if err != nil {
				return nil, err
			}
			items = append(items, child)
		}
		return node.List(items...), nil
	case ty.IsMapType(), ty.IsObjectType():
		var entries []node.Entry
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			child, err := ctyNode(ev)
			if err != nil {
				return nil, err
			}
			entries = append(entries, node.Entry{Key: k.AsString(), Value: child})
		}
		return node.Map(entries...), nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
