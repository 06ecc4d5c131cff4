package report

import (
	"bytes"
	"encoding/json"
	"html/template"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/jimdaga/interview-ace/internal/steps"
)

// FreeTierMarker is emitted in the footer of every non-premium report.
const FreeTierMarker = "Generated with InterviewAce Free"

// goldmark escapes raw HTML unless html.WithUnsafe is set. Images are
// reduced to their alt text so reports never reference remote resources.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(renderer.WithNodeRenderers(util.Prioritized(imageAltRenderer{}, 100))),
)

// imageAltRenderer replaces the default <img> output with the image's alt
// text, which the HTML renderer writes as the node's children.
type imageAltRenderer struct{}

func (imageAltRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindImage, func(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
		return ast.WalkContinue, nil
	})
}

// Funcs returns the helpers available to report templates. eq, and and or
// replace the text/template builtins with strict-equality and truthiness
// semantics; and/or return the deciding operand.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"eq":             Eq,
		"or":             Or,
		"and":            And,
		"json":           JSON,
		"formatList":     FormatList,
		"hasContent":     HasContent,
		"markdown":       Markdown,
		"percent":        Percent,
		"freeTierMarker": func() string { return FreeTierMarker },
	}
}

// Eq is strict equality: operands of different kinds are never equal, except
// that all numeric kinds compare by value. Non-comparable values are unequal.
func Eq(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		return ok && x == y
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() || !va.Type().Comparable() {
		return false
	}
	return va.Interface() == vb.Interface()
}

// Or returns a if it is truthy, otherwise b.
func Or(a, b interface{}) interface{} {
	if Truthy(a) {
		return a
	}
	return b
}

// And returns a if it is falsy, otherwise b.
func And(a, b interface{}) interface{} {
	if !Truthy(a) {
		return a
	}
	return b
}

// Truthy treats nil, false, "", 0, NaN and nil pointers, maps and slices as
// false. Everything else, including empty lists and structs, is true.
func Truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		f, _ := toFloat(v)
		return f != 0 && !math.IsNaN(f)
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	default:
		return true
	}
}

// JSON pretty-prints v with a two-space indent.
func JSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// FormatList drops blank entries and renders the rest as "• item" lines
// joined by newlines. Non-string elements are ignored.
func FormatList(items interface{}) string {
	var lines []string
	for _, s := range stringsOf(items) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		lines = append(lines, "• "+s)
	}
	return strings.Join(lines, "\n")
}

// HasContent reports whether v holds at least one populated value.
func HasContent(v interface{}) bool {
	return steps.HasContent(v)
}

// Markdown renders narrative text. Raw HTML in the source is escaped.
func Markdown(s string) (template.HTML, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Percent formats a score as a whole percentage. Nil pointers and
// non-numbers render as "".
func Percent(v interface{}) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	f, ok := toFloat(rv.Interface())
	if !ok {
		return ""
	}
	return strconv.FormatFloat(math.Round(f), 'f', 0, 64) + "%"
}

func toFloat(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func stringsOf(items interface{}) []string {
	switch list := items.(type) {
	case nil:
		return nil
	case []string:
		return list
	}
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i)
		for e.Kind() == reflect.Interface && !e.IsNil() {
			e = e.Elem()
		}
		if e.Kind() == reflect.String {
			out = append(out, e.String())
		}
	}
	return out
}
