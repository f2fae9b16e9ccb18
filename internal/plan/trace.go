package plan

import (
	"io"

	"github.com/tidwall/sjson"
)

// record is one JSON trace line, built field by field with sjson so the
// field order follows the order of the set calls.
type record struct {
	json string
}

func newRecord(kind string) *record {
	r := &record{json: "{}"}
	return r.set("kind", kind)
}

func (r *record) set(path string, v any) *record {
	if s, err := sjson.Set(r.json, path, v); err == nil {
		r.json = s
	}
	return r
}

func (r *record) setRaw(path string, raw []byte) *record {
	if s, err := sjson.SetRaw(r.json, path, string(raw)); err == nil {
		r.json = s
	}
	return r
}

func (r *record) String() string {
	return r.json
}

// tracer writes records as JSON lines. A nil writer discards them.
type tracer struct {
	w io.Writer
}

func newTracer(w io.Writer) *tracer {
	return &tracer{w: w}
}

func (t *tracer) write(r *record) {
	if t.w == nil {
		return
	}
	_, _ = io.WriteString(t.w, r.json+"\n")
}
