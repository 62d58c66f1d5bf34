package logging

import (
	"log/slog"
	"slices"
	"strings"
)

// field is one attribute flattened to its group path.
type field struct {
	path  []string
	value slog.Value
}

func (f field) key(sep string) string {
	return strings.Join(f.path, sep)
}

// scope accumulates WithAttrs and WithGroup calls. Attributes are
// flattened when added, so groups opened later do not rename them.
type scope struct {
	fields []field
	groups []string
}

func (s scope) withAttrs(attrs []slog.Attr) scope {
	out := scope{fields: slices.Clone(s.fields), groups: s.groups}
	for _, a := range attrs {
		out.fields = flatten(out.fields, s.groups, a)
	}
	return out
}

func (s scope) withGroup(name string) scope {
	if name == "" {
		return s
	}
	return scope{fields: s.fields, groups: append(slices.Clone(s.groups), name)}
}

// collect returns the scoped fields followed by the record's own.
func (s scope) collect(r slog.Record) []field {
	out := slices.Clone(s.fields)
	r.Attrs(func(a slog.Attr) bool {
		out = flatten(out, s.groups, a)
		return true
	})
	return out
}

func flatten(dst []field, path []string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		sub := path
		if a.Key != "" {
			sub = append(slices.Clone(path), a.Key)
		}
		for _, ga := range v.Group() {
			dst = flatten(dst, sub, ga)
		}
		return dst
	}
	return append(dst, field{path: append(slices.Clone(path), a.Key), value: v})
}

// isModule reports whether f is the top-level module attribute every
// module logger carries.
func (f field) isModule() bool {
	return len(f.path) == 1 && f.path[0] == "module"
}
