package graph

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Extra keeps JSON members this version does not model so that documents
// written by newer consoles survive a load/save cycle unchanged.
type Extra map[string]json.RawMessage

func (e Extra) clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

var knownFieldCache sync.Map // reflect.Type -> map[string]struct{}

// knownFields lists the JSON member names a struct type declares, following
// embedded structs the way encoding/json does.
func knownFields(t reflect.Type) map[string]struct{} {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := knownFieldCache.Load(t); ok {
		return cached.(map[string]struct{})
	}

	names := make(map[string]struct{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			for ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				for k := range knownFields(ft) {
					names[k] = struct{}{}
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		names[name] = struct{}{}
	}

	knownFieldCache.Store(t, names)
	return names
}

// decodeWithExtra decodes data into v and returns the members v does not know.
func decodeWithExtra(data []byte, v any) (Extra, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	known := knownFields(reflect.TypeOf(v))
	var extra Extra
	for k, msg := range raw {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[k] = msg
	}
	return extra, nil
}

// encodeWithExtra encodes v and merges extra members that v does not set.
func encodeWithExtra(v any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, msg := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = msg
		}
	}
	return json.Marshal(merged)
}
