package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
)

// braceSpan grabs from the first '{' to the last '}'. It is the only recovery attempted.
var braceSpan = regexp.MustCompile(`(?s)\{.*\}`)

var (
	errNoJSON       = errors.New("no JSON object in completion")
	errNoFieldsList = errors.New(`completion has no "fields" array`)
)

// ParseReport is the outcome of parsing one completion. Err is set when the whole response was
// unusable; Fields is then empty. It is never returned as an error by the analyzer.
type ParseReport struct {
	Fields    []Field
	Skipped   []FieldResult
	Recovered bool
	Err       error
}

// ParseResponse decodes {"fields":[{key,value}...]} directly, then from the first brace span, and
// otherwise degrades to an empty list. Invalid entries are skipped one by one.
func ParseResponse(content string, fv *FieldValidator) ParseReport {
	var rep ParseReport
	env, err := decodeObject([]byte(content))
	if err != nil {
		span := braceSpan.FindString(content)
		if span == "" {
			rep.Err = errNoJSON
			return rep
		}
		env, err = decodeObject([]byte(span))
		if err != nil {
			rep.Err = err
			return rep
		}
		rep.Recovered = true
	}

	list, isList := env["fields"].([]any)
	if !isList {
		rep.Err = errNoFieldsList
		return rep
	}
	for _, item := range list {
		res := fv.Check(item)
		if res.OK {
			rep.Fields = append(rep.Fields, res.Field)
		} else {
			rep.Skipped = append(rep.Skipped, res)
		}
	}
	return rep
}

func decodeObject(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, isObj := v.(map[string]any)
	if !isObj {
		return nil, errNoJSON
	}
	return obj, nil
}
