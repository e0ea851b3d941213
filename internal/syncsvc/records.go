package syncsvc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// CheckIdentifier rejects table or column names that are not plain snake_case
func CheckIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// Columns flattens a json-tagged record into column/value pairs.
// Numbers come back as int64 when integral and float64 otherwise.
func Columns(record any) (map[string]any, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("record must encode to a JSON object: %w", err)
	}

	cols := make(map[string]any, len(raw))
	for k, v := range raw {
		if err := CheckIdentifier(k); err != nil {
			return nil, err
		}
		cols[k] = normalize(v)
	}
	return cols, nil
}

func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if !strings.ContainsAny(n.String(), ".eE") {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	f, _ := n.Float64()
	return f
}

// DecodeRows writes rows into dest. A slice destination receives every
// row; any other destination receives the first row, and an empty result
// is reported as ErrRowNotFound for table.
func DecodeRows(table string, rows []map[string]any, dest any) error {
	if dest == nil {
		return nil
	}

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode %s: destination must be a non-nil pointer", table)
	}

	var payload any
	if rv.Elem().Kind() == reflect.Slice {
		if rows == nil {
			rows = []map[string]any{}
		}
		payload = rows
	} else {
		if len(rows) == 0 {
			return RowNotFound(table)
		}
		payload = rows[0]
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

// SortedKeys returns the column names of cols in lexical order
func SortedKeys(cols map[string]any) []string {
	keys := make([]string, 0, len(cols))
	for k := range cols {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
