package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errInvalidParam = errors.New("invalid parameter")

// params holds the decoded request body. JSON-RPC style bodies carry the
// values under "params".
type params map[string]any

func decodeParams(body io.Reader) (params, error) {
	var raw map[string]any
	dec := json.NewDecoder(io.LimitReader(body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return params{}, nil
		}
		return nil, err
	}
	if inner, ok := raw["params"].(map[string]any); ok {
		return params(inner), nil
	}
	return params(raw), nil
}

// present reports whether key holds a non-empty, non-zero value.
func (p params) present(key string) bool {
	switch v := p[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case bool:
		return v
	default:
		return true
	}
}

func (p params) floatValue(key string) (float64, error) {
	switch v := p[key].(type) {
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("%s: %w", key, errInvalidParam)
	}
}

func (p params) intValue(key string) (int64, error) {
	switch v := p[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("%s: %w", key, errInvalidParam)
	}
}

func (p params) optionalFloat(key string) (*float64, error) {
	if _, ok := p[key]; !ok || p[key] == nil {
		return nil, nil
	}
	f, err := p.floatValue(key)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (p params) stringValue(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
