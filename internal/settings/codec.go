package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

type envelope struct {
	Version  int          `json:"version"`
	Settings SiteSettings `json:"settings"`
}

// Encode serializes a document inside a versioned envelope.
func Encode(s SiteSettings) ([]byte, error) {
	return json.Marshal(envelope{Version: CurrentVersion, Settings: s})
}

// Decode parses stored bytes leniently. Any leaf that is missing, null or
// not a string is read as "", and so is every leaf of a nested object that
// is itself missing or mistyped. Bytes that do not hold a JSON object yield
// the default document together with a *MalformedSettingsError.
//
// Both the versioned envelope and a bare document (version 0) are accepted.
func Decode(data []byte) (SiteSettings, int, error) {
	top, err := object(data)
	if err != nil {
		return Defaults(), 0, &MalformedSettingsError{Err: err}
	}

	version := 0
	doc := top
	if inner, ok := top["settings"]; ok && isEnvelope(top) {
		if raw, ok := top["version"]; ok {
			_ = json.Unmarshal(raw, &version)
		}
		if doc, err = object(inner); err != nil {
			return Defaults(), version, &MalformedSettingsError{Err: err}
		}
	}

	s := Defaults()
	nested := map[string]map[string]json.RawMessage{}
	for _, f := range fields {
		parent, leaf, isNested := strings.Cut(f.key, ".")
		if !isNested {
			*f.ref(&s) = str(doc[f.key])
			continue
		}
		m, seen := nested[parent]
		if !seen {
			m, _ = object(doc[parent])
			nested[parent] = m
		}
		*f.ref(&s) = str(m[leaf])
	}
	return s, version, nil
}

// isEnvelope tells an envelope apart from a bare document, which never has
// a "settings" or "version" key of its own.
func isEnvelope(top map[string]json.RawMessage) bool {
	for k := range top {
		if k != "settings" && k != "version" {
			return false
		}
	}
	return true
}

func object(raw json.RawMessage) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errors.New("not a JSON object")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func str(raw json.RawMessage) string {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}
