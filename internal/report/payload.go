package report

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// RequestPayload is a report request after boundary normalization. Preparation
// is always the unwrapped preparation object.
type RequestPayload struct {
	Preparation json.RawMessage
	Options     Options
	Landscape   bool
}

// option keys are never treated as preparation fields.
var optionKeys = map[string]bool{
	"isPremium":          true,
	"showGenerateButton": true,
	"landscape":          true,
	"debug":              true,
}

// NormalizeRequestPayload accepts either {"preparationData": {...}, ...flags}
// or the preparation fields directly at the top level. Flags default to false
// and are read from the top level first, then from inside preparationData.
func NormalizeRequestPayload(body []byte) (RequestPayload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return RequestPayload{}, invalid("preparationData", "is required")
	}
	if !gjson.ValidBytes(body) {
		return RequestPayload{}, invalid("body", "must be valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return RequestPayload{}, invalid("body", "must be a JSON object")
	}

	prep := root
	if wrapped := root.Get("preparationData"); wrapped.Exists() {
		if !wrapped.IsObject() {
			return RequestPayload{}, invalid("preparationData", "must be an object")
		}
		prep = wrapped
	} else if !hasPreparationFields(root) {
		return RequestPayload{}, invalid("preparationData", "is required")
	}

	return RequestPayload{
		Preparation: json.RawMessage(prep.Raw),
		Options: Options{
			IsPremium:          flag(root, prep, "isPremium"),
			ShowGenerateButton: flag(root, prep, "showGenerateButton"),
			Debug:              flag(root, prep, "debug"),
		},
		Landscape: flag(root, prep, "landscape"),
	}, nil
}

// DecodeDataParam decodes the base64 "data" query parameter. Standard and
// URL-safe alphabets are accepted, padded or not.
func DecodeDataParam(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if out, err := enc.DecodeString(data); err == nil {
			return out, nil
		}
	}
	return nil, invalid("data", "must be base64-encoded JSON")
}

func hasPreparationFields(root gjson.Result) bool {
	found := false
	root.ForEach(func(key, _ gjson.Result) bool {
		if !optionKeys[key.String()] {
			found = true
			return false
		}
		return true
	})
	return found
}

func flag(root, prep gjson.Result, key string) bool {
	if v := root.Get(key); v.Exists() {
		return v.Type == gjson.True
	}
	return prep.Get(key).Type == gjson.True
}
