package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// metaChild returns the single object nested under a QQ "json" segment's
// "meta" key (QQ card payloads always carry exactly one named entry there,
// e.g. "meta": {"Location.Search": {...}} or {"news": {...}}).
func metaChild(card map[string]any) (map[string]any, bool) {
	meta, ok := card["meta"].(map[string]any)
	if !ok {
		return nil, false
	}
	for _, v := range meta {
		if child, ok := v.(map[string]any); ok {
			return child, true
		}
	}
	return nil, false
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// ExtractLocationFromJSON recovers a shared location from a QQ "json"
// segment carrying a LocationShare card, pulling lat/lon/name/address out of
// its "meta.*" shape.
func ExtractLocationFromJSON(raw string) (title, address string, lat, lon float64, err error) {
	var card map[string]any
	if err := json.Unmarshal([]byte(raw), &card); err != nil {
		return "", "", 0, 0, fmt.Errorf("decode json card: %w", err)
	}
	child, ok := metaChild(card)
	if !ok {
		return "", "", 0, 0, fmt.Errorf("json card carries no meta entry")
	}
	title = stringField(child, "name")
	address = stringField(child, "address")
	lat, err = strconv.ParseFloat(stringField(child, "lat"), 64)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("parse lat: %w", err)
	}
	lon, err = strconv.ParseFloat(stringField(child, "lng"), 64)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("parse lng: %w", err)
	}
	return title, address, lat, lon, nil
}

// ExtractShareFromJSON renders an HTML share card ("[title]\n\n[desc] via
// [source link]") from a QQ "json" segment, covering both the qqdocurl and
// jumpUrl card shapes. Returns "" when raw carries neither shape (callers
// fall back to the raw JSON text).
func ExtractShareFromJSON(raw string) (string, error) {
	var card map[string]any
	if err := json.Unmarshal([]byte(raw), &card); err != nil {
		return "", fmt.Errorf("decode json card: %w", err)
	}
	child, ok := metaChild(card)
	if !ok {
		return "", nil
	}

	var title, description, source, url string
	if docURL := stringField(child, "qqdocurl"); docURL != "" {
		url = docURL
		source = stringField(child, "title")
		description = stringField(child, "desc")
		title = stringField(card, "prompt")
	} else if jumpURL := stringField(child, "jumpUrl"); jumpURL != "" {
		url = jumpURL
		source = stringField(child, "tag")
		description = stringField(child, "desc")
		title = stringField(card, "prompt")
	} else {
		return "", nil
	}

	return fmt.Sprintf("<u>%s</u>\n\n%s\n\nvia <a href=\"%s\">%s</a>", title, description, url, source), nil
}
