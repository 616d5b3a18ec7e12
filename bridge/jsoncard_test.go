package bridge

import "testing"

func TestExtractLocationFromJSON(t *testing.T) {
	raw := `{"meta":{"Location.Search":{"name":"Coffee House","address":"123 Main St","lat":"31.23","lng":"121.47"}}}`

	title, address, lat, lon, err := ExtractLocationFromJSON(raw)
	if err != nil {
		t.Fatalf("ExtractLocationFromJSON: %v", err)
	}
	if title != "Coffee House" || address != "123 Main St" {
		t.Fatalf("unexpected title/address: %q/%q", title, address)
	}
	if lat != 31.23 || lon != 121.47 {
		t.Fatalf("unexpected coordinates: %v/%v", lat, lon)
	}
}

func TestExtractLocationFromJSONMissingMeta(t *testing.T) {
	if _, _, _, _, err := ExtractLocationFromJSON(`{"prompt":"share"}`); err == nil {
		t.Fatal("expected error for missing meta entry")
	}
}

func TestExtractLocationFromJSONBadCoordinate(t *testing.T) {
	raw := `{"meta":{"Location.Search":{"name":"x","address":"y","lat":"not-a-number","lng":"1"}}}`
	if _, _, _, _, err := ExtractLocationFromJSON(raw); err == nil {
		t.Fatal("expected error for unparseable latitude")
	}
}

func TestExtractShareFromJSONQQDoc(t *testing.T) {
	raw := `{"prompt":"[分享]网页","meta":{"news":{"title":"Example Site","desc":"a description","qqdocurl":"https://example.com/a"}}}`

	html, err := ExtractShareFromJSON(raw)
	if err != nil {
		t.Fatalf("ExtractShareFromJSON: %v", err)
	}
	want := "<u>[分享]网页</u>\n\na description\n\nvia <a href=\"https://example.com/a\">Example Site</a>"
	if html != want {
		t.Fatalf("unexpected html:\ngot  %q\nwant %q", html, want)
	}
}

func TestExtractShareFromJSONJumpURL(t *testing.T) {
	raw := `{"prompt":"[卡片]消息","meta":{"detail_1":{"tag":"Some App","desc":"a card","jumpUrl":"https://example.com/b"}}}`

	html, err := ExtractShareFromJSON(raw)
	if err != nil {
		t.Fatalf("ExtractShareFromJSON: %v", err)
	}
	want := "<u>[卡片]消息</u>\n\na card\n\nvia <a href=\"https://example.com/b\">Some App</a>"
	if html != want {
		t.Fatalf("unexpected html:\ngot  %q\nwant %q", html, want)
	}
}

func TestExtractShareFromJSONUnknownShape(t *testing.T) {
	html, err := ExtractShareFromJSON(`{"meta":{"other":{"foo":"bar"}}}`)
	if err != nil {
		t.Fatalf("ExtractShareFromJSON: %v", err)
	}
	if html != "" {
		t.Fatalf("expected empty result for unrecognized card shape, got %q", html)
	}
}

func TestExtractShareFromJSONInvalid(t *testing.T) {
	if _, err := ExtractShareFromJSON("not json"); err == nil {
		t.Fatal("expected decode error")
	}
}
