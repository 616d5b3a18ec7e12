package protocol

import (
	"encoding/json"
	"testing"
)

func TestIDAcceptsNumberOrString(t *testing.T) {
	var fromNumber ID
	if err := json.Unmarshal([]byte(`123456`), &fromNumber); err != nil {
		t.Fatalf("unmarshal numeric id: %v", err)
	}
	if fromNumber != "123456" {
		t.Errorf("expected ID \"123456\", got %q", fromNumber)
	}

	var fromString ID
	if err := json.Unmarshal([]byte(`"123456"`), &fromString); err != nil {
		t.Fatalf("unmarshal string id: %v", err)
	}
	if fromString != "123456" {
		t.Errorf("expected ID \"123456\", got %q", fromString)
	}

	if fromNumber != fromString {
		t.Errorf("numeric and string forms of the same id should be equal, got %q vs %q", fromNumber, fromString)
	}
}

func TestOptionalIDNullVsSet(t *testing.T) {
	var o OptionalID
	if err := json.Unmarshal([]byte(`null`), &o); err != nil {
		t.Fatalf("unmarshal null id: %v", err)
	}
	if o.IsSet {
		t.Errorf("expected IsSet false for null id")
	}

	if err := json.Unmarshal([]byte(`789`), &o); err != nil {
		t.Fatalf("unmarshal numeric id: %v", err)
	}
	if !o.IsSet || o.Value != "789" {
		t.Errorf("expected IsSet true and value 789, got %+v", o)
	}
}

func TestEndpointRoundTrip(t *testing.T) {
	e, err := ParseEndpoint("qq:10001")
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}
	if e.Platform != PlatformQQ || e.ID != "10001" {
		t.Errorf("unexpected endpoint: %+v", e)
	}
	if e.String() != "qq:10001" {
		t.Errorf("expected \"qq:10001\", got %q", e.String())
	}
}

func TestParseEndpointInvalid(t *testing.T) {
	if _, err := ParseEndpoint("nope-no-colon"); err == nil {
		t.Errorf("expected error for endpoint without colon")
	}
	if _, err := ParseEndpoint("mastodon:1"); err == nil {
		t.Errorf("expected error for unknown platform")
	}
}

func TestSegmentTextRoundTrip(t *testing.T) {
	seg := NewText("hello world")
	data, err := json.Marshal(seg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Segment
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != SegText || decoded.Text == nil || decoded.Text.Text != "hello world" {
		t.Errorf("unexpected round trip result: %+v", decoded)
	}
}

func TestSegmentRenderFallbacks(t *testing.T) {
	cases := []struct {
		seg  Segment
		want string
	}{
		{NewFace("1"), "/[Face1]"},
		{NewAt("10001"), "@10001"},
		{Segment{Type: SegImage}, "[图片]"},
		{Segment{Type: SegRecord}, "[语音]"},
		{Segment{Type: SegShare, Share: &ShareData{Title: "t", URL: "u"}}, "[t,u]"},
	}
	for _, c := range cases {
		if got := c.seg.Render(); got != c.want {
			t.Errorf("Render() for %s = %q, want %q", c.seg.Type, got, c.want)
		}
	}
}

func TestMessageEventGetChatID(t *testing.T) {
	private := &MessageEvent{MessageType: "private", UserID: "5"}
	if private.GetChatID() != "5" {
		t.Errorf("expected chat id 5 for private message, got %q", private.GetChatID())
	}

	sent := &MessageEvent{MessageType: "private", UserID: "5", TargetID: "9", HasTargetID: true}
	if sent.GetChatID() != "9" {
		t.Errorf("expected chat id 9 for message_sent echo, got %q", sent.GetChatID())
	}

	group := &MessageEvent{MessageType: "group", GroupID: "77"}
	if group.GetChatID() != "77" || group.GetChatType() != ChatTypeGroup {
		t.Errorf("unexpected group chat resolution: %+v", group)
	}
}

func TestEventUnmarshalMessage(t *testing.T) {
	raw := []byte(`{
		"post_type": "message",
		"time": 1000,
		"self_id": 111,
		"message_type": "group",
		"sub_type": "normal",
		"message_id": 222,
		"group_id": 333,
		"user_id": 444,
		"message": [{"type":"text","data":{"text":"hi"}}],
		"sender": {"user_id": 444, "nickname": "bob"}
	}`)
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.PostType != PostMessage || ev.Message == nil {
		t.Fatalf("expected message event, got %+v", ev)
	}
	if ev.Message.GroupID != "333" || ev.Message.UserID != "444" {
		t.Errorf("unexpected ids: %+v", ev.Message)
	}
	if len(ev.Message.Message) != 1 || ev.Message.Message[0].Render() != "hi" {
		t.Errorf("unexpected message content: %+v", ev.Message.Message)
	}
	if ev.GetChatType() != ChatTypeGroup || ev.GetChatID() != "333" {
		t.Errorf("unexpected chat routing: type=%v id=%v", ev.GetChatType(), ev.GetChatID())
	}
}

func TestEventUnmarshalHeartbeat(t *testing.T) {
	raw := []byte(`{
		"post_type": "meta_event",
		"meta_event_type": "heartbeat",
		"time": 1000,
		"self_id": 1,
		"status": {"online": true, "good": true},
		"interval": 15000
	}`)
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.Meta == nil || ev.Meta.Type != MetaHeartbeat || ev.Meta.Heartbeat.Interval != 15000 {
		t.Errorf("unexpected heartbeat decode: %+v", ev.Meta)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	req := NewSendMsg(SendMsgParams{
		MessageType: "group",
		GroupID:     strPtr("1"),
		Message:     []Segment{NewText("hi")},
	})
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	var decoded Request
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if decoded.Action != ActionSendMsg || decoded.SendMsg == nil {
		t.Fatalf("unexpected decoded request: %+v", decoded)
	}
	if decoded.Echo != req.Echo {
		t.Errorf("expected echo %q, got %q", req.Echo, decoded.Echo)
	}
}

func TestNextEchoMonotonic(t *testing.T) {
	a := NextEcho()
	b := NextEcho()
	if a == b {
		t.Errorf("expected distinct echoes, got %q twice", a)
	}
}

func TestDecodeResponseUserInfo(t *testing.T) {
	raw := []byte(`{"echo":"1","status":"ok","retcode":0,"data":{"user_id":10001,"nickname":"alice"}}`)
	resp, err := DecodeResponse(raw, ActionGetStrangerInfo)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Kind != DataUserInfo || resp.Data.UserInfo == nil {
		t.Fatalf("expected user_info data, got %+v", resp.Data)
	}
	if resp.Data.UserInfo.UserID != "10001" || resp.Data.UserInfo.DisplayName() != "alice" {
		t.Errorf("unexpected user info: %+v", resp.Data.UserInfo)
	}
}

func TestDecodeResponseFailedSkipsData(t *testing.T) {
	raw := []byte(`{"echo":"2","status":"failed","retcode":100,"data":null}`)
	resp, err := DecodeResponse(raw, ActionGetStrangerInfo)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusFailed || resp.Data.UserInfo != nil {
		t.Errorf("expected empty data on failed response, got %+v", resp)
	}
}

func TestPayloadSniffsEvent(t *testing.T) {
	raw := []byte(`{"post_type":"meta_event","meta_event_type":"lifecycle","time":1,"self_id":1,"sub_type":"connect"}`)
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Kind != PayloadEvent || p.Event == nil {
		t.Fatalf("expected event payload, got %+v", p)
	}
}

func TestPayloadSniffsResponse(t *testing.T) {
	raw := []byte(`{"echo":"1","status":"ok","retcode":0,"data":null}`)
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Kind != PayloadResponse {
		t.Fatalf("expected response payload, got %+v", p)
	}
}

func TestPayloadSniffsRequest(t *testing.T) {
	raw := []byte(`{"action":"get_login_info","echo":"1"}`)
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Kind != PayloadRequest || p.Request == nil || p.Request.Action != ActionGetLoginInfo {
		t.Fatalf("expected request payload, got %+v", p)
	}
}

func strPtr(s string) *string { return &s }
