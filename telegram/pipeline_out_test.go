package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gliderlab/teleporter/bridge"
	"github.com/gliderlab/teleporter/onebot/protocol"
	"github.com/gliderlab/teleporter/storage"
)

func TestIsServiceMessage(t *testing.T) {
	if isServiceMessage(&tgbotapi.Message{Text: "hello"}) {
		t.Fatal("expected plain text message to not be a service message")
	}
	if !isServiceMessage(&tgbotapi.Message{NewChatTitle: "New Title"}) {
		t.Fatal("expected a title change to be a service message")
	}
	if !isServiceMessage(&tgbotapi.Message{LeftChatMember: &tgbotapi.User{ID: 1}}) {
		t.Fatal("expected a member-left notice to be a service message")
	}
}

func TestIsFromAdmin(t *testing.T) {
	br := bridge.New(nil, nil, nil, nil, 42, "ffmpeg")

	if isFromAdmin(br, &tgbotapi.Message{From: &tgbotapi.User{ID: 42}}) != true {
		t.Fatal("expected message from the configured admin id to match")
	}
	if isFromAdmin(br, &tgbotapi.Message{From: &tgbotapi.User{ID: 99}}) {
		t.Fatal("expected message from a different user to not match")
	}
	if isFromAdmin(br, &tgbotapi.Message{}) {
		t.Fatal("expected a message with no sender to not match")
	}
}

func TestRenderSegments(t *testing.T) {
	segs := []protocol.Segment{
		protocol.NewText("hello "),
		protocol.NewText("world"),
	}
	if got := renderSegments(segs); got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestLocationSegmentQQ(t *testing.T) {
	rc := &storage.RemoteChat{Endpoint: "qq:10001"}
	seg, ok := locationSegment(rc, "Coffee House", "123 Main St", 31.23, 121.47)
	if !ok {
		t.Fatal("expected QQ location to resolve")
	}
	if seg.Type != protocol.SegJSON || seg.JSON == nil {
		t.Fatalf("expected a json segment, got %+v", seg)
	}
}

func TestLocationSegmentWeChat(t *testing.T) {
	rc := &storage.RemoteChat{Endpoint: "wechat:10002"}
	seg, ok := locationSegment(rc, "Coffee House", "123 Main St", 31.23, 121.47)
	if !ok {
		t.Fatal("expected WeChat location to resolve")
	}
	if seg.Type != protocol.SegLocation || seg.Location == nil {
		t.Fatalf("expected a location segment, got %+v", seg)
	}
	if seg.Location.Lat != 31.23 || seg.Location.Lon != 121.47 {
		t.Fatalf("unexpected coordinates: %+v", seg.Location)
	}
}

func TestLocationSegmentUnknownPlatform(t *testing.T) {
	rc := &storage.RemoteChat{Endpoint: "not-an-endpoint"}
	if _, ok := locationSegment(rc, "t", "c", 0, 0); ok {
		t.Fatal("expected unparseable endpoint to fail")
	}
}
