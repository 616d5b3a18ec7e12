package bridge

import (
	"testing"

	"github.com/gliderlab/teleporter/onebot/protocol"
)

func strPtr(s string) *string { return &s }

func TestIsSticker(t *testing.T) {
	if !IsSticker(protocol.Segment{Type: protocol.SegMarketFace}) {
		t.Fatal("expected mface to always be a sticker")
	}

	emojiImage := protocol.Segment{Type: protocol.SegImage, Image: &protocol.ImageData{File: "f", EmojiID: strPtr("123")}}
	if !IsSticker(emojiImage) {
		t.Fatal("expected image with emoji_id to be a sticker")
	}

	summaryImage := protocol.Segment{Type: protocol.SegImage, Image: &protocol.ImageData{File: "f", Summary: strPtr("[动画表情]")}}
	if !IsSticker(summaryImage) {
		t.Fatal("expected image with [动画表情] summary to be a sticker")
	}

	plainImage := protocol.Segment{Type: protocol.SegImage, Image: &protocol.ImageData{File: "f"}}
	if IsSticker(plainImage) {
		t.Fatal("expected plain image to not be a sticker")
	}

	if IsSticker(protocol.Segment{Type: protocol.SegText}) {
		t.Fatal("expected text segment to never be a sticker")
	}
}

func TestImageSize(t *testing.T) {
	// 1x1 transparent PNG.
	png := []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
		0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
		0x42, 0x60, 0x82,
	}
	w, h := ImageSize(png, "image/png")
	if w != 1 || h != 1 {
		t.Fatalf("expected 1x1, got %dx%d", w, h)
	}

	if w, h := ImageSize(png, "application/octet-stream"); w != 0 || h != 0 {
		t.Fatalf("expected 0x0 for non-image mime, got %dx%d", w, h)
	}

	if w, h := ImageSize([]byte("not an image"), "image/png"); w != 0 || h != 0 {
		t.Fatalf("expected 0x0 for undecodable data, got %dx%d", w, h)
	}
}

func TestSniffMime(t *testing.T) {
	if got := sniffMime([]byte("%PDF-1.4")); got != "application/pdf" {
		t.Fatalf("got %q", got)
	}
}

func TestQQLocationCard(t *testing.T) {
	card := QQLocationCard("Coffee House", "123 Main St", 31.23, 121.47)
	title, address, lat, lon, err := ExtractLocationFromJSON(card)
	if err != nil {
		t.Fatalf("ExtractLocationFromJSON round trip: %v", err)
	}
	if title != "Coffee House" || address != "123 Main St" {
		t.Fatalf("unexpected title/address: %q/%q", title, address)
	}
	if lat != 31.23 || lon != 121.47 {
		t.Fatalf("unexpected coordinates: %v/%v", lat, lon)
	}
}

func TestSegmentCacheKey(t *testing.T) {
	cases := []struct {
		seg        protocol.Segment
		wantKey    string
		wantCached bool
	}{
		{protocol.Segment{Type: protocol.SegImage, Image: &protocol.ImageData{File: "img1"}}, "img1", true},
		{protocol.Segment{Type: protocol.SegImage, Image: &protocol.ImageData{}}, "", false},
		{protocol.Segment{Type: protocol.SegMarketFace, MarketFace: &protocol.MarketFaceData{EmojiID: "e1"}}, "e1", true},
		{protocol.Segment{Type: protocol.SegRecord, Record: &protocol.RecordData{File: "r1"}}, "r1", true},
		{protocol.Segment{Type: protocol.SegVideo, Video: &protocol.VideoData{File: "v1"}}, "v1", true},
		{protocol.Segment{Type: protocol.SegFile, File: &protocol.FileData{File: "f1"}}, "f1", true},
		{protocol.Segment{Type: protocol.SegText, Text: &protocol.TextData{Text: "hi"}}, "", false},
	}
	for _, c := range cases {
		key, cached := segmentCacheKey(c.seg)
		if key != c.wantKey || cached != c.wantCached {
			t.Errorf("segmentCacheKey(%v) = %q, %v; want %q, %v", c.seg.Type, key, cached, c.wantKey, c.wantCached)
		}
	}
}

func TestEncodeDecodeCachedSegment(t *testing.T) {
	original := &DownloadedSegment{
		Data:     []byte{0x00, 0x01, 0xff, 0xfe, 'h', 'i'},
		Filename: "sticker.webp",
		MimeType: "image/webp",
	}
	encoded, err := encodeCachedSegment(original)
	if err != nil {
		t.Fatalf("encodeCachedSegment: %v", err)
	}
	decoded, err := decodeCachedSegment(encoded)
	if err != nil {
		t.Fatalf("decodeCachedSegment: %v", err)
	}
	if decoded.Filename != original.Filename || decoded.MimeType != original.MimeType {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, original)
	}
	if string(decoded.Data) != string(original.Data) {
		t.Fatalf("data mismatch: got %v want %v", decoded.Data, original.Data)
	}
}
