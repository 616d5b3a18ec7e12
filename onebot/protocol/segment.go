package protocol

import (
	"encoding/json"
	"fmt"
)

// SegmentType is the wire "type" discriminator of a Segment.
type SegmentType string

const (
	SegText       SegmentType = "text"
	SegFace       SegmentType = "face"
	SegMarketFace SegmentType = "mface"
	SegImage      SegmentType = "image"
	SegRecord     SegmentType = "record"
	SegVideo      SegmentType = "video"
	SegFile       SegmentType = "file"
	SegAt         SegmentType = "at"
	SegRps        SegmentType = "rps"
	SegDice       SegmentType = "dice"
	SegShake      SegmentType = "shake"
	SegPoke       SegmentType = "poke"
	SegAnonymous  SegmentType = "anonymous"
	SegShare      SegmentType = "share"
	SegContact    SegmentType = "contact"
	SegLocation   SegmentType = "location"
	SegMusic      SegmentType = "music"
	SegReply      SegmentType = "reply"
	SegForward    SegmentType = "forward"
	SegNode       SegmentType = "node"
	SegXML        SegmentType = "xml"
	SegJSON       SegmentType = "json"
)

// Segment is one piece of an OneBot message. Exactly one of the typed fields
// below is populated, selected by Type — the wire shape is a tagged union
// (`{"type": ..., "data": {...}}`), and a flat struct with a discriminator
// is the idiomatic Go replacement for a closed sum type here.
type Segment struct {
	Type SegmentType

	Text       *TextData
	Face       *FaceData
	MarketFace *MarketFaceData
	Image      *ImageData
	Record     *RecordData
	Video      *VideoData
	File       *FileData
	At         *AtData
	Poke       *PokeData
	Share      *ShareData
	Contact    *ContactData
	Location   *LocationData
	Music      *MusicData
	Reply      *ReplyData
	Forward    *ForwardData
	Node       *NodeData
	XML        *XMLData
	JSON       *JSONData
	// Rps, Dice, Shake, Anonymous carry no data.
}

type TextData struct {
	Text string `json:"text"`
}

type FaceData struct {
	ID string `json:"id"`
}

type MarketFaceData struct {
	EmojiID string  `json:"emoji_id"`
	URL     *string `json:"url,omitempty"`
}

type ImageData struct {
	File    string  `json:"file"`
	Name    *string `json:"name,omitempty"`
	URL     *string `json:"url,omitempty"`
	Summary *string `json:"summary,omitempty"`
	EmojiID *string `json:"emoji_id,omitempty"`
}

type RecordData struct {
	File string  `json:"file"`
	Name *string `json:"name,omitempty"`
}

type VideoData struct {
	File string  `json:"file"`
	Name *string `json:"name,omitempty"`
	URL  *string `json:"url,omitempty"`
}

type FileData struct {
	File string  `json:"file"`
	Name *string `json:"name,omitempty"`
}

type AtData struct {
	ID string `json:"qq"`
}

type PokeData struct {
	Type string  `json:"type"`
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
}

type ShareData struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content *string `json:"content,omitempty"`
	Image   *string `json:"image,omitempty"`
}

type ContactData struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type LocationData struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

type MusicData struct {
	Type    string  `json:"type"`
	ID      *string `json:"id,omitempty"`
	URL     *string `json:"url,omitempty"`
	Audio   *string `json:"audio,omitempty"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Image   *string `json:"image,omitempty"`
}

type ReplyData struct {
	ID string `json:"id"`
}

type ForwardData struct {
	ID string `json:"id"`
}

type NodeData struct {
	ID       *string    `json:"id,omitempty"`
	UserID   *string    `json:"user_id,omitempty"`
	Nickname *string    `json:"nickname,omitempty"`
	Content  []Segment  `json:"content,omitempty"`
}

type XMLData struct {
	Data string `json:"data"`
}

type JSONData struct {
	Data string `json:"data"`
}

type rawSegment struct {
	Type SegmentType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON emits the {"type":...,"data":...} wire shape.
func (s Segment) MarshalJSON() ([]byte, error) {
	var data any
	switch s.Type {
	case SegText:
		data = s.Text
	case SegFace:
		data = s.Face
	case SegMarketFace:
		data = s.MarketFace
	case SegImage:
		data = s.Image
	case SegRecord:
		data = s.Record
	case SegVideo:
		data = s.Video
	case SegFile:
		data = s.File
	case SegAt:
		data = s.At
	case SegRps, SegDice, SegShake, SegAnonymous:
		data = struct{}{}
	case SegPoke:
		data = s.Poke
	case SegShare:
		data = s.Share
	case SegContact:
		data = s.Contact
	case SegLocation:
		data = s.Location
	case SegMusic:
		data = s.Music
	case SegReply:
		data = s.Reply
	case SegForward:
		data = s.Forward
	case SegNode:
		data = s.Node
	case SegXML:
		data = s.XML
	case SegJSON:
		data = s.JSON
	default:
		return nil, fmt.Errorf("unknown segment type %q", s.Type)
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rawSegment{Type: s.Type, Data: dataJSON})
}

// UnmarshalJSON decodes the {"type":...,"data":...} wire shape.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw rawSegment
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Type = raw.Type
	unmarshalInto := func(v any) error {
		if len(raw.Data) == 0 {
			return nil
		}
		return json.Unmarshal(raw.Data, v)
	}
	switch raw.Type {
	case SegText:
		s.Text = &TextData{}
		return unmarshalInto(s.Text)
	case SegFace:
		s.Face = &FaceData{}
		return unmarshalInto(s.Face)
	case SegMarketFace:
		s.MarketFace = &MarketFaceData{}
		return unmarshalInto(s.MarketFace)
	case SegImage:
		s.Image = &ImageData{}
		return unmarshalInto(s.Image)
	case SegRecord:
		s.Record = &RecordData{}
		return unmarshalInto(s.Record)
	case SegVideo:
		s.Video = &VideoData{}
		return unmarshalInto(s.Video)
	case SegFile:
		s.File = &FileData{}
		return unmarshalInto(s.File)
	case SegAt:
		s.At = &AtData{}
		return unmarshalInto(s.At)
	case SegRps, SegDice, SegShake, SegAnonymous:
		return nil
	case SegPoke:
		s.Poke = &PokeData{}
		return unmarshalInto(s.Poke)
	case SegShare:
		s.Share = &ShareData{}
		return unmarshalInto(s.Share)
	case SegContact:
		s.Contact = &ContactData{}
		return unmarshalInto(s.Contact)
	case SegLocation:
		s.Location = &LocationData{}
		return unmarshalInto(s.Location)
	case SegMusic:
		s.Music = &MusicData{}
		return unmarshalInto(s.Music)
	case SegReply:
		s.Reply = &ReplyData{}
		return unmarshalInto(s.Reply)
	case SegForward:
		s.Forward = &ForwardData{}
		return unmarshalInto(s.Forward)
	case SegNode:
		s.Node = &NodeData{}
		return unmarshalInto(s.Node)
	case SegXML:
		s.XML = &XMLData{}
		return unmarshalInto(s.XML)
	case SegJSON:
		s.JSON = &JSONData{}
		return unmarshalInto(s.JSON)
	default:
		return fmt.Errorf("unknown segment type %q", raw.Type)
	}
}

// Render produces the plain-text fallback for a segment, used when building
// the textual content of a relayed message.
func (s Segment) Render() string {
	switch s.Type {
	case SegText:
		return s.Text.Text
	case SegFace:
		return "/[Face" + s.Face.ID + "]"
	case SegMarketFace:
		return "[表情]"
	case SegImage:
		return "[图片]"
	case SegRecord:
		return "[语音]"
	case SegVideo:
		return "[视频]"
	case SegFile:
		return "[文件]"
	case SegAt:
		return "@" + s.At.ID
	case SegRps:
		return "[猜拳]"
	case SegDice:
		return "[掷骰子]"
	case SegShake:
		return "[窗口抖动]"
	case SegPoke:
		return "[戳一戳]"
	case SegAnonymous:
		return "[匿名]"
	case SegShare:
		return "[" + s.Share.Title + "," + s.Share.URL + "]"
	case SegContact:
		return "[推荐]"
	case SegLocation:
		return "[位置]"
	case SegMusic:
		return "[音乐]"
	case SegReply:
		return "[回复]"
	case SegForward:
		return "[合并转发]"
	case SegNode:
		return "[合并转发节点]"
	case SegXML:
		return "[XML]"
	case SegJSON:
		return "[JSON]"
	default:
		return ""
	}
}

// Segment builder helpers: plain constructor functions, one per segment
// type.

func NewText(text string) Segment         { return Segment{Type: SegText, Text: &TextData{Text: text}} }
func NewFace(id string) Segment           { return Segment{Type: SegFace, Face: &FaceData{ID: id}} }
func NewAt(id string) Segment             { return Segment{Type: SegAt, At: &AtData{ID: id}} }
func NewReply(id string) Segment          { return Segment{Type: SegReply, Reply: &ReplyData{ID: id}} }
func NewImage(file string) Segment        { return Segment{Type: SegImage, Image: &ImageData{File: file}} }
func NewRecord(file string) Segment       { return Segment{Type: SegRecord, Record: &RecordData{File: file}} }
func NewVideo(file string) Segment        { return Segment{Type: SegVideo, Video: &VideoData{File: file}} }
func NewFile(file string) Segment         { return Segment{Type: SegFile, File: &FileData{File: file}} }
func NewLocation(lat, lon float64) Segment {
	return Segment{Type: SegLocation, Location: &LocationData{Lat: lat, Lon: lon}}
}
