package protocol

import (
	"encoding/json"
	"fmt"
)

// PostType is the wire "post_type" discriminator of an Event.
type PostType string

const (
	PostMessage     PostType = "message"
	PostMessageSent PostType = "message_sent"
	PostMetaEvent   PostType = "meta_event"
	PostNotice      PostType = "notice"
	PostRequest     PostType = "request"
)

// Event is an inbound report from a remote OneBot adapter: a message, a
// lifecycle/heartbeat meta event, or a notice (recall, group membership,
// ...). Exactly one of the typed fields is populated, selected by PostType.
type Event struct {
	PostType PostType

	Message *MessageEvent
	Meta    *MetaEvent
	Notice  *NoticeEvent
	// Request events carry no payload in this protocol; RequestEvent is an
	// uninhabited variant in the source and is preserved as a no-op here.
}

// GetChatType reports which kind of remote chat this event concerns, used to
// build the RemoteChatKey for routing and the per-remote-chat lock.
func (e *Event) GetChatType() ChatType {
	switch e.PostType {
	case PostMessage, PostMessageSent:
		return e.Message.GetChatType()
	case PostNotice:
		return e.Notice.GetChatType()
	default:
		return ChatTypePrivate
	}
}

// GetChatID reports the remote chat target id this event concerns.
func (e *Event) GetChatID() string {
	switch e.PostType {
	case PostMessage, PostMessageSent:
		return e.Message.GetChatID()
	case PostMetaEvent:
		return "meta"
	case PostNotice:
		return e.Notice.GetChatID()
	default:
		return "request"
	}
}

type Sender struct {
	UserID   string  `json:"-"`
	Nickname string  `json:"nickname"`
	Card     *string `json:"card,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// DisplayName returns the group card name if set, else the nickname.
func (s Sender) DisplayName() string {
	if s.Card != nil && *s.Card != "" {
		return *s.Card
	}
	return s.Nickname
}

type Anonymous struct {
	ID   string `json:"-"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// MessageEvent is a single incoming chat message report.
type MessageEvent struct {
	Time        int64     `json:"time"`
	SelfID      string    `json:"-"`
	MessageType string    `json:"message_type"`
	SubType     string    `json:"sub_type"`
	MessageID   string    `json:"-"`
	GroupID     string    `json:"-"`
	HasGroupID  bool      `json:"-"`
	UserID      string    `json:"-"`
	TargetID    string    `json:"-"`
	HasTargetID bool      `json:"-"`
	Message     []Segment `json:"message"`
	Anonymous   *Anonymous `json:"anonymous,omitempty"`
	Sender      Sender    `json:"sender"`
}

// GetChatID resolves the remote chat id: the peer user in a private message
// (preferring target_id, the message's actual recipient, for message_sent
// echoes) or the group id in a group message.
func (m *MessageEvent) GetChatID() string {
	switch m.MessageType {
	case "private":
		if m.HasTargetID && m.TargetID != "" {
			return m.TargetID
		}
		return m.UserID
	case "group":
		return m.GroupID
	default:
		return ""
	}
}

func (m *MessageEvent) GetChatType() ChatType {
	if m.MessageType == "group" {
		return ChatTypeGroup
	}
	return ChatTypePrivate
}

// MetaEventType discriminates MetaEvent.
type MetaEventType string

const (
	MetaLifecycle MetaEventType = "lifecycle"
	MetaHeartbeat MetaEventType = "heartbeat"
)

type MetaEvent struct {
	Type      MetaEventType
	Lifecycle *LifecycleEvent
	Heartbeat *HeartbeatEvent
}

type LifecycleEvent struct {
	Time    int64  `json:"time"`
	SelfID  string `json:"-"`
	SubType string `json:"sub_type"` // enable/disable/connect/disconnect
}

type HeartbeatEvent struct {
	Time     int64           `json:"time"`
	SelfID   string          `json:"-"`
	Status   HeartbeatStatus `json:"status"`
	Interval int64           `json:"interval"`
}

type HeartbeatStatus struct {
	Online *bool `json:"online"`
	Good   bool  `json:"good"`
}

// NoticeType discriminates NoticeEvent.
type NoticeType string

const (
	NoticeFriendRecall NoticeType = "friend_recall"
	NoticeGroupRecall  NoticeType = "group_recall"
	NoticeNotify       NoticeType = "notify"
	NoticeGroupUpload  NoticeType = "group_upload"
	NoticeGroupAdmin   NoticeType = "group_admin"
	NoticeGroupDecr    NoticeType = "group_decrease"
	NoticeGroupIncr    NoticeType = "group_increase"
	NoticeGroupCard    NoticeType = "group_card"
)

type NoticeEvent struct {
	Type NoticeType

	FriendRecall *FriendRecallEvent
	GroupRecall  *GroupRecallEvent
	Notify       *NotifyEvent
	GroupUpload  *GroupUploadEvent
	GroupAdmin   *GroupAdminEvent
	GroupDecr    *GroupDecreaseEvent
	GroupIncr    *GroupIncreaseEvent
	GroupCard    *GroupCardEvent
}

func (n *NoticeEvent) GetChatType() ChatType {
	switch n.Type {
	case NoticeFriendRecall:
		return ChatTypePrivate
	case NoticeNotify:
		if n.Notify.HasGroupID && n.Notify.GroupID != "0" {
			return ChatTypeGroup
		}
		return ChatTypePrivate
	default:
		return ChatTypeGroup
	}
}

func (n *NoticeEvent) GetChatID() string {
	switch n.Type {
	case NoticeFriendRecall:
		return n.FriendRecall.UserID
	case NoticeGroupRecall:
		return n.GroupRecall.GroupID
	case NoticeNotify:
		if n.Notify.HasGroupID && n.Notify.GroupID != "0" {
			return n.Notify.GroupID
		}
		if n.Notify.HasUserID {
			return n.Notify.UserID
		}
		return "0"
	case NoticeGroupUpload:
		return n.GroupUpload.GroupID
	case NoticeGroupAdmin:
		return n.GroupAdmin.GroupID
	case NoticeGroupDecr:
		return n.GroupDecr.GroupID
	case NoticeGroupIncr:
		return n.GroupIncr.GroupID
	case NoticeGroupCard:
		return n.GroupCard.GroupID
	default:
		return ""
	}
}

type FriendRecallEvent struct {
	Time      int64  `json:"time"`
	SelfID    string `json:"-"`
	MessageID string `json:"-"`
	UserID    string `json:"-"`
}

type GroupRecallEvent struct {
	Time       int64  `json:"time"`
	SelfID     string `json:"-"`
	MessageID  string `json:"-"`
	UserID     string `json:"-"`
	GroupID    string `json:"-"`
	OperatorID string `json:"-"`
}

type NotifyEvent struct {
	Time       int64  `json:"time"`
	SelfID     string `json:"-"`
	SubType    string `json:"sub_type"`
	UserID     string `json:"-"`
	HasUserID  bool   `json:"-"`
	GroupID    string `json:"-"`
	HasGroupID bool   `json:"-"`
}

type GroupCardEvent struct {
	Time     int64  `json:"time"`
	SelfID   string `json:"-"`
	UserID   string `json:"-"`
	GroupID  string `json:"-"`
	CardOld  string `json:"card_old"`
	CardNew  string `json:"card_new"`
}

type GroupUploadEvent struct {
	Time    int64  `json:"time"`
	SelfID  string `json:"-"`
	UserID  string `json:"-"`
	GroupID string `json:"-"`
}

type GroupAdminEvent struct {
	Time    int64  `json:"time"`
	SelfID  string `json:"-"`
	GroupID string `json:"-"`
	UserID  string `json:"-"`
}

type GroupDecreaseEvent struct {
	Time    int64  `json:"time"`
	SelfID  string `json:"-"`
	GroupID string `json:"-"`
	UserID  string `json:"-"`
}

type GroupIncreaseEvent struct {
	Time    int64  `json:"time"`
	SelfID  string `json:"-"`
	GroupID string `json:"-"`
	UserID  string `json:"-"`
}

// --- JSON decoding ---
//
// Go has no native untagged/tagged sum types, so each layer of the Event
// tree hand-rolls UnmarshalJSON, inspecting the relevant tag field
// ("post_type", "meta_event_type", "notice_type") the way serde's
// `#[serde(tag = "...")]` does automatically.

func (e *Event) UnmarshalJSON(data []byte) error {
	var head struct {
		PostType PostType `json:"post_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	e.PostType = head.PostType
	switch head.PostType {
	case PostMessage, PostMessageSent:
		var raw rawMessageEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		e.Message = raw.toEvent()
	case PostMetaEvent:
		m, err := decodeMetaEvent(data)
		if err != nil {
			return err
		}
		e.Meta = m
	case PostNotice:
		n, err := decodeNoticeEvent(data)
		if err != nil {
			return err
		}
		e.Notice = n
	case PostRequest:
		// RequestEvent carries no fields in this protocol; nothing to decode.
	default:
		return fmt.Errorf("unknown post_type %q", head.PostType)
	}
	return nil
}

type rawMessageEvent struct {
	Time        int64      `json:"time"`
	SelfID      ID         `json:"self_id"`
	MessageType string     `json:"message_type"`
	SubType     string     `json:"sub_type"`
	MessageID   ID         `json:"message_id"`
	GroupID     OptionalID `json:"group_id"`
	UserID      ID         `json:"user_id"`
	TargetID    OptionalID `json:"target_id"`
	Message     []Segment  `json:"message"`
	Anonymous   *rawAnon   `json:"anonymous"`
	Sender      rawSender  `json:"sender"`
}

type rawAnon struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

type rawSender struct {
	UserID   ID      `json:"user_id"`
	Nickname string  `json:"nickname"`
	Card     *string `json:"card,omitempty"`
	Role     *string `json:"role,omitempty"`
}

func (r *rawMessageEvent) toEvent() *MessageEvent {
	m := &MessageEvent{
		Time:        r.Time,
		SelfID:      string(r.SelfID),
		MessageType: r.MessageType,
		SubType:     r.SubType,
		MessageID:   string(r.MessageID),
		GroupID:     r.GroupID.Value,
		HasGroupID:  r.GroupID.IsSet,
		UserID:      string(r.UserID),
		TargetID:    r.TargetID.Value,
		HasTargetID: r.TargetID.IsSet,
		Message:     r.Message,
		Sender: Sender{
			UserID:   string(r.Sender.UserID),
			Nickname: r.Sender.Nickname,
			Card:     r.Sender.Card,
			Role:     r.Sender.Role,
		},
	}
	if r.Anonymous != nil {
		m.Anonymous = &Anonymous{ID: string(r.Anonymous.ID), Name: r.Anonymous.Name, Flag: r.Anonymous.Flag}
	}
	return m
}

func decodeMetaEvent(data []byte) (*MetaEvent, error) {
	var head struct {
		MetaEventType MetaEventType `json:"meta_event_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.MetaEventType {
	case MetaLifecycle:
		var raw struct {
			Time    int64  `json:"time"`
			SelfID  ID     `json:"self_id"`
			SubType string `json:"sub_type"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &MetaEvent{
			Type:      MetaLifecycle,
			Lifecycle: &LifecycleEvent{Time: raw.Time, SelfID: string(raw.SelfID), SubType: raw.SubType},
		}, nil
	case MetaHeartbeat:
		var raw struct {
			Time     int64           `json:"time"`
			SelfID   ID              `json:"self_id"`
			Status   HeartbeatStatus `json:"status"`
			Interval int64           `json:"interval"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &MetaEvent{
			Type:      MetaHeartbeat,
			Heartbeat: &HeartbeatEvent{Time: raw.Time, SelfID: string(raw.SelfID), Status: raw.Status, Interval: raw.Interval},
		}, nil
	default:
		return nil, fmt.Errorf("unknown meta_event_type %q", head.MetaEventType)
	}
}

func decodeNoticeEvent(data []byte) (*NoticeEvent, error) {
	var head struct {
		NoticeType NoticeType `json:"notice_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	n := &NoticeEvent{Type: head.NoticeType}
	switch head.NoticeType {
	case NoticeFriendRecall:
		var raw struct {
			Time      int64 `json:"time"`
			SelfID    ID    `json:"self_id"`
			MessageID ID    `json:"message_id"`
			UserID    ID    `json:"user_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		n.FriendRecall = &FriendRecallEvent{Time: raw.Time, SelfID: string(raw.SelfID), MessageID: string(raw.MessageID), UserID: string(raw.UserID)}
	case NoticeGroupRecall:
		var raw struct {
			Time       int64 `json:"time"`
			SelfID     ID    `json:"self_id"`
			MessageID  ID    `json:"message_id"`
			UserID     ID    `json:"user_id"`
			GroupID    ID    `json:"group_id"`
			OperatorID ID    `json:"operator_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		n.GroupRecall = &GroupRecallEvent{Time: raw.Time, SelfID: string(raw.SelfID), MessageID: string(raw.MessageID), UserID: string(raw.UserID), GroupID: string(raw.GroupID), OperatorID: string(raw.OperatorID)}
	case NoticeNotify:
		var raw struct {
			Time    int64      `json:"time"`
			SelfID  ID         `json:"self_id"`
			SubType string     `json:"sub_type"`
			UserID  OptionalID `json:"user_id"`
			GroupID OptionalID `json:"group_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		n.Notify = &NotifyEvent{
			Time: raw.Time, SelfID: string(raw.SelfID), SubType: raw.SubType,
			UserID: raw.UserID.Value, HasUserID: raw.UserID.IsSet,
			GroupID: raw.GroupID.Value, HasGroupID: raw.GroupID.IsSet,
		}
	case NoticeGroupUpload:
		var raw struct {
			Time    int64 `json:"time"`
			SelfID  ID    `json:"self_id"`
			UserID  ID    `json:"user_id"`
			GroupID ID    `json:"group_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		n.GroupUpload = &GroupUploadEvent{Time: raw.Time, SelfID: string(raw.SelfID), UserID: string(raw.UserID), GroupID: string(raw.GroupID)}
	case NoticeGroupAdmin:
		var raw struct {
			Time    int64 `json:"time"`
			SelfID  ID    `json:"self_id"`
			GroupID ID    `json:"group_id"`
			UserID  ID    `json:"user_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		n.GroupAdmin = &GroupAdminEvent{Time: raw.Time, SelfID: string(raw.SelfID), GroupID: string(raw.GroupID), UserID: string(raw.UserID)}
	case NoticeGroupDecr:
		var raw struct {
			Time    int64 `json:"time"`
			SelfID  ID    `json:"self_id"`
			GroupID ID    `json:"group_id"`
			UserID  ID    `json:"user_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		n.GroupDecr = &GroupDecreaseEvent{Time: raw.Time, SelfID: string(raw.SelfID), GroupID: string(raw.GroupID), UserID: string(raw.UserID)}
	case NoticeGroupIncr:
		var raw struct {
			Time    int64 `json:"time"`
			SelfID  ID    `json:"self_id"`
			GroupID ID    `json:"group_id"`
			UserID  ID    `json:"user_id"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		n.GroupIncr = &GroupIncreaseEvent{Time: raw.Time, SelfID: string(raw.SelfID), GroupID: string(raw.GroupID), UserID: string(raw.UserID)}
	case NoticeGroupCard:
		var raw struct {
			Time    int64  `json:"time"`
			SelfID  ID     `json:"self_id"`
			UserID  ID     `json:"user_id"`
			GroupID ID     `json:"group_id"`
			CardOld string `json:"card_old"`
			CardNew string `json:"card_new"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		n.GroupCard = &GroupCardEvent{Time: raw.Time, SelfID: string(raw.SelfID), UserID: string(raw.UserID), GroupID: string(raw.GroupID), CardOld: raw.CardOld, CardNew: raw.CardNew}
	default:
		// Unknown/unhandled notice variants (matches GroupCard's own
		// treatment upstream): decoded but not acted on.
	}
	return n, nil
}
