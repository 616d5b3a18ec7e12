package protocol

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Action is the wire "action" discriminator of a Request.
type Action string

const (
	ActionGetLoginInfo       Action = "get_login_info"
	ActionGetStrangerInfo    Action = "get_stranger_info"
	ActionGetGroupInfo       Action = "get_group_info"
	ActionGetFriendList      Action = "get_friend_list"
	ActionGetGroupList       Action = "get_group_list"
	ActionGetGroupMemberList Action = "get_group_member_list"
	ActionGetGroupMemberInfo Action = "get_group_member_info"
	ActionGetRecord          Action = "get_record"
	ActionGetImage           Action = "get_image"
	ActionGetFile            Action = "get_file"
	ActionDeleteMsg          Action = "delete_msg"
	ActionSendMsg            Action = "send_msg"
)

var echoCounter atomic.Uint64

// NextEcho returns a process-unique, monotonically increasing echo token,
// starting at 1. Uniqueness across the process lifetime is required for
// response correlation in the OneBot server's pending-response table.
func NextEcho() string {
	return fmt.Sprintf("%d", echoCounter.Add(1))
}

// Request is an outbound OneBot API call. Exactly one Params* field is
// populated for actions that take parameters; parameterless actions leave
// all of them nil.
type Request struct {
	Action Action
	Echo   string

	StrangerInfo    *GetStrangerInfoParams
	GroupInfo       *GetGroupInfoParams
	GroupMemberList *GetGroupMemberListParams
	GroupMemberInfo *GetGroupMemberInfoParams
	Record          *GetRecordParams
	Image           *GetImageParams
	File            *GetFileParams
	DeleteMsg       *DeleteMsgParams
	SendMsg         *SendMsgParams
}

type GetStrangerInfoParams struct {
	UserID  ID   `json:"user_id"`
	NoCache bool `json:"no_cache"`
}

type GetGroupInfoParams struct {
	GroupID ID   `json:"group_id"`
	NoCache bool `json:"no_cache"`
}

type GetGroupMemberListParams struct {
	GroupID ID `json:"group_id"`
}

type GetGroupMemberInfoParams struct {
	GroupID ID   `json:"group_id"`
	UserID  ID   `json:"user_id"`
	NoCache bool `json:"no_cache"`
}

type GetRecordParams struct {
	File      string `json:"file"`
	OutFormat string `json:"out_format"`
}

type GetImageParams struct {
	File    string  `json:"file"`
	FileID  string  `json:"file_id"`
	EmojiID *string `json:"emoji_id,omitempty"`
}

type GetFileParams struct {
	File   string `json:"file"`
	FileID string `json:"file_id"`
}

type DeleteMsgParams struct {
	MessageID ID `json:"message_id"`
}

type SendMsgParams struct {
	MessageType string    `json:"message_type"`
	UserID      *string   `json:"user_id,omitempty"`
	GroupID     *string   `json:"group_id,omitempty"`
	Message     []Segment `json:"message"`
}

// Request builders, one per action, each stamping a fresh echo.

func NewGetLoginInfo() Request { return Request{Action: ActionGetLoginInfo, Echo: NextEcho()} }
func NewGetFriendList() Request { return Request{Action: ActionGetFriendList, Echo: NextEcho()} }
func NewGetGroupList() Request  { return Request{Action: ActionGetGroupList, Echo: NextEcho()} }

func NewGetStrangerInfo(p GetStrangerInfoParams) Request {
	return Request{Action: ActionGetStrangerInfo, Echo: NextEcho(), StrangerInfo: &p}
}

func NewGetGroupInfo(p GetGroupInfoParams) Request {
	return Request{Action: ActionGetGroupInfo, Echo: NextEcho(), GroupInfo: &p}
}

func NewGetGroupMemberList(p GetGroupMemberListParams) Request {
	return Request{Action: ActionGetGroupMemberList, Echo: NextEcho(), GroupMemberList: &p}
}

func NewGetGroupMemberInfo(p GetGroupMemberInfoParams) Request {
	return Request{Action: ActionGetGroupMemberInfo, Echo: NextEcho(), GroupMemberInfo: &p}
}

func NewGetRecord(p GetRecordParams) Request {
	return Request{Action: ActionGetRecord, Echo: NextEcho(), Record: &p}
}

func NewGetImage(p GetImageParams) Request {
	return Request{Action: ActionGetImage, Echo: NextEcho(), Image: &p}
}

func NewGetFile(p GetFileParams) Request {
	return Request{Action: ActionGetFile, Echo: NextEcho(), File: &p}
}

func NewDeleteMsg(p DeleteMsgParams) Request {
	return Request{Action: ActionDeleteMsg, Echo: NextEcho(), DeleteMsg: &p}
}

func NewSendMsg(p SendMsgParams) Request {
	return Request{Action: ActionSendMsg, Echo: NextEcho(), SendMsg: &p}
}

type rawRequest struct {
	Action Action          `json:"action"`
	Echo   string          `json:"echo"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	var params any
	switch r.Action {
	case ActionGetLoginInfo, ActionGetFriendList, ActionGetGroupList:
		params = nil
	case ActionGetStrangerInfo:
		params = r.StrangerInfo
	case ActionGetGroupInfo:
		params = r.GroupInfo
	case ActionGetGroupMemberList:
		params = r.GroupMemberList
	case ActionGetGroupMemberInfo:
		params = r.GroupMemberInfo
	case ActionGetRecord:
		params = r.Record
	case ActionGetImage:
		params = r.Image
	case ActionGetFile:
		params = r.File
	case ActionDeleteMsg:
		params = r.DeleteMsg
	case ActionSendMsg:
		params = r.SendMsg
	default:
		return nil, fmt.Errorf("unknown action %q", r.Action)
	}
	raw := rawRequest{Action: r.Action, Echo: r.Echo}
	if params != nil {
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		raw.Params = paramsJSON
	}
	return json.Marshal(raw)
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Action, r.Echo = raw.Action, raw.Echo
	decode := func(v any) error {
		if len(raw.Params) == 0 {
			return nil
		}
		return json.Unmarshal(raw.Params, v)
	}
	switch raw.Action {
	case ActionGetLoginInfo, ActionGetFriendList, ActionGetGroupList:
		return nil
	case ActionGetStrangerInfo:
		r.StrangerInfo = &GetStrangerInfoParams{}
		return decode(r.StrangerInfo)
	case ActionGetGroupInfo:
		r.GroupInfo = &GetGroupInfoParams{}
		return decode(r.GroupInfo)
	case ActionGetGroupMemberList:
		r.GroupMemberList = &GetGroupMemberListParams{}
		return decode(r.GroupMemberList)
	case ActionGetGroupMemberInfo:
		r.GroupMemberInfo = &GetGroupMemberInfoParams{}
		return decode(r.GroupMemberInfo)
	case ActionGetRecord:
		r.Record = &GetRecordParams{}
		return decode(r.Record)
	case ActionGetImage:
		r.Image = &GetImageParams{}
		return decode(r.Image)
	case ActionGetFile:
		r.File = &GetFileParams{}
		return decode(r.File)
	case ActionDeleteMsg:
		r.DeleteMsg = &DeleteMsgParams{}
		return decode(r.DeleteMsg)
	case ActionSendMsg:
		r.SendMsg = &SendMsgParams{}
		return decode(r.SendMsg)
	default:
		return fmt.Errorf("unknown action %q", raw.Action)
	}
}
