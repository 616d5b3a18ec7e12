package protocol

import (
	"encoding/json"
	"fmt"
)

// Status is the wire "status" field of a Response.
type Status string

const (
	StatusOK     Status = "ok"
	StatusAsync  Status = "async"
	StatusFailed Status = "failed"
)

// Response is a reply to a previously issued Request, correlated by Echo.
type Response struct {
	Echo    string
	Status  Status
	Retcode int32
	Data    ResponseData
}

// ResponseDataKind discriminates the untagged ResponseData union; unlike the
// wire format (which carries no explicit tag and relies on shape-matching),
// the decoder infers the kind from the Request.Action that produced it.
type ResponseDataKind string

const (
	DataNone            ResponseDataKind = "none"
	DataMessageID       ResponseDataKind = "message_id"
	DataMemberInfo      ResponseDataKind = "member_info"
	DataUserInfo        ResponseDataKind = "user_info"
	DataGroupInfo       ResponseDataKind = "group_info"
	DataGroupMemberList ResponseDataKind = "group_member_list"
	DataFriendList      ResponseDataKind = "friend_list"
	DataGroupList       ResponseDataKind = "group_list"
	DataFileInfo        ResponseDataKind = "file_info"
)

type ResponseData struct {
	Kind ResponseDataKind

	MessageID       *MessageIDData
	MemberInfo      *MemberInfo
	UserInfo        *UserInfo
	GroupInfo       *GroupInfo
	GroupMemberList []MemberInfo
	FriendList      []UserInfo
	GroupList       []GroupInfo
	FileInfo        *FileInfo
}

type MessageIDData struct {
	MessageID ID `json:"message_id"`
}

type UserInfo struct {
	UserID   ID      `json:"user_id"`
	Nickname string  `json:"nickname"`
	Remark   *string `json:"remark,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// DisplayName returns the remark if set, else the nickname.
func (u UserInfo) DisplayName() string {
	if u.Remark != nil && *u.Remark != "" {
		return *u.Remark
	}
	return u.Nickname
}

type GroupInfo struct {
	GroupID   ID      `json:"group_id"`
	GroupName string  `json:"group_name"`
	Avatar    *string `json:"avatar,omitempty"`
}

func (g GroupInfo) DisplayName() string { return g.GroupName }

type MemberInfo struct {
	UserID   ID      `json:"user_id"`
	GroupID  ID      `json:"group_id"`
	Nickname string  `json:"nickname"`
	Card     *string `json:"card,omitempty"`
	Role     string  `json:"role"`
	Avatar   *string `json:"avatar,omitempty"`
}

func (m MemberInfo) DisplayName() string {
	if m.Card != nil && *m.Card != "" {
		return *m.Card
	}
	return m.Nickname
}

type FileInfo struct {
	File     string  `json:"file"`
	FileName string  `json:"file_name"`
	FileSize *string `json:"file_size,omitempty"`
	URL      *string `json:"url,omitempty"`
	Base64   *string `json:"base64,omitempty"`
}

// kindForAction reports which ResponseData shape a successful response to
// the given action carries, since the wire data is untagged.
func kindForAction(a Action) ResponseDataKind {
	switch a {
	case ActionGetLoginInfo, ActionGetStrangerInfo:
		return DataUserInfo
	case ActionGetGroupInfo:
		return DataGroupInfo
	case ActionGetFriendList:
		return DataFriendList
	case ActionGetGroupList:
		return DataGroupList
	case ActionGetGroupMemberList:
		return DataGroupMemberList
	case ActionGetGroupMemberInfo:
		return DataMemberInfo
	case ActionGetRecord, ActionGetImage, ActionGetFile:
		return DataFileInfo
	case ActionDeleteMsg:
		return DataNone
	case ActionSendMsg:
		return DataMessageID
	default:
		return DataNone
	}
}

type rawResponse struct {
	Echo    string          `json:"echo"`
	Status  Status          `json:"status"`
	Retcode int32           `json:"retcode"`
	Data    json.RawMessage `json:"data"`
}

// DecodeResponse parses a Response whose data shape is determined by the
// action that produced the echo it carries, matching the wire's untagged
// response data by inspecting which request is pending for this echo.
func DecodeResponse(data []byte, forAction Action) (*Response, error) {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	resp := &Response{Echo: raw.Echo, Status: raw.Status, Retcode: raw.Retcode}
	kind := kindForAction(forAction)
	resp.Data.Kind = kind
	if raw.Status != StatusOK || len(raw.Data) == 0 || string(raw.Data) == "null" {
		return resp, nil
	}
	switch kind {
	case DataNone:
	case DataMessageID:
		resp.Data.MessageID = &MessageIDData{}
		if err := json.Unmarshal(raw.Data, resp.Data.MessageID); err != nil {
			return nil, fmt.Errorf("decode message_id response: %w", err)
		}
	case DataMemberInfo:
		resp.Data.MemberInfo = &MemberInfo{}
		if err := json.Unmarshal(raw.Data, resp.Data.MemberInfo); err != nil {
			return nil, fmt.Errorf("decode member_info response: %w", err)
		}
	case DataUserInfo:
		resp.Data.UserInfo = &UserInfo{}
		if err := json.Unmarshal(raw.Data, resp.Data.UserInfo); err != nil {
			return nil, fmt.Errorf("decode user_info response: %w", err)
		}
	case DataGroupInfo:
		resp.Data.GroupInfo = &GroupInfo{}
		if err := json.Unmarshal(raw.Data, resp.Data.GroupInfo); err != nil {
			return nil, fmt.Errorf("decode group_info response: %w", err)
		}
	case DataGroupMemberList:
		if err := json.Unmarshal(raw.Data, &resp.Data.GroupMemberList); err != nil {
			return nil, fmt.Errorf("decode group_member_list response: %w", err)
		}
	case DataFriendList:
		if err := json.Unmarshal(raw.Data, &resp.Data.FriendList); err != nil {
			return nil, fmt.Errorf("decode friend_list response: %w", err)
		}
	case DataGroupList:
		if err := json.Unmarshal(raw.Data, &resp.Data.GroupList); err != nil {
			return nil, fmt.Errorf("decode group_list response: %w", err)
		}
	case DataFileInfo:
		resp.Data.FileInfo = &FileInfo{}
		if err := json.Unmarshal(raw.Data, resp.Data.FileInfo); err != nil {
			return nil, fmt.Errorf("decode file_info response: %w", err)
		}
	}
	return resp, nil
}

// PeekEcho extracts just the echo field, used by the server to look up the
// pending request's action before fully decoding the typed response.
func PeekEcho(data []byte) (string, error) {
	var head struct {
		Echo string `json:"echo"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	return head.Echo, nil
}
