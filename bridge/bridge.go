// Package bridge is the relay's central façade: it owns the Telegram
// client, the sqlite-backed storage, the OneBot API dispatch, and the
// caches and rate limiter that sit between them. The Telegram- and
// remote-facing pipelines (package telegram) call into a Bridge instead of
// reaching into storage or the OneBot server directly.
package bridge

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gliderlab/teleporter/onebot"
	"github.com/gliderlab/teleporter/onebot/protocol"
	"github.com/gliderlab/teleporter/storage"
)

// CommandCallback is the expansion of an inline-keyboard button press:
// Telegram's callback_data is capped at 64 bytes, too small to carry a full
// command plus arguments, so the bridge hands out a short hash token and
// keeps the real payload in callbackCache. Category/Action select the
// handler ("archive"/"create", "link"/"delete", ...); Page and Keyword
// carry a paginated list's cursor; Data is the action's single argument
// (an endpoint string, a row id, ...).
type CommandCallback struct {
	Category string
	Action   string
	Page     int
	Keyword  string
	Data     string
}

// Bridge wires the Telegram client, OneBot server, and sqlite storage
// together, with caches to avoid re-resolving the same remote chat or
// Telegram chat on every message.
type Bridge struct {
	tg      *tgbotapi.BotAPI
	server  *onebot.Server
	db      *storage.Storage
	media   *MediaCache
	limiter *chatRateLimiter

	ffmpegPath string
	adminID    int64

	remoteChatMu    sync.Mutex
	remoteChatCache map[protocol.RemoteChatKey]*storage.RemoteChat

	tgChatMu    sync.Mutex
	tgChatCache map[int64]*tgbotapi.Chat

	callbackMu    sync.Mutex
	callbackCache map[uint64]CommandCallback

	search Searcher
}

// New builds a Bridge. It does not start the Telegram update loop or the
// OneBot server; those are started independently by cmd/teleporter.
func New(tg *tgbotapi.BotAPI, server *onebot.Server, db *storage.Storage, media *MediaCache, adminID int64, ffmpegPath string) *Bridge {
	return &Bridge{
		tg:              tg,
		server:          server,
		db:              db,
		media:           media,
		limiter:         newChatRateLimiter(),
		ffmpegPath:      ffmpegPath,
		adminID:         adminID,
		remoteChatCache: make(map[protocol.RemoteChatKey]*storage.RemoteChat),
		tgChatCache:     make(map[int64]*tgbotapi.Chat),
		callbackCache:   make(map[uint64]CommandCallback),
	}
}

func (b *Bridge) AdminID() int64 { return b.adminID }

// ---- typed OneBot API wrappers -------------------------------------------
//
// Each wraps Server.CallAPI, checks the response status, and type-asserts
// the ResponseData field the action is known to carry. These replace the
// original's onebot_api!/onebot_api_no_resp! declarative macros: Go has no
// macro system, so the expansion is written out by hand once per action.

func checkStatus(resp *protocol.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusOK {
		return fmt.Errorf("onebot call failed: status=%s retcode=%d", resp.Status, resp.Retcode)
	}
	return nil
}

func (b *Bridge) GetLoginInfo(ctx context.Context, endpoint protocol.Endpoint) (*protocol.UserInfo, error) {
	resp, err := b.server.CallAPI(ctx, endpoint, protocol.NewGetLoginInfo())
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	if resp.Data.UserInfo == nil {
		return nil, fmt.Errorf("get_login_info: missing user_info in response")
	}
	return resp.Data.UserInfo, nil
}

func (b *Bridge) GetStrangerInfo(ctx context.Context, endpoint protocol.Endpoint, userID string, noCache bool) (*protocol.UserInfo, error) {
	req := protocol.NewGetStrangerInfo(protocol.GetStrangerInfoParams{UserID: protocol.ID(userID), NoCache: noCache})
	resp, err := b.server.CallAPI(ctx, endpoint, req)
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	if resp.Data.UserInfo == nil {
		return nil, fmt.Errorf("get_stranger_info: missing user_info in response")
	}
	return resp.Data.UserInfo, nil
}

func (b *Bridge) GetGroupInfo(ctx context.Context, endpoint protocol.Endpoint, groupID string, noCache bool) (*protocol.GroupInfo, error) {
	req := protocol.NewGetGroupInfo(protocol.GetGroupInfoParams{GroupID: protocol.ID(groupID), NoCache: noCache})
	resp, err := b.server.CallAPI(ctx, endpoint, req)
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	if resp.Data.GroupInfo == nil {
		return nil, fmt.Errorf("get_group_info: missing group_info in response")
	}
	return resp.Data.GroupInfo, nil
}

func (b *Bridge) GetFriendList(ctx context.Context, endpoint protocol.Endpoint) ([]protocol.UserInfo, error) {
	resp, err := b.server.CallAPI(ctx, endpoint, protocol.NewGetFriendList())
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	return resp.Data.FriendList, nil
}

func (b *Bridge) GetGroupList(ctx context.Context, endpoint protocol.Endpoint) ([]protocol.GroupInfo, error) {
	resp, err := b.server.CallAPI(ctx, endpoint, protocol.NewGetGroupList())
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	return resp.Data.GroupList, nil
}

func (b *Bridge) GetGroupMemberList(ctx context.Context, endpoint protocol.Endpoint, groupID string) ([]protocol.MemberInfo, error) {
	req := protocol.NewGetGroupMemberList(protocol.GetGroupMemberListParams{GroupID: protocol.ID(groupID)})
	resp, err := b.server.CallAPI(ctx, endpoint, req)
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	return resp.Data.GroupMemberList, nil
}

func (b *Bridge) GetGroupMemberInfo(ctx context.Context, endpoint protocol.Endpoint, groupID, userID string, noCache bool) (*protocol.MemberInfo, error) {
	req := protocol.NewGetGroupMemberInfo(protocol.GetGroupMemberInfoParams{
		GroupID: protocol.ID(groupID), UserID: protocol.ID(userID), NoCache: noCache,
	})
	resp, err := b.server.CallAPI(ctx, endpoint, req)
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	if resp.Data.MemberInfo == nil {
		return nil, fmt.Errorf("get_group_member_info: missing member_info in response")
	}
	return resp.Data.MemberInfo, nil
}

func (b *Bridge) GetRecord(ctx context.Context, endpoint protocol.Endpoint, file, outFormat string) (*protocol.FileInfo, error) {
	req := protocol.NewGetRecord(protocol.GetRecordParams{File: file, OutFormat: outFormat})
	resp, err := b.server.CallAPI(ctx, endpoint, req)
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	if resp.Data.FileInfo == nil {
		return nil, fmt.Errorf("get_record: missing file info in response")
	}
	return resp.Data.FileInfo, nil
}

func (b *Bridge) GetImage(ctx context.Context, endpoint protocol.Endpoint, file, fileID string, emojiID *string) (*protocol.FileInfo, error) {
	req := protocol.NewGetImage(protocol.GetImageParams{File: file, FileID: fileID, EmojiID: emojiID})
	resp, err := b.server.CallAPI(ctx, endpoint, req)
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	if resp.Data.FileInfo == nil {
		return nil, fmt.Errorf("get_image: missing file info in response")
	}
	return resp.Data.FileInfo, nil
}

func (b *Bridge) GetFile(ctx context.Context, endpoint protocol.Endpoint, file, fileID string) (*protocol.FileInfo, error) {
	req := protocol.NewGetFile(protocol.GetFileParams{File: file, FileID: fileID})
	resp, err := b.server.CallAPI(ctx, endpoint, req)
	if err := checkStatus(resp, err); err != nil {
		return nil, err
	}
	if resp.Data.FileInfo == nil {
		return nil, fmt.Errorf("get_file: missing file info in response")
	}
	return resp.Data.FileInfo, nil
}

func (b *Bridge) SendMsg(ctx context.Context, endpoint protocol.Endpoint, params protocol.SendMsgParams) (protocol.ID, error) {
	resp, err := b.server.CallAPI(ctx, endpoint, protocol.NewSendMsg(params))
	if err := checkStatus(resp, err); err != nil {
		return "", err
	}
	if resp.Data.MessageID == nil {
		return "", fmt.Errorf("send_msg: missing message_id in response")
	}
	return resp.Data.MessageID.MessageID, nil
}

func (b *Bridge) DeleteMsg(ctx context.Context, endpoint protocol.Endpoint, messageID protocol.ID) error {
	req := protocol.NewDeleteMsg(protocol.DeleteMsgParams{MessageID: messageID})
	resp, err := b.server.CallAPI(ctx, endpoint, req)
	return checkStatus(resp, err)
}

// ---- remote chat bookkeeping ---------------------------------------------

// SaveRemotePrivateChat persists (or refreshes) a 1:1 remote chat's name
// from freshly fetched user info.
func (b *Bridge) SaveRemotePrivateChat(endpoint protocol.Endpoint, info *protocol.UserInfo) (*storage.RemoteChat, error) {
	return b.db.UpsertRemoteChat(endpoint.String(), protocol.ChatTypePrivate, string(info.UserID), info.DisplayName())
}

// SaveRemoteGroupChat persists (or refreshes) a group remote chat's name
// from freshly fetched group info.
func (b *Bridge) SaveRemoteGroupChat(endpoint protocol.Endpoint, info *protocol.GroupInfo) (*storage.RemoteChat, error) {
	return b.db.UpsertRemoteChat(endpoint.String(), protocol.ChatTypeGroup, string(info.GroupID), info.DisplayName())
}

// UpdateRemotePrivateChat and UpdateRemoteGroupChat exist as named aliases
// for SaveRemote*Chat's upsert-by-natural-key semantics, kept distinct for
// callers that conceptually mean "refresh" rather than "create".
func (b *Bridge) UpdateRemotePrivateChat(endpoint protocol.Endpoint, info *protocol.UserInfo) (*storage.RemoteChat, error) {
	return b.SaveRemotePrivateChat(endpoint, info)
}

func (b *Bridge) UpdateRemoteGroupChat(endpoint protocol.Endpoint, info *protocol.GroupInfo) (*storage.RemoteChat, error) {
	return b.SaveRemoteGroupChat(endpoint, info)
}

// GetRemoteChat resolves a remote chat by key: cache, then the database,
// then (for a private chat) a fresh get_stranger_info call or (for a
// group) get_group_info, persisting and caching whatever is fetched.
func (b *Bridge) GetRemoteChat(ctx context.Context, key protocol.RemoteChatKey) (*storage.RemoteChat, error) {
	b.remoteChatMu.Lock()
	if rc, ok := b.remoteChatCache[key]; ok {
		b.remoteChatMu.Unlock()
		return rc, nil
	}
	b.remoteChatMu.Unlock()

	rc, err := b.db.GetRemoteChat(key.Endpoint.String(), key.ChatType, key.TargetID)
	if err != nil {
		return nil, fmt.Errorf("get remote chat: %w", err)
	}
	if rc == nil {
		rc, err = b.fetchAndSaveRemoteChat(ctx, key)
		if err != nil {
			return nil, err
		}
	}

	b.remoteChatMu.Lock()
	b.remoteChatCache[key] = rc
	b.remoteChatMu.Unlock()
	return rc, nil
}

func (b *Bridge) fetchAndSaveRemoteChat(ctx context.Context, key protocol.RemoteChatKey) (*storage.RemoteChat, error) {
	switch key.ChatType {
	case protocol.ChatTypePrivate:
		info, err := b.GetStrangerInfo(ctx, key.Endpoint, key.TargetID, true)
		if err != nil {
			return nil, fmt.Errorf("fetch stranger info for %s: %w", key, err)
		}
		return b.SaveRemotePrivateChat(key.Endpoint, info)
	case protocol.ChatTypeGroup:
		info, err := b.GetGroupInfo(ctx, key.Endpoint, key.TargetID, true)
		if err != nil {
			return nil, fmt.Errorf("fetch group info for %s: %w", key, err)
		}
		return b.SaveRemoteGroupChat(key.Endpoint, info)
	default:
		return nil, fmt.Errorf("unknown chat type %q", key.ChatType)
	}
}

// GetTgChat resolves a Telegram chat handle by id, caching the result. The
// Bot API resolves chats by plain id, so the cache key is simply the chat
// id.
func (b *Bridge) GetTgChat(chatID int64) (*tgbotapi.Chat, error) {
	b.tgChatMu.Lock()
	if c, ok := b.tgChatCache[chatID]; ok {
		b.tgChatMu.Unlock()
		return c, nil
	}
	b.tgChatMu.Unlock()

	chat, err := b.tg.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		return nil, fmt.Errorf("resolve telegram chat %d: %w", chatID, err)
	}

	b.tgChatMu.Lock()
	b.tgChatCache[chatID] = &chat
	b.tgChatMu.Unlock()
	return &chat, nil
}

// ---- archive / topic / link / message bookkeeping ------------------------
//
// Thin wrappers over storage, kept on Bridge so telegram/ only ever talks
// to one façade rather than reaching into both storage and the OneBot
// server directly.

func (b *Bridge) FindArchiveByEndpoint(endpoint string) (*storage.Archive, error) {
	return b.db.FindArchiveByEndpoint(endpoint)
}

func (b *Bridge) CreateArchive(endpoint string, tgChatID int64) (int64, error) {
	return b.db.CreateArchive(endpoint, tgChatID)
}

func (b *Bridge) DeleteArchive(id int64) error {
	return b.db.DeleteArchive(id)
}

func (b *Bridge) FindRemoteChatByArchiveTopic(tgChatID int64, tgTopicID int32) (*storage.RemoteChat, error) {
	return b.db.FindRemoteChatByArchiveTopic(tgChatID, tgTopicID)
}

// topicName renders the forum topic title for a remote chat: a person icon
// for private chats, a group icon otherwise.
func topicName(rc *storage.RemoteChat) string {
	if rc.ChatType == protocol.ChatTypePrivate {
		return "👤 " + rc.Name
	}
	return "👥 " + rc.Name
}

// GetOrCreateTopic returns the forum topic id for remoteChat within the
// archive hosted at tgChatID, creating the Telegram-side topic (and
// persisting the binding) on first use.
func (b *Bridge) GetOrCreateTopic(archiveID, tgChatID int64, rc *storage.RemoteChat) (int32, error) {
	existing, err := b.db.GetOrCreateTopic(archiveID, rc.ID)
	if err != nil {
		return 0, fmt.Errorf("look up topic: %w", err)
	}
	if existing != 0 {
		return existing, nil
	}

	topic, err := b.tg.CreateForumTopic(tgbotapi.NewCreateForumTopic(tgChatID, topicName(rc)))
	if err != nil {
		return 0, fmt.Errorf("create forum topic: %w", err)
	}
	tgTopicID := int32(topic.MessageThreadID)

	if err := b.db.CreateTopic(archiveID, tgTopicID, rc.ID); err != nil {
		return 0, fmt.Errorf("persist topic: %w", err)
	}
	return tgTopicID, nil
}

func (b *Bridge) CreateLink(kind ChatKind, tgChatID, remoteChatID int64) error {
	return b.db.CreateLink(int32(kind), tgChatID, remoteChatID)
}

func (b *Bridge) DeleteLink(id int64) error {
	return b.db.DeleteLink(id)
}

func (b *Bridge) FindLinkByRemote(remoteChatID int64) (*storage.Link, error) {
	return b.db.FindLinkByRemote(remoteChatID)
}

func (b *Bridge) FindLinkByTg(tgChatID int64) (*storage.Link, error) {
	return b.db.FindLinkByTg(tgChatID)
}

func (b *Bridge) FindMessageByRemote(remoteChatID int64, remoteMsgID string) (*storage.Message, error) {
	return b.db.FindMessageByRemote(remoteChatID, remoteMsgID)
}

func (b *Bridge) FindMessageByTg(tgChatID int64, tgMsgID int32) (*storage.Message, error) {
	return b.db.FindMessageByTg(tgChatID, tgMsgID)
}

// ListArchives returns every configured archive, for the /archive command.
func (b *Bridge) ListArchives() ([]storage.Archive, error) {
	return b.db.ListArchives()
}

// ListDistinctEndpoints returns every endpoint with at least one known
// remote chat, for the /archive command's endpoint picker.
func (b *Bridge) ListDistinctEndpoints() ([]string, error) {
	return b.db.ListDistinctEndpoints()
}

// GetRemoteChatByID looks up a remote chat by id, for rendering the /link
// command's "currently linked" header.
func (b *Bridge) GetRemoteChatByID(id int64) (*storage.RemoteChat, error) {
	return b.db.GetRemoteChatByID(id)
}

// ListRemoteChatsPage returns one page of remote chats (optionally filtered
// by a substring of their name), each annotated with its link id if linked,
// plus the total number of matching rows.
func (b *Bridge) ListRemoteChatsPage(keyword string, limit, offset int) ([]storage.RemoteChatWithLink, int64, error) {
	return b.db.ListRemoteChatsPage(keyword, limit, offset)
}

// SearchResult is one hit from a full-text message search: the Telegram
// message id it was relayed as, its original send time, and a matched
// snippet of its content.
type SearchResult struct {
	MessageID int32
	Timestamp int64
	Snippet   string
}

// Searcher indexes and queries relayed message content. The concrete
// implementation (package search) is wired in with SetSearcher; until then,
// SearchMessages reports an error rather than silently returning no results.
type Searcher interface {
	Search(tgChatID int64, topicID *int32, keyword string, afterID *int32, limit int) ([]SearchResult, error)
}

// SetSearcher installs the full-text search backend. Called once during
// startup wiring.
func (b *Bridge) SetSearcher(s Searcher) { b.search = s }

// SearchMessages runs a full-text query scoped to one Telegram chat (and,
// inside an archive, one forum topic), returning at most limit hits with
// Telegram message id below afterID (the previous page's last hit) when
// afterID is set, newest first.
func (b *Bridge) SearchMessages(tgChatID int64, topicID *int32, keyword string, afterID *int32, limit int) ([]SearchResult, error) {
	if b.search == nil {
		return nil, fmt.Errorf("search backend not configured")
	}
	return b.search.Search(tgChatID, topicID, keyword, afterID, limit)
}

// SaveMessageByRemote records a freshly relayed message's cross-platform
// mapping.
func (b *Bridge) SaveMessageByRemote(tgChatID int64, tgMsgID int32, remoteChatID int64, remoteMsgID, content string) (int64, error) {
	return b.db.SaveMessage(tgChatID, tgMsgID, remoteChatID, remoteMsgID, content)
}

func (b *Bridge) UpdateDeliveryStatus(id int64, status protocol.DeliveryStatus) error {
	return b.db.UpdateDeliveryStatus(id, status)
}

// ---- command callback cache -----------------------------------------------

// PutCallback stores cb and returns a stable, short hash token suitable for
// an inline keyboard button's callback_data (Telegram caps that field at 64
// bytes, far too small for an arbitrary command plus arguments).
func (b *Bridge) PutCallback(cb CommandCallback) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s\x00%s", cb.Category, cb.Action, cb.Page, cb.Keyword, cb.Data)
	token := h.Sum64()

	b.callbackMu.Lock()
	b.callbackCache[token] = cb
	b.callbackMu.Unlock()
	return token
}

// GetCallback resolves a previously stored callback token.
func (b *Bridge) GetCallback(token uint64) (CommandCallback, bool) {
	b.callbackMu.Lock()
	defer b.callbackMu.Unlock()
	cb, ok := b.callbackCache[token]
	return cb, ok
}

// ---- outbound Telegram sends -----------------------------------------------

// SendTelegramMessage sends text into chatID (optionally into a forum
// topic), rate limited per chat to stay under Telegram's flood limits.
func (b *Bridge) SendTelegramMessage(ctx context.Context, chatID int64, topicID int32, text string) (*tgbotapi.Message, error) {
	if err := b.limiter.Wait(ctx, chatID); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if topicID != 0 {
		msg.MessageThreadID = int(topicID)
	}
	sent, err := b.tg.Send(msg)
	if err != nil {
		return nil, fmt.Errorf("send telegram message: %w", err)
	}
	return &sent, nil
}

// SendTelegramAlbum sends a pre-built media group (photos/videos relayed
// together, e.g. a QQ forwarded image set), rate limited like
// SendTelegramMessage.
func (b *Bridge) SendTelegramAlbum(ctx context.Context, chatID int64, topicID int32, media []interface{}) ([]tgbotapi.Message, error) {
	if err := b.limiter.Wait(ctx, chatID); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	group := tgbotapi.NewMediaGroup(chatID, media)
	if topicID != 0 {
		group.MessageThreadID = int(topicID)
	}
	sent, err := b.tg.SendMediaGroup(group)
	if err != nil {
		return nil, fmt.Errorf("send telegram album: %w", err)
	}
	return sent, nil
}

// telegramAttachment is anything go-telegram-bot-api's Send accepts; the
// caller sets caption, parse mode, reply-to and forum topic on the concrete
// config before passing it in.
type telegramAttachment interface {
	tgbotapi.Chattable
}

func (b *Bridge) sendAttachment(ctx context.Context, chatID int64, topicID int32, msg telegramAttachment) (*tgbotapi.Message, error) {
	if err := b.limiter.Wait(ctx, chatID); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	sent, err := b.tg.Send(msg)
	if err != nil {
		return nil, fmt.Errorf("send telegram attachment: %w", err)
	}
	return &sent, nil
}

// SendTelegramPhoto sends a single image, with an optional reply-to and HTML
// caption.
func (b *Bridge) SendTelegramPhoto(ctx context.Context, chatID int64, topicID int32, replyTo int32, data []byte, filename, caption string) (*tgbotapi.Message, error) {
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	if topicID != 0 {
		msg.MessageThreadID = int(topicID)
	}
	if replyTo != 0 {
		msg.ReplyToMessageID = int(replyTo)
	}
	return b.sendAttachment(ctx, chatID, topicID, msg)
}

// SendTelegramDocument sends an arbitrary file attachment (also used for the
// sticker and generic-document relay paths).
func (b *Bridge) SendTelegramDocument(ctx context.Context, chatID int64, topicID int32, replyTo int32, data []byte, filename, caption string) (*tgbotapi.Message, error) {
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	if topicID != 0 {
		msg.MessageThreadID = int(topicID)
	}
	if replyTo != 0 {
		msg.ReplyToMessageID = int(replyTo)
	}
	return b.sendAttachment(ctx, chatID, topicID, msg)
}

// SendTelegramVoice sends a voice message.
func (b *Bridge) SendTelegramVoice(ctx context.Context, chatID int64, topicID int32, replyTo int32, data []byte, filename, caption string) (*tgbotapi.Message, error) {
	msg := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	if topicID != 0 {
		msg.MessageThreadID = int(topicID)
	}
	if replyTo != 0 {
		msg.ReplyToMessageID = int(replyTo)
	}
	return b.sendAttachment(ctx, chatID, topicID, msg)
}

// SendTelegramVideo sends a video attachment.
func (b *Bridge) SendTelegramVideo(ctx context.Context, chatID int64, topicID int32, replyTo int32, data []byte, filename, caption string) (*tgbotapi.Message, error) {
	msg := tgbotapi.NewVideo(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	if topicID != 0 {
		msg.MessageThreadID = int(topicID)
	}
	if replyTo != 0 {
		msg.ReplyToMessageID = int(replyTo)
	}
	return b.sendAttachment(ctx, chatID, topicID, msg)
}

// SendTelegramVenue sends a shared location as a Telegram venue (title and
// address carry the QQ/WeChat location card's own fields).
func (b *Bridge) SendTelegramVenue(ctx context.Context, chatID int64, topicID int32, replyTo int32, title, address string, lat, lon float64) (*tgbotapi.Message, error) {
	msg := tgbotapi.NewVenue(chatID, title, address, lat, lon)
	if topicID != 0 {
		msg.MessageThreadID = int(topicID)
	}
	if replyTo != 0 {
		msg.ReplyToMessageID = int(replyTo)
	}
	return b.sendAttachment(ctx, chatID, topicID, msg)
}
