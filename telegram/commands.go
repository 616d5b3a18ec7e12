package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gliderlab/teleporter/bridge"
)

// pageSize bounds how many rows a paginated /link or /search listing shows
// per page.
const pageSize = 10

// command is a parsed Telegram bot command: its name (with leading slash,
// e.g. "/archive") and the raw text following it.
type command struct {
	name string
	args string
}

// extractCommand reports the bot command a message carries, if any.
func extractCommand(message *tgbotapi.Message) *command {
	if !message.IsCommand() {
		return nil
	}
	return &command{name: "/" + message.Command(), args: strings.TrimSpace(message.CommandArguments())}
}

// helpText is the /help command's response.
const helpText = "help - Show command list.\n" +
	"link - Manage remote chat link.\n" +
	"archive - Archive remote chat.\n" +
	"search - search messages."

// processCommand dispatches a parsed bot command, gating /archive, /link
// and /search to the chat kinds each one makes sense in.
func (c *Client) processCommand(ctx context.Context, message *tgbotapi.Message, cmd *command) error {
	if !isFromAdmin(c.bridge, message) {
		return nil
	}

	switch cmd.name {
	case "/help":
		return c.respondNew(message, helpText, false, nil)
	case "/archive":
		if message.Chat.IsSuperGroup() && message.Chat.IsForum {
			return c.listArchive(ctx, message)
		}
		return c.respondNew(message, "<b>Currently, archive is only supported in forum groups</b>", true, nil)
	case "/link":
		if message.Chat.IsGroup() || (message.Chat.IsSuperGroup() && !message.Chat.IsForum) {
			return c.processLink(ctx, message, cmd.args)
		}
		return c.respondNew(message, "<b>Currently, link creation is only supported in regular groups</b>", true, nil)
	case "/search":
		if message.Chat.IsSuperGroup() {
			return c.processSearch(ctx, message, cmd.args)
		}
		return c.respondNew(message, "<b>Currently, search is only supported in mega groups</b>", true, nil)
	default:
		return c.respondNew(message, "<b>Command not supported</b>", true, nil)
	}
}

// respondNew sends reply as a brand-new message (threaded into message's
// forum topic if any): the "source wasn't the bot's own message" half of
// the edit-or-respond choice.
func (c *Client) respondNew(message *tgbotapi.Message, text string, html bool, markup *tgbotapi.InlineKeyboardMarkup) error {
	reply := tgbotapi.NewMessage(message.Chat.ID, text)
	if html {
		reply.ParseMode = tgbotapi.ModeHTML
	}
	if message.MessageThreadID != 0 {
		reply.MessageThreadID = message.MessageThreadID
	}
	if markup != nil {
		reply.ReplyMarkup = markup
	}
	_, err := c.bot.Send(reply)
	return err
}

// editOrRespond edits message in place when it was sent by the bot itself
// (a listing being paged through or refreshed after a button press), else
// sends a fresh reply.
func (c *Client) editOrRespond(message *tgbotapi.Message, text string, html bool, markup *tgbotapi.InlineKeyboardMarkup) error {
	if message.From != nil && c.bot.Self.ID == message.From.ID {
		edit := tgbotapi.NewEditMessageText(message.Chat.ID, message.MessageID, text)
		if html {
			edit.ParseMode = tgbotapi.ModeHTML
		}
		edit.ReplyMarkup = markup
		_, err := c.bot.Send(edit)
		return err
	}
	return c.respondNew(message, text, html, markup)
}

// callbackData converts a CommandCallback to a Telegram callback_data
// string, via the bridge's hash-token cache: Bridge.PutCallback hashes the
// callback's fields, and this just base36-encodes the token to keep
// callback_data short.
func (c *Client) callbackData(cb bridge.CommandCallback) string {
	return strconv.FormatUint(c.bridge.PutCallback(cb), 36)
}

func inlineButton(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

// ---- /archive --------------------------------------------------------

// listArchive renders the endpoint picker for the /archive command: every
// endpoint with known remote chats, marked 🗃 and offered a delete button if
// an archive already binds that endpoint (in any chat), a create button
// otherwise.
func (c *Client) listArchive(ctx context.Context, message *tgbotapi.Message) error {
	archives, err := c.bridge.ListArchives()
	if err != nil {
		return fmt.Errorf("list archives: %w", err)
	}
	byEndpoint := make(map[string]int64, len(archives))
	content := "Archive: "
	for _, a := range archives {
		byEndpoint[a.Endpoint] = a.ID
		if a.TgChatID == message.Chat.ID {
			content += a.Endpoint
		}
	}

	endpoints, err := c.bridge.ListDistinctEndpoints()
	if err != nil {
		return fmt.Errorf("list endpoints: %w", err)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ep := range endpoints {
		if archiveID, archived := byEndpoint[ep]; archived {
			text := "🗃" + ep
			cb := bridge.CommandCallback{Category: "archive", Action: "delete", Data: strconv.FormatInt(archiveID, 10)}
			rows = append(rows, []tgbotapi.InlineKeyboardButton{inlineButton(text, c.callbackData(cb))})
		} else {
			cb := bridge.CommandCallback{Category: "archive", Action: "create", Data: ep}
			rows = append(rows, []tgbotapi.InlineKeyboardButton{inlineButton(ep, c.callbackData(cb))})
		}
	}
	cancelCb := bridge.CommandCallback{Category: "archive", Action: "cancel"}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{inlineButton("cancel", c.callbackData(cancelCb))})

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return c.editOrRespond(message, content, false, &markup)
}

func (c *Client) createArchive(ctx context.Context, message *tgbotapi.Message, cb bridge.CommandCallback) error {
	if _, err := c.bridge.CreateArchive(cb.Data, message.Chat.ID); err != nil {
		logWarnf("create archive %s: %v", cb.Data, err)
	}
	return c.listArchive(ctx, message)
}

func (c *Client) deleteArchive(ctx context.Context, message *tgbotapi.Message, cb bridge.CommandCallback) error {
	id, err := strconv.ParseInt(cb.Data, 10, 64)
	if err != nil {
		logWarnf("invalid archive id %q: %v", cb.Data, err)
		return c.listArchive(ctx, message)
	}
	if err := c.bridge.DeleteArchive(id); err != nil {
		logWarnf("delete archive %d: %v", id, err)
	}
	return c.listArchive(ctx, message)
}

// ---- /link ------------------------------------------------------------

func (c *Client) processLink(ctx context.Context, message *tgbotapi.Message, keyword string) error {
	return c.listLink(ctx, message, bridge.CommandCallback{Category: "link", Action: "list", Keyword: keyword})
}

func (c *Client) createLink(ctx context.Context, message *tgbotapi.Message, cb bridge.CommandCallback) error {
	remoteChatID, err := strconv.ParseInt(cb.Data, 10, 64)
	if err != nil {
		logWarnf("invalid remote chat id %q: %v", cb.Data, err)
		return c.listLink(ctx, message, cb)
	}
	kind := bridge.ChatKindFromTelegramType(message.Chat.Type)
	if err := c.bridge.CreateLink(kind, message.Chat.ID, remoteChatID); err != nil {
		logWarnf("create link: %v", err)
	}
	return c.listLink(ctx, message, cb)
}

func (c *Client) deleteLink(ctx context.Context, message *tgbotapi.Message, cb bridge.CommandCallback) error {
	id, err := strconv.ParseInt(cb.Data, 10, 64)
	if err != nil {
		logWarnf("invalid link id %q: %v", cb.Data, err)
		return c.listLink(ctx, message, cb)
	}
	if err := c.bridge.DeleteLink(id); err != nil {
		logWarnf("delete link %d: %v", id, err)
	}
	return c.listLink(ctx, message, cb)
}

func remoteChatIcon(chatType string, linked bool) string {
	icon := ""
	if linked {
		icon = "🔗"
	}
	if chatType == "private" {
		return icon + "👤"
	}
	return icon + "👥"
}

// listLink renders one page of the remote-chat picker for the /link
// command: every remote chat matching cb.Keyword, marked 🔗 and offered a
// delete button if already linked (to any Telegram chat), a create button
// otherwise, plus Prev/Next pagination and a Cancel button.
func (c *Client) listLink(ctx context.Context, message *tgbotapi.Message, cb bridge.CommandCallback) error {
	chats, total, err := c.bridge.ListRemoteChatsPage(cb.Keyword, pageSize, cb.Page*pageSize)
	if err != nil {
		return fmt.Errorf("list remote chats: %w", err)
	}
	if total == 0 {
		return c.editOrRespond(message, "<b>There are no remote chats avaiable</b>", true, nil)
	}

	content := "Link:"
	if link, err := c.bridge.FindLinkByTg(message.Chat.ID); err == nil && link != nil {
		if rc, err := c.bridge.GetRemoteChatByID(link.RemoteChatID); err == nil && rc != nil {
			content = fmt.Sprintf("Link: 🔗%s(%s) from (%s)", rc.Name, rc.TargetID, rc.Endpoint)
		}
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, rc := range chats {
		text := fmt.Sprintf("%s%s(%s) from (%s)", remoteChatIcon(string(rc.ChatType), rc.LinkID != 0), rc.Name, rc.TargetID, rc.Endpoint)
		var rowCb bridge.CommandCallback
		if rc.LinkID != 0 {
			rowCb = bridge.CommandCallback{Category: "link", Action: "delete", Page: cb.Page, Keyword: cb.Keyword, Data: strconv.FormatInt(rc.LinkID, 10)}
		} else {
			rowCb = bridge.CommandCallback{Category: "link", Action: "create", Page: cb.Page, Keyword: cb.Keyword, Data: strconv.FormatInt(rc.ID, 10)}
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{inlineButton(text, c.callbackData(rowCb))})
	}

	totalPages := (total + pageSize - 1) / pageSize
	var bottom []tgbotapi.InlineKeyboardButton
	if cb.Page > 0 {
		prevCb := bridge.CommandCallback{Category: "link", Action: "list", Page: cb.Page - 1, Keyword: cb.Keyword, Data: cb.Data}
		bottom = append(bottom, inlineButton("< Prev", c.callbackData(prevCb)))
	} else {
		bottom = append(bottom, inlineButton(" ", "noop"))
	}
	cancelCb := bridge.CommandCallback{Category: "link", Action: "cancel", Page: cb.Page, Keyword: cb.Keyword}
	bottom = append(bottom, inlineButton(fmt.Sprintf("%d/%d | Cancel", cb.Page+1, totalPages), c.callbackData(cancelCb)))
	if int64(cb.Page+1) < totalPages {
		nextCb := bridge.CommandCallback{Category: "link", Action: "list", Page: cb.Page + 1, Keyword: cb.Keyword, Data: cb.Data}
		bottom = append(bottom, inlineButton("Next >", c.callbackData(nextCb)))
	} else {
		bottom = append(bottom, inlineButton(" ", "noop"))
	}
	rows = append(rows, bottom)

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return c.editOrRespond(message, content, false, &markup)
}

// ---- /search ------------------------------------------------------------

func (c *Client) processSearch(ctx context.Context, message *tgbotapi.Message, keyword string) error {
	return c.listSearch(ctx, message, bridge.CommandCallback{Category: "search", Action: "list", Keyword: keyword})
}

// listSearch renders one page of full-text search hits, each as a t.me deep
// link with a blockquoted snippet, paginated by a "last seen message id"
// cursor (cb.Data) rather than an offset.
func (c *Client) listSearch(ctx context.Context, message *tgbotapi.Message, cb bridge.CommandCallback) error {
	if cb.Keyword == "" {
		return c.respondNew(message, "<b>Please input a keyword</b>", true, nil)
	}

	var topicID *int32
	if message.MessageThreadID != 0 {
		t := int32(message.MessageThreadID)
		topicID = &t
	}
	var afterID *int32
	if cb.Data != "" {
		if id, err := strconv.ParseInt(cb.Data, 10, 32); err == nil {
			v := int32(id)
			afterID = &v
		}
	}

	results, err := c.bridge.SearchMessages(message.Chat.ID, topicID, cb.Keyword, afterID, pageSize)
	if err != nil {
		return fmt.Errorf("search messages: %w", err)
	}

	var content strings.Builder
	chatID := telegramLinkChatID(message.Chat.ID)
	for _, r := range results {
		var link string
		if topicID != nil {
			link = fmt.Sprintf("https://t.me/c/%d/%d/%d", chatID, *topicID, r.MessageID)
		} else {
			link = fmt.Sprintf("https://t.me/c/%d/%d", chatID, r.MessageID)
		}
		fmt.Fprintf(&content, "%s\n<blockquote>[%s]\n%s</blockquote>", link,
			time.Unix(r.Timestamp, 0).Local().Format(time.RFC1123Z), r.Snippet)
	}
	text := content.String()
	if text == "" {
		text = "<blockquote>Have reached the edge of the world.</blockquote>"
	}

	var bottom []tgbotapi.InlineKeyboardButton
	cancelCb := bridge.CommandCallback{Category: "search", Action: "cancel", Page: cb.Page, Keyword: cb.Keyword}
	bottom = append(bottom, inlineButton("Cancel", c.callbackData(cancelCb)))
	if len(results) == pageSize {
		nextCb := bridge.CommandCallback{Category: "search", Action: "list", Page: cb.Page, Keyword: cb.Keyword,
			Data: strconv.FormatInt(int64(results[len(results)-1].MessageID), 10)}
		bottom = append(bottom, inlineButton("Next >", c.callbackData(nextCb)))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(bottom)
	return c.editOrRespond(message, text, true, &markup)
}

// telegramLinkChatID strips the -100 supergroup prefix a t.me/c/ deep link
// expects; the Bot API's chat id is the "-100"-prefixed form.
func telegramLinkChatID(chatID int64) int64 {
	const supergroupPrefix = "-100"
	s := strconv.FormatInt(chatID, 10)
	if strings.HasPrefix(s, supergroupPrefix) {
		trimmed, err := strconv.ParseInt(strings.TrimPrefix(s, supergroupPrefix), 10, 64)
		if err == nil {
			return trimmed
		}
	}
	return chatID
}

// ---- callback dispatch / cancel -----------------------------------------

// processCallback dispatches an inline-keyboard button press by the
// CommandCallback it resolves to.
func (c *Client) processCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	ack := tgbotapi.NewCallback(query.ID, "")
	_, _ = c.bot.Request(ack)

	token, err := strconv.ParseUint(query.Data, 36, 64)
	if err != nil {
		return nil
	}
	cb, ok := c.bridge.GetCallback(token)
	if !ok {
		return nil
	}
	message := query.Message

	switch cb.Category {
	case "archive":
		switch cb.Action {
		case "create":
			return c.createArchive(ctx, message, cb)
		case "delete":
			return c.deleteArchive(ctx, message, cb)
		case "cancel":
			return c.cancelList(message)
		}
	case "link":
		switch cb.Action {
		case "create":
			return c.createLink(ctx, message, cb)
		case "delete":
			return c.deleteLink(ctx, message, cb)
		case "list":
			return c.listLink(ctx, message, cb)
		case "cancel":
			return c.cancelList(message)
		}
	case "search":
		switch cb.Action {
		case "list":
			return c.listSearch(ctx, message, cb)
		case "cancel":
			return c.cancelList(message)
		}
	}
	return nil
}

// cancelList replaces a listing message with a strikethrough cancellation
// notice.
func (c *Client) cancelList(message *tgbotapi.Message) error {
	edit := tgbotapi.NewEditMessageText(message.Chat.ID, message.MessageID, "<del>Cancelled by the user</del>")
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := c.bot.Send(edit)
	return err
}
