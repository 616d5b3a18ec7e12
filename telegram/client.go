// Package telegram is the relay's Telegram-facing half: it drives the Bot
// API long-poll loop, consumes OneBot events from the onebot server, and
// dispatches both directions through a bridge.Bridge. It corresponds to the
// original's telegram::telegram_pylon plus telegram::bridge's process_*
// dispatch functions.
package telegram

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gliderlab/teleporter/bridge"
	"github.com/gliderlab/teleporter/onebot"
	"github.com/gliderlab/teleporter/search"
)

// updatePollTimeout is how long GetUpdatesChan's long poll waits for a batch
// before returning empty, matching the Bot API's own recommended ceiling.
const updatePollTimeout = 60

// Client drives both directions of the relay: Telegram updates in one
// goroutine, OneBot events in another. Each direction serializes work per
// key (Telegram chat id, remote chat key) through a keyedMutex so messages
// in different chats relay concurrently while messages in the same chat
// never race each other out of order.
type Client struct {
	bot    *tgbotapi.BotAPI
	server *onebot.Server
	bridge *bridge.Bridge

	remoteLocks *keyedMutex[string]
	tgLocks     *keyedMutex[int64]

	indexer *search.Index
}

// SetIndexer installs the full-text search index that every message relayed
// from a remote adapter out to Telegram gets recorded into. Optional: a nil
// indexer silently skips indexing, matching Bridge.SearchMessages's own
// "no backend configured" guard when EnableSearch is off.
func (c *Client) SetIndexer(idx *search.Index) { c.indexer = idx }

// New builds a Client. It does not start either poll loop; call Run for that.
func New(bot *tgbotapi.BotAPI, server *onebot.Server, br *bridge.Bridge) *Client {
	return &Client{
		bot:         bot,
		server:      server,
		bridge:      br,
		remoteLocks: newKeyedMutex[string](),
		tgLocks:     newKeyedMutex[int64](),
	}
}

// Run drives the Telegram update loop and the OneBot event loop concurrently
// until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	done := make(chan struct{}, 2)
	go func() {
		c.runTelegramLoop(ctx)
		done <- struct{}{}
	}()
	go func() {
		c.runOnebotLoop(ctx)
		done <- struct{}{}
	}()
	<-done
	<-done
}

// runTelegramLoop consumes Bot API updates, handing each off to its own
// goroutine serialized on the update's chat id.
func (c *Client) runTelegramLoop(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updatePollTimeout
	updates := c.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.dispatchUpdate(ctx, update)
		}
	}
}

func (c *Client) dispatchUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		message := update.Message
		go c.tgLocks.withLock(message.Chat.ID, func() {
			if command := extractCommand(message); command != nil {
				if err := c.processCommand(ctx, message, command); err != nil {
					log.Printf("[WARN] telegram: process command: %v", err)
					replyWarning(c.bot, message, "Failed to process command")
				}
				return
			}
			if err := c.processMessage(ctx, message); err != nil {
				log.Printf("[WARN] telegram: process message: %v", err)
				replyWarning(c.bot, message, "Failed to process message")
			}
		})
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		go c.tgLocks.withLock(query.Message.Chat.ID, func() {
			if err := c.processCallback(ctx, query); err != nil {
				log.Printf("[WARN] telegram: process callback: %v", err)
			}
		})
	}
}

// runOnebotLoop consumes remote adapter events, handing each off to its own
// goroutine serialized on the event's remote chat key so recall/edit
// ordering within one remote chat is preserved.
func (c *Client) runOnebotLoop(ctx context.Context) {
	events := c.server.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			key := ev.Endpoint.String() + "/" + ev.Raw.GetChatType().String() + "/" + ev.Raw.GetChatID()
			go c.remoteLocks.withLock(key, func() {
				if err := c.handleEvent(ctx, ev); err != nil {
					log.Printf("[WARN] telegram: handle onebot event from %s: %v", ev.Endpoint, err)
				}
			})
		}
	}
}

// logWarnf is the package's shared non-fatal logging helper, matching the
// log.Printf("[WARN] ...") convention used throughout the bridge package.
func logWarnf(format string, args ...any) {
	log.Printf("[WARN] telegram: "+format, args...)
}

// replyWarning best-effort replies to message with an HTML-bold warning when
// a handler fails. The send error, if any, is swallowed: there is nothing
// further to do about a failed failure notification.
func replyWarning(bot *tgbotapi.BotAPI, message *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(message.Chat.ID, "<b>[WARN] "+text+"</b>")
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = message.MessageID
	_, _ = bot.Send(reply)
}
