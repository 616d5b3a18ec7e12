// Command teleporter runs the Telegram <-> OneBot relay: it opens the
// sqlite-backed storage and media cache, starts the OneBot WebSocket server,
// logs the Telegram bot in, and drives both directions through a
// bridge.Bridge until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gliderlab/teleporter/bridge"
	"github.com/gliderlab/teleporter/config"
	"github.com/gliderlab/teleporter/onebot"
	"github.com/gliderlab/teleporter/search"
	"github.com/gliderlab/teleporter/storage"
	"github.com/gliderlab/teleporter/telegram"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}

	bot, err := newBotAPI(cfg.Telegram)
	if err != nil {
		log.Fatalf("connect telegram bot: %v", err)
	}
	log.Printf("authorized as @%s", bot.Self.UserName)

	db, err := storage.New(filepath.Join(cfg.General.DataDir, "teleporter.db"))
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer db.Close()

	media, err := bridge.OpenMediaCache(cfg.General.DataDir)
	if err != nil {
		log.Fatalf("open media cache: %v", err)
	}
	defer media.Close()

	server := onebot.NewServer(cfg.Onebot)
	br := bridge.New(bot, server, db, media, cfg.Telegram.AdminID, cfg.General.FfmpegPath)

	var index *search.Index
	if cfg.Telegram.EnableSearch {
		index, err = search.New(filepath.Join(cfg.General.DataDir, "search.db"))
		if err != nil {
			log.Fatalf("open search index: %v", err)
		}
		defer index.Close()
		br.SetSearcher(index)
	}

	client := telegram.New(bot, server, br)
	if index != nil {
		client.SetIndexer(index)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Run(ctx); err != nil && ctx.Err() == nil {
			log.Fatalf("onebot server: %v", err)
		}
	}()

	log.Printf("onebot server listening on %s", cfg.Onebot.Addr)
	client.Run(ctx)

	if index != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		if err := index.Commit(shutdownCtx); err != nil {
			log.Printf("[WARN] commit search index: %v", err)
		}
		cancelShutdown()
	}
	log.Println("teleporter shut down")
}

// newBotAPI logs in to the Bot API, routing through an HTTP(S) proxy when
// configured.
func newBotAPI(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	if cfg.ProxyURL == "" {
		return tgbotapi.NewBotAPI(cfg.BotToken)
	}
	proxyURL, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}
	return tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, client)
}
