package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opendoor-ai/chatcore/internal/cache/redis"
	"github.com/opendoor-ai/chatcore/internal/chat"
	"github.com/opendoor-ai/chatcore/internal/config"
	"github.com/opendoor-ai/chatcore/internal/models"
	"github.com/opendoor-ai/chatcore/internal/persist"
	"github.com/opendoor-ai/chatcore/internal/poller"
	"github.com/opendoor-ai/chatcore/internal/provider"
	"github.com/opendoor-ai/chatcore/internal/provider/gemini"
	"github.com/opendoor-ai/chatcore/internal/provider/openrouter"
	"github.com/opendoor-ai/chatcore/internal/remotelog"
	"github.com/opendoor-ai/chatcore/internal/store"
	"github.com/opendoor-ai/chatcore/internal/types"
	"github.com/opendoor-ai/chatcore/internal/view"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

func main() {
	// Initialize logger; the terminal is the chat surface, so logs go
	// to stderr.
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	cfg, err := config.LoadClient()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	var adapter provider.Adapter
	switch cfg.Chat.Provider {
	case "gemini":
		adapter = gemini.NewClient(cfg.Gemini.APIKey)
	default:
		adapter = openrouter.NewClient(cfg.OpenRouter.APIKey)
	}

	st := store.New(logger)
	pipeline := chat.New(st, adapter, cfg.Chat.Model, logger)

	var redisClient *redis.Client
	var saver *persist.RedisStore
	if cfg.Redis.URI != "" {
		redisClient, err = redis.New(cfg.Redis.URI)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisClient.Close()
		saver = persist.NewRedisStore(redisClient, "")
	}

	catalog := models.NewCatalog(openRouterBaseURL, redisClient, logger)

	app := &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		pipeline: pipeline,
		catalog:  catalog,
		saver:    saver,
	}
	if cfg.RemoteLog.URL != "" {
		app.mirror = newLogMirror(remotelog.NewClient(cfg.RemoteLog.URL, cfg.RemoteLog.Token), logger)
	}
	app.run()
}

type app struct {
	cfg      *config.ClientConfig
	logger   *logrus.Logger
	store    *store.Store
	pipeline *chat.Pipeline
	catalog  *models.Catalog
	saver    *persist.RedisStore
	mirror   *logMirror

	pollCancel context.CancelFunc
}

func (a *app) run() {
	ctx := context.Background()

	if a.saver != nil {
		state, ok, err := a.saver.Load(ctx)
		if err != nil {
			a.logger.WithError(err).Warn("failed to load persisted state")
		} else if ok {
			a.store.Restore(state)
			fmt.Printf("Restored %d conversation(s).\n", len(state.Conversations))
		}
	}
	a.restartPoller()

	fmt.Println("Type a message, or /help for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		if strings.HasPrefix(line, "/") {
			a.command(ctx, line)
			continue
		}

		id := a.pipeline.Send(ctx, a.store.CurrentID(), line)
		if a.mirror != nil {
			a.mirror.forwardTurn(ctx, a.store, id)
		}
		a.restartPoller()
		a.printThread(id)
	}

	a.stopPoller()
	if a.saver != nil {
		if err := a.saver.Save(ctx, a.store.Snapshot()); err != nil {
			a.logger.WithError(err).Warn("failed to persist state")
		}
	}
}

func (a *app) command(ctx context.Context, line string) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Println("/new  /list  /search <q>  /open <id>  /rename <title>  /delete  /models  /quit")
	case "/new":
		id := a.store.CreateConversation()
		a.restartPoller()
		fmt.Printf("Started %s.\n", id)
	case "/list":
		a.printGrouped(a.store.Conversations())
	case "/search":
		a.printGrouped(view.Filter(a.store.Conversations(), arg))
	case "/open":
		conv, err := a.store.LoadConversation(arg)
		if err != nil {
			fmt.Println("No such conversation.")
			return
		}
		a.restartPoller()
		a.printThread(conv.ID)
	case "/rename":
		if err := a.store.RenameConversation(a.store.CurrentID(), arg); err != nil {
			fmt.Println("No conversation is open.")
		}
	case "/delete":
		id := a.store.CurrentID()
		if err := a.store.DeleteConversation(id); err != nil {
			fmt.Println("No conversation is open.")
			return
		}
		a.restartPoller()
		fmt.Println("Deleted. No conversation is open.")
	case "/models":
		for _, m := range a.catalog.List(ctx) {
			fmt.Printf("%-48s %s\n", m.ID, m.Name)
		}
	default:
		fmt.Println("Unknown command; /help lists commands.")
	}
}

// restartPoller points the poller at the current conversation. The old
// poller is always cancelled first so two timers never merge on behalf
// of different current conversations.
func (a *app) restartPoller() {
	a.stopPoller()
	if a.mirror == nil {
		return
	}
	id := a.store.CurrentID()
	if id == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.pollCancel = cancel
	p := poller.New(a.store, a.mirror, a.cfg.Chat.PollInterval, a.logger)
	go p.Run(ctx, id)
}

func (a *app) stopPoller() {
	if a.pollCancel != nil {
		a.pollCancel()
		a.pollCancel = nil
	}
}

func (a *app) printThread(id string) {
	conv, err := a.store.Get(id)
	if err != nil {
		return
	}
	fmt.Printf("-- %s --\n", conv.Title)
	for _, m := range conv.Messages {
		marker := ""
		switch m.Status {
		case types.StatusPending:
			marker = " [sending]"
		case types.StatusFailed:
			marker = " [failed]"
		}
		fmt.Printf("%s%s: %s\n", m.Role, marker, m.Content)
	}
}

func (a *app) printGrouped(convs []types.Conversation) {
	if len(convs) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, bucket := range view.GroupByRecency(convs, time.Now()) {
		fmt.Printf("%s\n", bucket.Label)
		for _, conv := range bucket.Conversations {
			fmt.Printf("  %s  %s\n", conv.ID, conv.Title)
		}
	}
}
