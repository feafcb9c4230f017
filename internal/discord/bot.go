package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"autobot-go/internal/autobot"
	"autobot-go/internal/commands"
)

const handlerTimeout = 5 * time.Minute

// BotOptions configures a Bot.
type BotOptions struct {
	Prefix    string
	AdminRole string
	// GuildID, when set, makes the bot ignore every other server.
	GuildID     string
	ReportError func(err error)
}

// Bot routes gateway events to the archiver and the command router.
type Bot struct {
	session *discordgo.Session
	client  *Client
	svc     *autobot.Service
	router  *commands.Router
	logger  autobot.Logger
	opts    BotOptions

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	removers []func()
}

// NewSession creates a discordgo session with the intents the archiver
// needs: guild metadata, guild messages and message content.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent
	return s, nil
}

func NewBot(session *discordgo.Session, client *Client, svc *autobot.Service, router *commands.Router, logger autobot.Logger, opts BotOptions) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		session: session,
		client:  client,
		svc:     svc,
		router:  router,
		logger:  logger,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Open registers the event handlers and connects to the gateway.
func (b *Bot) Open() error {
	b.removers = append(b.removers,
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onMessageCreate),
		b.session.AddHandler(b.onThreadCreate),
	)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	return nil
}

// Close stops event handling, waits for in-flight handlers and disconnects.
func (b *Bot) Close() error {
	for _, remove := range b.removers {
		remove()
	}
	b.cancel()
	b.router.Close()
	b.wg.Wait()
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("connected to discord", "user", r.User.Username, "guilds", len(r.Guilds))
}

func (b *Bot) acceptGuild(guildID string) bool {
	if guildID == "" {
		return false
	}
	return b.opts.GuildID == "" || b.opts.GuildID == guildID
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || !b.acceptGuild(m.GuildID) {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	b.wg.Add(1)
	defer b.wg.Done()
	ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
	defer cancel()
	defer b.recoverPanic("message")

	ch, err := b.client.LookupChannel(ctx, m.ChannelID)
	if err != nil {
		b.fail("resolving message channel", err, "channel", m.ChannelID)
		return
	}
	if ch == nil {
		return
	}

	msg := toMessage(m.Message, ch)
	ingest, err := b.svc.ShouldIngest(ctx, ch)
	if err != nil {
		b.fail("checking tracking state", err, "channel", ch.ID)
	} else if ingest {
		if _, err := b.svc.Ingest(ctx, msg); err != nil {
			b.fail("ingesting message", err, "message", msg.ID, "channel", ch.Label())
		}
	}

	if strings.HasPrefix(m.Content, b.opts.Prefix) {
		b.handleCommand(ctx, s, m, ch)
	}
}

func (b *Bot) handleCommand(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, ch *autobot.Channel) {
	isAdmin := false
	if m.Member != nil {
		roles, err := b.client.GuildRoles(ctx, m.GuildID)
		if err != nil {
			b.fail("loading guild roles", err, "guild", m.GuildID)
			return
		}
		isAdmin = hasRole(m.Member.Roles, roles, b.opts.AdminRole)
	}

	b.router.Handle(ctx, &commands.Request{
		GuildID: m.GuildID,
		Channel: ch,
		Author:  autobot.Author{ID: m.Author.ID, Name: m.Author.Username, Bot: m.Author.Bot},
		IsAdmin: isAdmin,
		Content: m.Content,
	}, &channelResponder{session: s, channelID: m.ChannelID})
}

func (b *Bot) onThreadCreate(s *discordgo.Session, t *discordgo.ThreadCreate) {
	if t.Channel == nil || !b.acceptGuild(t.GuildID) {
		return
	}

	b.wg.Add(1)
	defer b.wg.Done()
	ctx, cancel := context.WithTimeout(b.ctx, time.Minute)
	defer cancel()
	defer b.recoverPanic("thread")

	thread := b.client.convert(ctx, t.Channel)
	join, err := b.svc.ShouldJoin(ctx, thread)
	if err != nil {
		b.fail("checking thread parent", err, "thread", thread.ID)
		return
	}
	if !join {
		return
	}
	if err := b.client.JoinThread(ctx, thread.ID); err != nil {
		b.fail("joining thread", err, "thread", thread.Label())
		return
	}
	b.logger.Info("joined thread", "thread", thread.Label(), "id", thread.ID)
}

func (b *Bot) fail(what string, err error, args ...any) {
	b.logger.Error(what+" failed", append(args, "error", err)...)
	if b.opts.ReportError != nil {
		b.opts.ReportError(fmt.Errorf("%s: %w", what, err))
	}
}

func (b *Bot) recoverPanic(event string) {
	if r := recover(); r != nil {
		b.fail("handling "+event+" event", fmt.Errorf("panic: %v", r))
	}
}
