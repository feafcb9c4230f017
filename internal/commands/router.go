package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"autobot-go/internal/autobot"
	"autobot-go/internal/locales"
)

const listColor = 0x00ff00

type handlerFunc func(ctx context.Context, req *Request, args []string, resp Responder) error

type command struct {
	name  string
	usage string
	help  string
	run   handlerFunc
}

// Options configures a Router.
type Options struct {
	Prefix    string
	AdminRole string
	Recorder  CommandRecorder
	// ReportError receives unexpected handler and scan errors.
	ReportError func(err error)
}

// Router dispatches prefixed messages to commands. Every command requires
// the admin role; the check happens before any handler runs.
type Router struct {
	tracker  Tracker
	resolver Resolver
	tr       *locales.Translator
	logger   autobot.Logger
	opts     Options
	commands []command

	scans   sync.Map
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewRouter(tracker Tracker, resolver Resolver, tr *locales.Translator, logger autobot.Logger, opts Options) *Router {
	if opts.Prefix == "" {
		opts.Prefix = "$"
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		tracker:  tracker,
		resolver: resolver,
		tr:       tr,
		logger:   logger,
		opts:     opts,
		baseCtx:  ctx,
		cancel:   cancel,
	}
	r.commands = []command{
		{name: "help", help: locales.HelpHelp, run: r.help},
		{name: "list", help: locales.HelpList, run: r.list},
		{name: "scan", usage: "[channel-name]", help: locales.HelpScan, run: r.scan},
		{name: "track", usage: "[channel]", help: locales.HelpTrack, run: r.track},
		{name: "untrack", usage: "[channel-name]", help: locales.HelpUntrack, run: r.untrack},
	}
	return r
}

// Handle runs the command in req.Content. It returns false when the
// content is not addressed to the bot.
func (r *Router) Handle(ctx context.Context, req *Request, resp Responder) bool {
	if !strings.HasPrefix(req.Content, r.opts.Prefix) {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(req.Content, r.opts.Prefix))
	if len(fields) == 0 {
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	cmd, ok := r.lookup(name)
	if !ok {
		if req.IsAdmin {
			r.reply(ctx, resp, r.tr.T(locales.UnknownCommand, locales.Data{"Command": name, "Prefix": r.opts.Prefix}))
		}
		return true
	}

	if !req.IsAdmin {
		r.logger.Info("command denied", "command", name, "author", req.Author.Name, "guild", req.GuildID)
		r.record(name, "denied")
		r.reply(ctx, resp, r.tr.T(locales.PermissionDenied, locales.Data{"Role": r.opts.AdminRole}))
		return true
	}

	r.logger.Info("command received", "command", name, "args", args, "author", req.Author.Name, "guild", req.GuildID)
	if err := cmd.run(ctx, req, args, resp); err != nil {
		r.logger.Error("command failed", "command", name, "error", err)
		r.record(name, "error")
		r.report(fmt.Errorf("command %s: %w", name, err))
		r.reply(ctx, resp, r.tr.T(locales.CommandFailed, locales.Data{"Command": r.opts.Prefix + name}))
		return true
	}
	r.record(name, "ok")
	return true
}

// Close cancels running scans and waits for them to stop.
func (r *Router) Close() {
	r.cancel()
	r.wg.Wait()
}

// Wait blocks until every running scan has finished.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) lookup(name string) (command, bool) {
	for _, c := range r.commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (r *Router) reply(ctx context.Context, resp Responder, text string) {
	if err := resp.Reply(ctx, text); err != nil {
		r.logger.Warn("sending reply failed", "error", err)
	}
}

func (r *Router) record(name, outcome string) {
	if r.opts.Recorder != nil {
		r.opts.Recorder.CommandHandled(name, outcome)
	}
}

func (r *Router) report(err error) {
	if r.opts.ReportError != nil {
		r.opts.ReportError(err)
	}
}

func (r *Router) help(ctx context.Context, _ *Request, _ []string, resp Responder) error {
	var b strings.Builder
	b.WriteString(r.tr.T(locales.HelpHeader, nil))
	b.WriteString("\n")
	for _, c := range r.commands {
		usage := r.opts.Prefix + c.name
		if c.usage != "" {
			usage += " " + c.usage
		}
		fmt.Fprintf(&b, "\n`%s` %s", usage, r.tr.T(c.help, nil))
	}
	return resp.Reply(ctx, b.String())
}

func (r *Router) track(ctx context.Context, req *Request, args []string, resp Responder) error {
	ch := req.Channel
	if len(args) > 0 {
		found, err := r.resolveTrackTarget(ctx, req.GuildID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if found == nil {
			return resp.Reply(ctx, r.tr.T(locales.TrackChannelNotFound, nil))
		}
		ch = found
	}

	res, err := r.tracker.Track(ctx, ch)
	if err != nil {
		return err
	}
	id := locales.TrackStarted
	if res == autobot.TrackAlreadyActive {
		id = locales.TrackAlreadyActive
	}
	return resp.Reply(ctx, r.tr.T(id, locales.Data{"Channel": resp.Mention(ch)}))
}

// resolveTrackTarget accepts a channel mention, a raw id or a channel name.
func (r *Router) resolveTrackTarget(ctx context.Context, guildID, arg string) (*autobot.Channel, error) {
	if id, ok := parseChannelRef(arg); ok {
		ch, err := r.resolver.LookupChannel(ctx, id)
		if err != nil {
			return nil, err
		}
		if ch != nil && ch.GuildID == guildID {
			return ch, nil
		}
	}
	return r.resolver.ResolveChannelByName(ctx, guildID, strings.TrimPrefix(arg, "#"))
}

func (r *Router) untrack(ctx context.Context, req *Request, args []string, resp Responder) error {
	name := req.Channel.Name
	if len(args) > 0 {
		name = strings.Join(args, " ")
	}

	ch, res, err := r.tracker.Untrack(ctx, req.GuildID, name)
	if errors.Is(err, autobot.ErrChannelNotFound) {
		return resp.Reply(ctx, r.tr.T(locales.UntrackNotAChannel, locales.Data{"Name": name}))
	}
	if err != nil {
		return err
	}
	id := locales.UntrackStopped
	if res == autobot.UntrackNotTracked {
		id = locales.UntrackNotTracked
	}
	return resp.Reply(ctx, r.tr.T(id, locales.Data{"Channel": resp.Mention(ch)}))
}

func (r *Router) list(ctx context.Context, req *Request, _ []string, resp Responder) error {
	channels, err := r.tracker.ListTracked(ctx, req.GuildID)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return resp.Reply(ctx, r.tr.T(locales.ListEmpty, nil))
	}

	mentions := make([]string, len(channels))
	for i, ch := range channels {
		mentions[i] = resp.Mention(ch)
	}
	return resp.ReplyEmbed(ctx, Embed{
		Title:       r.tr.T(locales.ListTitle, nil),
		Description: r.tr.T(locales.ListDescription, nil),
		Color:       listColor,
		Fields: []EmbedField{
			{Name: r.tr.T(locales.ListField, nil), Value: strings.Join(mentions, "\n")},
		},
	})
}

// parseChannelRef extracts the id from "<#123>" or a bare numeric id.
func parseChannelRef(arg string) (string, bool) {
	if strings.HasPrefix(arg, "<#") && strings.HasSuffix(arg, ">") {
		arg = arg[2 : len(arg)-1]
	}
	if arg == "" {
		return "", false
	}
	for _, c := range arg {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return arg, true
}
