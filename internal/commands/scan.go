package commands

import (
	"context"
	"errors"
	"strings"

	"autobot-go/internal/autobot"
	"autobot-go/internal/locales"
)

// scan starts a backfill in the background. One scan runs per guild; the
// reply panel of each channel is edited as pages are processed.
func (r *Router) scan(ctx context.Context, req *Request, args []string, resp Responder) error {
	filter := strings.Join(args, " ")

	if _, busy := r.scans.LoadOrStore(req.GuildID, struct{}{}); busy {
		return resp.Reply(ctx, r.tr.T(locales.ScanBusy, nil))
	}

	tracked, err := r.tracker.ListTracked(ctx, req.GuildID)
	if err != nil {
		r.scans.Delete(req.GuildID)
		return err
	}
	if len(tracked) == 0 {
		r.scans.Delete(req.GuildID)
		return resp.Reply(ctx, r.tr.T(locales.ScanNothingTracked, locales.Data{"Prefix": r.opts.Prefix}))
	}

	if err := resp.Reply(ctx, r.tr.T(locales.ScanStarting, nil)); err != nil {
		r.logger.Warn("sending reply failed", "error", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.scans.Delete(req.GuildID)
		r.runScan(req.GuildID, filter, resp)
	}()
	return nil
}

func (r *Router) runScan(guildID, filter string, resp Responder) {
	ctx := r.baseCtx
	progress := &scanPanel{r: r, ctx: ctx, resp: resp}

	report, err := r.tracker.Scan(ctx, guildID, filter, progress.update)
	switch {
	case errors.Is(err, autobot.ErrChannelNotFound):
		r.reply(ctx, resp, r.tr.T(locales.ScanNotTracked, locales.Data{"Name": filter}))
		return
	case errors.Is(err, context.Canceled):
		r.logger.Info("scan canceled", "guild", guildID)
		return
	case err != nil:
		r.logger.Error("scan failed", "guild", guildID, "error", err)
		r.report(err)
		r.reply(ctx, resp, r.tr.T(locales.ScanFailed, locales.Data{"Error": err.Error()}))
		return
	}

	r.reply(ctx, resp, r.tr.T(locales.ScanComplete, locales.Data{
		"Messages": report.Messages,
		"Saved":    report.Saved,
	}))
}

type scanPanel struct {
	r     *Router
	ctx   context.Context
	resp  Responder
	panel Panel
}

func (p *scanPanel) update(sp autobot.ScanProgress) {
	id := locales.ScanChannel
	if sp.Channel.IsThread() {
		id = locales.ScanThread
	}
	mention := p.resp.Mention(sp.Channel)
	heading := p.r.tr.T(id, locales.Data{"Channel": mention})

	if sp.Messages == 0 && !sp.Done {
		panel, err := p.resp.Panel(p.ctx, heading)
		if err != nil {
			p.r.logger.Warn("posting scan panel failed", "error", err)
			p.panel = nil
			return
		}
		p.panel = panel
		return
	}
	if p.panel == nil {
		return
	}

	text := heading + "\n" + p.r.tr.T(locales.ScanProgress, locales.Data{
		"Channel":  mention,
		"Messages": sp.Messages,
		"Saved":    sp.Saved,
	})
	if err := p.panel.Update(p.ctx, text); err != nil {
		p.r.logger.Warn("updating scan panel failed", "error", err)
	}
}
