package main

import (
	"context"
	"strings"

	"github.com/daybook-bot/daybook/pkg/session"
)

// router maps inbound lines to session operations. Slash commands get
// dedicated handlers; everything else flows through the state machine.
type router struct {
	manager *session.Manager
	out     session.Outbox
}

func newRouter(manager *session.Manager, out session.Outbox) *router {
	return &router{manager: manager, out: out}
}

// Dispatch handles one inbound message from userID.
func (r *router) Dispatch(ctx context.Context, userID, firstName, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !strings.HasPrefix(text, "/") {
		return r.manager.HandleMessage(ctx, userID, text)
	}

	cmd, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)
	switch strings.ToLower(cmd) {
	case "/start":
		return r.manager.Start(ctx, userID, firstName)
	case "/help":
		return r.manager.Help(ctx, userID)
	case "/diary":
		return r.manager.BeginDiary(ctx, userID)
	case "/setbio":
		return r.manager.SetBio(ctx, userID, args)
	case "/mydiary":
		return r.manager.ListEntries(ctx, userID)
	case "/read":
		return r.manager.ReadEntry(ctx, userID, args)
	case "/cancel":
		return r.manager.Cancel(ctx, userID)
	default:
		return r.out.SendText(ctx, userID, "Unknown command. Send /help to see available commands.")
	}
}
