package bot

import (
	"context"
	"time"

	"ledgerbot/internal/log"
)

// Message is an incoming chat message, independent of the transport.
type Message struct {
	ChatID int64
	UserID int64
	Text   string
}

// Router is the entry point for transports. Only the configured user is
// served; everyone else is ignored.
type Router struct {
	dispatcher  *Dispatcher
	view        *View
	allowedUser int64
	logger      *log.Logger
}

func NewRouter(d *Dispatcher, view *View, allowedUser int64, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Router{
		dispatcher:  d,
		view:        view,
		allowedUser: allowedUser,
		logger:      logger.WithComponent(log.ComponentBot),
	}
}

// Handle processes one message. ok is false when nothing should be sent.
func (r *Router) Handle(ctx context.Context, msg Message) (reply Reply, ok bool) {
	if msg.UserID != r.allowedUser {
		r.logger.WarnContext(ctx, "Ignoring message from unauthorized user",
			"user_id", msg.UserID,
			log.FieldSessionID, msg.ChatID)
		return Reply{}, false
	}

	start := time.Now()
	var res Result
	if name, args, isCmd := SplitCommand(msg.Text); isCmd {
		res = r.dispatcher.HandleCommand(ctx, msg.ChatID, name, args)
	} else {
		res = r.dispatcher.HandleText(ctx, msg.ChatID, msg.Text)
	}

	r.logger.InfoContext(ctx, "Handled message",
		log.FieldSessionID, msg.ChatID,
		log.FieldKind, res.Kind.String(),
		log.FieldDuration, time.Since(start).Milliseconds())

	reply = r.view.Render(res)
	return reply, reply.Text != ""
}
