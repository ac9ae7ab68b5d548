package bot

import (
	"context"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/parser"
)

// Slash command names.
const (
	CmdStart          = "start"
	CmdHelp           = "help"
	CmdBalance        = "balance"
	CmdCategories     = "categories"
	CmdCancelLast     = "cancel_last"
	CmdMonth          = "month"
	CmdExpense        = "expense"
	CmdIncome         = "income"
	CmdAddCategory    = "add_category"
	CmdUpdateCategory = "update_category"
	CmdDeleteCategory = "delete_category"
	CmdCancel         = "cancel"
	CmdSkip           = "skip"
	CmdBlock          = "block"
)

// HandleCommand runs a slash command. /block works in blocked mode, every
// other command is refused.
func (d *Dispatcher) HandleCommand(ctx context.Context, sessionID int64, name string, args []string) Result {
	if name == CmdBlock {
		if d.ToggleBlocked() {
			d.logger.InfoContext(ctx, "Blocked mode enabled", log.FieldSessionID, sessionID)
			return info("Blocked mode is on. Send /block again to resume.")
		}
		d.logger.InfoContext(ctx, "Blocked mode disabled", log.FieldSessionID, sessionID)
		return info("Blocked mode is off.")
	}
	if d.Blocked() {
		return errorResult(ErrBlocked)
	}

	switch name {
	case CmdStart:
		return info("Bot started.")
	case CmdHelp:
		return info(helpText)

	case CmdBalance:
		switch len(args) {
		case 0:
			return d.showBalance(ctx)
		case 1:
			amount, err := core.ParseSignedAmount(args[0])
			if err == nil {
				return d.setBalance(ctx, amount)
			}
		}
		return errorResult(&core.ParseError{Kind: "balance", Reason: "usage: /balance [amount]"})

	case CmdCategories:
		cats, err := d.ledger.Categories(ctx)
		if err != nil {
			return d.fail(ctx, "list_categories", err)
		}
		return Result{Kind: KindCategories, Payload: cats}

	case CmdCancelLast:
		return d.cancelLast(ctx)

	case CmdMonth:
		text := CmdMonth
		if len(args) > 0 {
			text = strings.Join(args, " ")
		}
		year, month, err := parser.ParseMonth(text, d.ledger.Now())
		if err != nil {
			return errorResult(err)
		}
		return d.monthReport(ctx, year, month)

	case CmdExpense, CmdIncome, CmdAddCategory, CmdUpdateCategory, CmdDeleteCategory:
		return d.startFlow(ctx, sessionID, name)

	case CmdCancel:
		if !d.sessions.Get(sessionID).Active() {
			return info("Nothing to cancel.")
		}
		d.sessions.Clear(sessionID)
		return done("Command cancelled.")

	case CmdSkip:
		sess := d.sessions.Get(sessionID)
		if sess.Flow != FlowExpense || sess.Step != StepDescription {
			return info("Nothing to skip.")
		}
		return d.finishExpense(ctx, sessionID, sess, nil)

	default:
		return Result{Kind: KindUnknown, Payload: "/" + name}
	}
}

// SplitCommand splits "/name@bot arg..." into the command name and its
// arguments. ok is false when text is not a slash command.
func SplitCommand(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	words := strings.Fields(text[1:])
	if len(words) == 0 {
		return "", nil, false
	}
	name = strings.ToLower(words[0])
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return name, words[1:], true
}

const helpText = `Text commands:
add expense: "-amount [category] [description]"
add income: "+amount description"
show balance: "balance"
set balance: "balance amount"
cancel last expense: "cancel"
month statistics: "month", "<month>" or "<month> <year>"

Slash commands:
/start - start the bot
/help - this message
/balance [amount] - show or set the balance
/expense - add a new expense
/income - add a new income
/cancel_last - cancel the last expense
/month [<month> [year]] - month statistics
/categories - show categories and aliases
/add_category - add a category ("name alias1 alias2")
/update_category - rename a category (except "other")
/delete_category - delete a category (its expenses become "other")
/cancel - stop the current command
/block - ignore all commands until the next /block`
