package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
)

const keyboardRowSize = 3

func (d *Dispatcher) startFlow(ctx context.Context, sessionID int64, name string) Result {
	switch name {
	case CmdExpense:
		d.sessions.Set(sessionID, Session{Flow: FlowExpense, Step: StepAmount})
		return prompt("Adding new expense.\nEnter the amount:")

	case CmdIncome:
		d.sessions.Set(sessionID, Session{Flow: FlowIncome, Step: StepAmount})
		return prompt("Adding new income.\nEnter the amount:")

	case CmdAddCategory:
		d.sessions.Set(sessionID, Session{Flow: FlowAddCategory, Step: StepName})
		return prompt("Enter the name of a new category, optionally followed by aliases:")

	case CmdUpdateCategory, CmdDeleteCategory:
		cats, err := d.ledger.Categories(ctx)
		if err != nil {
			return d.fail(ctx, "list_categories", err)
		}
		names := editableNames(cats)
		if len(names) == 0 {
			return info("There are no categories besides \"other\".")
		}
		flow, verb := FlowUpdateCategory, "update"
		if name == CmdDeleteCategory {
			flow, verb = FlowDeleteCategory, "delete"
		}
		d.sessions.Set(sessionID, Session{Flow: flow, Step: StepCategory})
		return keyboard(fmt.Sprintf("Choose which category to %s:", verb), chunk(names, keyboardRowSize))
	}
	return Result{Kind: KindUnknown, Payload: "/" + name}
}

func (d *Dispatcher) continueFlow(ctx context.Context, sessionID int64, sess Session, text string) Result {
	text = strings.TrimSpace(text)
	switch sess.Flow {
	case FlowExpense:
		return d.expenseStep(ctx, sessionID, sess, text)
	case FlowIncome:
		return d.incomeStep(ctx, sessionID, sess, text)
	case FlowAddCategory:
		return d.addCategoryStep(ctx, sessionID, text)
	case FlowUpdateCategory:
		return d.updateCategoryStep(ctx, sessionID, sess, text)
	case FlowDeleteCategory:
		return d.deleteCategoryStep(ctx, sessionID, sess, text)
	}
	d.sessions.Clear(sessionID)
	return Result{Kind: KindUnknown}
}

func (d *Dispatcher) expenseStep(ctx context.Context, sessionID int64, sess Session, text string) Result {
	switch sess.Step {
	case StepAmount:
		amount, err := core.ParseAmount(text)
		if err != nil || !amount.IsPositive() {
			return prompt(fmt.Sprintf("\"%s\" is not a valid amount.\nTry again:", text))
		}
		cats, err := d.ledger.Categories(ctx)
		if err != nil {
			d.sessions.Clear(sessionID)
			return d.fail(ctx, log.OpAddExpense, err)
		}
		sess.Amount, sess.Step = amount, StepCategory
		d.sessions.Set(sessionID, sess)
		return keyboard("Choose category name:", chunk(core.CategoryNames(cats), keyboardRowSize))

	case StepCategory:
		cats, err := d.ledger.Categories(ctx)
		if err != nil {
			d.sessions.Clear(sessionID)
			return d.fail(ctx, log.OpAddExpense, err)
		}
		reply := "Add a description or /skip"
		name, ok := core.LookupCategory(text, cats)
		if !ok {
			name = core.OtherCategory
			reply = "Choosing \"other\"\n" + reply
		}
		sess.Category, sess.Step = name, StepDescription
		d.sessions.Set(sessionID, sess)
		return Result{Kind: KindPrompt, Payload: Prompt{Text: reply, RemoveKeyboard: true}}

	default:
		return d.finishExpense(ctx, sessionID, sess, core.NewDescription(text))
	}
}

func (d *Dispatcher) finishExpense(ctx context.Context, sessionID int64, sess Session, description *string) Result {
	d.sessions.Clear(sessionID)
	return d.addExpense(ctx, core.Expense{
		Amount:      sess.Amount,
		Category:    sess.Category,
		Description: description,
		Time:        d.ledger.Now(),
	})
}

func (d *Dispatcher) incomeStep(ctx context.Context, sessionID int64, sess Session, text string) Result {
	if sess.Step == StepAmount {
		amount, err := core.ParseAmount(text)
		if err != nil || !amount.IsPositive() {
			return prompt(fmt.Sprintf("\"%s\" is not a valid amount.\nTry again:", text))
		}
		sess.Amount, sess.Step = amount, StepDescription
		d.sessions.Set(sessionID, sess)
		return prompt("Add a description:")
	}

	if text == "" {
		return prompt("The description cannot be empty.\nTry again:")
	}
	d.sessions.Clear(sessionID)
	return d.addIncome(ctx, core.Income{
		Amount:      sess.Amount,
		Description: text,
		Time:        d.ledger.Now(),
	})
}

func (d *Dispatcher) addCategoryStep(ctx context.Context, sessionID int64, text string) Result {
	words := strings.Fields(text)
	if len(words) == 0 {
		return prompt("The name cannot be empty.\nTry again:")
	}
	c, err := d.ledger.AddCategory(ctx, words[0], words[1:]...)
	if retry, ok := retryable(err); ok {
		return retry
	}
	d.sessions.Clear(sessionID)
	if err != nil {
		return d.fail(ctx, log.OpAddCategory, err)
	}

	reply := fmt.Sprintf("Added new category: \"%s\"", c.Name)
	if len(c.Aliases) > 0 {
		reply += fmt.Sprintf("\nAliases: %s", strings.Join(c.Aliases, ", "))
	}
	return done(reply)
}

func (d *Dispatcher) updateCategoryStep(ctx context.Context, sessionID int64, sess Session, text string) Result {
	if sess.Step == StepCategory {
		c, res, ok := d.pickCategory(ctx, sessionID, text, "update")
		if !ok {
			return res
		}
		sess.Category, sess.Step = c.Name, StepName
		d.sessions.Set(sessionID, sess)
		return Result{Kind: KindPrompt, Payload: Prompt{
			Text:           fmt.Sprintf("Enter new name for category \"%s\":", c.Name),
			RemoveKeyboard: true,
		}}
	}

	renamed, err := d.ledger.RenameCategory(ctx, sess.Category, text)
	if retry, ok := retryable(err); ok {
		return retry
	}
	d.sessions.Clear(sessionID)
	if err != nil {
		return d.fail(ctx, log.OpRenameCategory, err)
	}
	return done(fmt.Sprintf("Renamed category \"%s\" to \"%s\".", sess.Category, renamed.Name))
}

func (d *Dispatcher) deleteCategoryStep(ctx context.Context, sessionID int64, sess Session, text string) Result {
	if sess.Step == StepCategory {
		c, res, ok := d.pickCategory(ctx, sessionID, text, "delete")
		if !ok {
			return res
		}
		sess.Category, sess.Step = c.Name, StepConfirm
		d.sessions.Set(sessionID, sess)
		return keyboard(fmt.Sprintf("Do you confirm deleting \"%s\"?", c.Name), [][]string{{"Yes"}, {"No"}})
	}

	switch strings.ToLower(text) {
	case "yes":
		d.sessions.Clear(sessionID)
		moved, err := d.ledger.DeleteCategory(ctx, sess.Category)
		if err != nil {
			return d.fail(ctx, log.OpDeleteCategory, err)
		}
		reply := fmt.Sprintf("Deleted category \"%s\".", sess.Category)
		if moved > 0 {
			reply += fmt.Sprintf("\n%d expenses moved to \"%s\".", moved, core.OtherCategory)
		}
		return done(reply)
	case "no":
		d.sessions.Clear(sessionID)
		return done("Operation cancelled.")
	default:
		return prompt("Answer must be \"Yes\" or \"No\".\nTry again:")
	}
}

// pickCategory resolves the category chosen from the keyboard. When ok is
// false res is the retry prompt or error to send.
func (d *Dispatcher) pickCategory(ctx context.Context, sessionID int64, text, verb string) (core.Category, Result, bool) {
	if core.IsReserved(text) {
		return core.Category{}, prompt(fmt.Sprintf("You cannot %s \"%s\".\nTry again:", verb, core.OtherCategory)), false
	}
	cats, err := d.ledger.Categories(ctx)
	if err != nil {
		d.sessions.Clear(sessionID)
		return core.Category{}, d.fail(ctx, "list_categories", err), false
	}
	c, ok := core.FindCategory(text, cats)
	if !ok {
		return core.Category{}, prompt("This category doesn't exist.\nTry again:"), false
	}
	return c, Result{}, true
}

// retryable turns input the user can correct into a retry prompt that keeps
// the conversation going.
func retryable(err error) (Result, bool) {
	var policy *core.PolicyError
	switch {
	case err == nil:
		return Result{}, false
	case errors.As(err, &policy):
		return prompt(capitalize(policy.Reason) + ".\nTry again:"), true
	case errors.Is(err, core.ErrEmptyCategory):
		return prompt("The name cannot be empty.\nTry again:"), true
	}
	return Result{}, false
}

func editableNames(cats []core.Category) []string {
	var names []string
	for _, c := range cats {
		if !core.IsReserved(c.Name) {
			names = append(names, c.Name)
		}
	}
	return names
}

func chunk(items []string, size int) [][]string {
	var rows [][]string
	for len(items) > size {
		rows = append(rows, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		rows = append(rows, items)
	}
	return rows
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
