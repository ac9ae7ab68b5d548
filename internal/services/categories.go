package services

import (
	"context"
	"fmt"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/storage"
)

// Categories lists categories in creation order, "other" always included.
func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	var cats []core.Category
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		cats, err = tx.Categories(ctx)
		return err
	})
	if err != nil {
		return nil, wrapStorage("list categories", err)
	}
	return core.EnsureOther(cats), nil
}

// AddCategory creates a category. Name and aliases are normalized to lower
// case and must not collide with any existing name or alias.
func (s *LedgerService) AddCategory(ctx context.Context, name string, aliases ...string) (core.Category, error) {
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{Name: name}
	for _, a := range aliases {
		a, err := core.NormalizeCategoryName(a)
		if err != nil {
			return core.Category{}, err
		}
		if a == name || contains(c.Aliases, a) {
			continue
		}
		c.Aliases = append(c.Aliases, a)
	}

	err = s.update(ctx, log.OpAddCategory, func(tx storage.Tx) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return err
		}
		cats = core.EnsureOther(cats)
		for _, n := range append([]string{c.Name}, c.Aliases...) {
			if err := core.CheckNameAvailable(n, cats); err != nil {
				return err
			}
		}
		return tx.InsertCategory(ctx, c)
	})
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category added", log.FieldCategory, c.Name, "aliases", c.Aliases)
	ev := amqp.NewLedgerEvent(amqp.EventCategoryAdded, s.Now())
	ev.Category = c.Name
	s.publish(ctx, ev)
	return c, nil
}

// DeleteCategory removes a category and moves its expenses to "other". It
// returns how many expenses were moved.
func (s *LedgerService) DeleteCategory(ctx context.Context, name string) (int64, error) {
	if core.IsReserved(name) {
		return 0, &core.PolicyError{Reason: fmt.Sprintf("category %q cannot be deleted", core.OtherCategory)}
	}

	var (
		moved     int64
		canonical string
	)
	err := s.update(ctx, log.OpDeleteCategory, func(tx storage.Tx) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return err
		}
		c, ok := core.FindCategory(name, cats)
		if !ok {
			return &core.NotFoundError{What: fmt.Sprintf("category %q", name)}
		}
		canonical = c.Name
		moved, err = tx.DeleteCategory(ctx, c.Name)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Category deleted", log.FieldCategory, canonical, "reassigned", moved)
	ev := amqp.NewLedgerEvent(amqp.EventCategoryDeleted, s.Now())
	ev.Category = canonical
	s.publish(ctx, ev)
	return moved, nil
}

// RenameCategory renames a category; its expenses follow the new name.
func (s *LedgerService) RenameCategory(ctx context.Context, oldName, newName string) (core.Category, error) {
	if core.IsReserved(oldName) {
		return core.Category{}, &core.PolicyError{Reason: fmt.Sprintf("category %q cannot be renamed", core.OtherCategory)}
	}
	newName, err := core.NormalizeCategoryName(newName)
	if err != nil {
		return core.Category{}, err
	}
	if core.IsReserved(newName) {
		return core.Category{}, &core.PolicyError{Reason: fmt.Sprintf("%q is reserved", core.OtherCategory)}
	}

	var renamed core.Category
	err = s.update(ctx, log.OpRenameCategory, func(tx storage.Tx) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return err
		}
		c, ok := core.FindCategory(oldName, cats)
		if !ok {
			return &core.NotFoundError{What: fmt.Sprintf("category %q", oldName)}
		}
		others := make([]core.Category, 0, len(cats))
		for _, o := range cats {
			if o.Name != c.Name {
				others = append(others, o)
			}
		}
		if err := core.CheckNameAvailable(newName, core.EnsureOther(others)); err != nil {
			return err
		}
		if err := tx.RenameCategory(ctx, c.Name, newName); err != nil {
			return err
		}
		renamed = core.Category{Name: newName, Aliases: c.Aliases}
		oldName = c.Name
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category renamed", "from", oldName, log.FieldCategory, newName)
	ev := amqp.NewLedgerEvent(amqp.EventCategoryRenamed, s.Now())
	ev.Category, ev.Description = newName, oldName
	s.publish(ctx, ev)
	return renamed, nil
}

// SeedCategories inserts seed when the store only holds "other". It returns
// the number of categories added.
func (s *LedgerService) SeedCategories(ctx context.Context, seed []core.Category) (int, error) {
	added := 0
	err := s.update(ctx, log.OpAddCategory, func(tx storage.Tx) error {
		cats, err := tx.Categories(ctx)
		if err != nil {
			return err
		}
		if len(core.EnsureOther(cats)) > 1 {
			return nil
		}
		for _, c := range seed {
			if core.IsReserved(c.Name) {
				continue
			}
			if err := tx.InsertCategory(ctx, c); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		s.logger.InfoContext(ctx, "Seeded categories", "count", added)
	}
	return added, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
