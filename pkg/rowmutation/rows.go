package rowmutation

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formlayout/pkg/ids"
	"github.com/goliatone/go-formlayout/pkg/repgroups"
	"github.com/goliatone/go-formlayout/pkg/state"
)

// AddRow appends a row to groupID and opens it for editing. It returns the new
// row index, or ErrMaxCountReached when the group is full.
func (c *Coordinator) AddRow(ctx context.Context, groupID string) (int, error) {
	unlock := c.lock(groupID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return -1, err
	}
	pageKey, err := c.findPage(groupID)
	if err != nil {
		return -1, err
	}
	page, err := c.layouts.Page(pageKey)
	if err != nil {
		return -1, fmt.Errorf("rowmutation: %w", err)
	}
	comp := page.Lookup()[ids.ParseKey(groupID).BaseID]

	added := -1
	err = c.store.Update(func(s *state.State) error {
		st, ok := s.RepeatingGroups[groupID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		if comp.MaxCount > 0 && st.Rows() >= comp.MaxCount {
			return fmt.Errorf("%w: %s has %d of %d", ErrMaxCountReached, groupID, st.Rows(), comp.MaxCount)
		}
		st.Index++
		st.EditIndex = st.Index
		added = st.Index
		s.RepeatingGroups[groupID] = st
		repgroups.SeedRow(s.RepeatingGroups, page.Components, groupID, added)
		return nil
	})
	if err != nil {
		return -1, err
	}
	c.emit(Event{Kind: RowAdded, PageKey: pageKey, GroupID: groupID, Row: added})
	return added, nil
}

// SetEditIndex opens row for editing; -1 closes the open row.
func (c *Coordinator) SetEditIndex(ctx context.Context, groupID string, row int) error {
	return c.setIndex(ctx, groupID, row, EditIndexChanged, func(st *repgroups.State) error {
		if row < -1 || row > st.Index {
			return fmt.Errorf("%w: edit row %d of %s", ErrRowOutOfRange, row, groupID)
		}
		st.EditIndex = row
		return nil
	})
}

// SetMultiPageIndex moves the multi-page group to step page; -1 resets it.
func (c *Coordinator) SetMultiPageIndex(ctx context.Context, groupID string, page int) error {
	return c.setIndex(ctx, groupID, page, MultiPageIndexChanged, func(st *repgroups.State) error {
		if page < -1 {
			return fmt.Errorf("%w: multi-page index %d of %s", ErrRowOutOfRange, page, groupID)
		}
		st.MultiPageIndex = page
		return nil
	})
}

func (c *Coordinator) setIndex(ctx context.Context, groupID string, value int, kind EventKind, apply func(*repgroups.State) error) error {
	unlock := c.lock(groupID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.store.Update(func(s *state.State) error {
		st, ok := s.RepeatingGroups[groupID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		if err := apply(&st); err != nil {
			return err
		}
		s.RepeatingGroups[groupID] = st
		return nil
	})
	if err != nil {
		return err
	}
	pageKey, _ := c.findPage(groupID)
	c.emit(Event{Kind: kind, PageKey: pageKey, GroupID: groupID, Row: value})
	return nil
}
