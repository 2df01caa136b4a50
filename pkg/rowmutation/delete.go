package rowmutation

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formlayout/pkg/ids"
	"github.com/goliatone/go-formlayout/pkg/layout"
	"github.com/goliatone/go-formlayout/pkg/repgroups"
	"github.com/goliatone/go-formlayout/pkg/state"
	"github.com/goliatone/go-formlayout/pkg/validation"
)

type ownedAttachment struct {
	componentID string
	attachment  state.Attachment
}

// DeleteRow removes row from the repeating group instance groupID on page
// pageKey. Attachments owned by components in the row are deleted first, in
// parallel; if any deletion fails the state is left as it was and the error
// wraps ErrAttachmentDeletion. Otherwise the row's data, nested group states,
// attachments and validations are removed and every higher row moves down by
// one in a single store update.
//
// While attachments are being deleted the group's DeletingIndex is set in the
// store so observers can mark the row as busy. The marker is a transient
// commit of its own: a failed deletion bumps the store version twice and
// notifies store subscribers of both the marker and its removal, but leaves
// every other field as it was.
func (c *Coordinator) DeleteRow(ctx context.Context, pageKey, groupID string, row int) error {
	unlock := c.lock(groupID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := c.store.Snapshot()
	t, err := c.resolve(snap, pageKey, groupID)
	if err != nil {
		return err
	}
	if row < 0 || row > t.state.Index {
		return fmt.Errorf("%w: row %d of %s (%d rows)", ErrRowOutOfRange, row, groupID, t.state.Rows())
	}

	if err := c.setDeleting(groupID, &row); err != nil {
		return err
	}

	descendants := layout.DescendantIDs(t.page.Components, t.comp.ID)
	prefix := t.key.Depth
	doomed := attachmentsInRow(snap.Attachments, descendants, prefix, row)

	if err := c.deleteAttachments(ctx, doomed); err != nil {
		c.clearDeleting(groupID)
		c.logger.Warn("row deletion aborted", "group", groupID, "row", row, "error", err)
		return err
	}

	binding := t.node.GroupBinding()
	err = c.store.Update(func(s *state.State) error {
		st, ok := s.RepeatingGroups[groupID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		s.DataModel = s.DataModel.RemoveRow(binding, row)
		s.RepeatingGroups = repgroups.ShiftNested(s.RepeatingGroups, descendants, prefix, row)
		s.Attachments = shiftAttachments(s.Attachments, descendants, prefix, row)
		s.Validations = validation.ShiftRows(s.Validations, pageKey, descendants, prefix, row)

		st.Index--
		st.EditIndex = -1
		st.DeletingIndex = nil
		s.RepeatingGroups[groupID] = st
		return nil
	})
	if err != nil {
		c.clearDeleting(groupID)
		return fmt.Errorf("rowmutation: commit delete of %s row %d: %w", groupID, row, err)
	}

	events := make([]Event, 0, len(doomed)+2)
	for _, d := range doomed {
		events = append(events, Event{
			Kind:         AttachmentDeleted,
			PageKey:      pageKey,
			GroupID:      groupID,
			Row:          row,
			ComponentID:  d.componentID,
			AttachmentID: d.attachment.ID,
		})
	}
	events = append(events,
		Event{Kind: ValidationUpdated, PageKey: pageKey, GroupID: groupID, Row: row},
		Event{Kind: RowDeleted, PageKey: pageKey, GroupID: groupID, Row: row},
	)
	c.logger.Debug("deleted repeating group row", "group", groupID, "row", row, "attachments", len(doomed))
	c.emit(events...)
	return nil
}

func (c *Coordinator) deleteAttachments(ctx context.Context, doomed []ownedAttachment) error {
	if c.deleter == nil || len(doomed) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}
	for _, d := range doomed {
		d := d
		g.Go(func() error {
			if err := c.deleter.DeleteAttachment(gctx, d.componentID, d.attachment); err != nil {
				return fmt.Errorf("%s/%s: %w", d.componentID, d.attachment.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrAttachmentDeletion, err)
	}
	return nil
}

func (c *Coordinator) setDeleting(groupID string, row *int) error {
	return c.store.Update(func(s *state.State) error {
		st, ok := s.RepeatingGroups[groupID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
		}
		if row != nil {
			idx := *row
			st.DeletingIndex = &idx
		} else {
			st.DeletingIndex = nil
		}
		s.RepeatingGroups[groupID] = st
		return nil
	})
}

func (c *Coordinator) clearDeleting(groupID string) {
	if err := c.setDeleting(groupID, nil); err != nil {
		c.logger.Error("clear deleting index", "group", groupID, "error", err)
	}
}

// attachmentsInRow lists the attachments owned by component instances that
// live in row, sorted by component id.
func attachmentsInRow(all state.Attachments, descendants map[string]struct{}, prefix []int, row int) []ownedAttachment {
	var out []ownedAttachment
	for id, files := range all {
		if _, ok := descendants[ids.ParseKey(id).BaseID]; !ok {
			continue
		}
		if _, keep := ids.ShiftDepth(id, prefix, row); keep {
			continue
		}
		for _, f := range files {
			out = append(out, ownedAttachment{componentID: id, attachment: f})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].componentID != out[j].componentID {
			return out[i].componentID < out[j].componentID
		}
		return out[i].attachment.ID < out[j].attachment.ID
	})
	return out
}

func shiftAttachments(all state.Attachments, descendants map[string]struct{}, prefix []int, row int) state.Attachments {
	out := make(state.Attachments, len(all))
	for id, files := range all {
		if _, ok := descendants[ids.ParseKey(id).BaseID]; !ok {
			out[id] = files
			continue
		}
		next, keep := ids.ShiftDepth(id, prefix, row)
		if !keep {
			continue
		}
		out[next] = files
	}
	return out
}
