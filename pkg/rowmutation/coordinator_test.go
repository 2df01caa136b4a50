package rowmutation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formlayout/pkg/formdata"
	"github.com/goliatone/go-formlayout/pkg/layout"
	"github.com/goliatone/go-formlayout/pkg/repgroups"
	"github.com/goliatone/go-formlayout/pkg/state"
	"github.com/goliatone/go-formlayout/pkg/validation"
)

const pageKey = "FormLayout"

func fixtureSet(t *testing.T) *layout.Set {
	t.Helper()
	set, err := layout.NewSet([]layout.Page{{Name: pageKey, Components: []layout.Component{
		{ID: "title", Type: "Header"},
		{
			ID:                "repeating-group",
			Type:              layout.TypeGroup,
			MaxCount:          3,
			DataModelBindings: map[string]string{"group": "Group"},
			Children:          []string{"uploader", "name", "sub"},
		},
		{ID: "uploader", Type: "FileUpload", DataModelBindings: map[string]string{"simpleBinding": "Group.attachmentRef"}},
		{ID: "name", Type: "Input", DataModelBindings: map[string]string{"simpleBinding": "Group.name"}},
		{
			ID:                "sub",
			Type:              layout.TypeGroup,
			MaxCount:          5,
			DataModelBindings: map[string]string{"group": "Group.sub"},
			Children:          []string{"note"},
		},
		{ID: "note", Type: "Input", DataModelBindings: map[string]string{"simpleBinding": "Group.sub.note"}},
	}}}, []string{pageKey})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return set
}

func fixtureState(t *testing.T, set *layout.Set) state.State {
	t.Helper()
	data := formdata.DataModel{
		"Group[0].name":          "a",
		"Group[0].attachmentRef": "abc",
		"Group[1].name":          "b",
		"Group[1].attachmentRef": "def",
		"Group[1].sub[0].note":   "n10",
		"Group[2].name":          "c",
		"Group[2].sub[0].note":   "n20",
		"Group[2].sub[1].note":   "n21",
	}
	page, err := set.Page(pageKey)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	return state.State{
		DataModel:       data,
		RepeatingGroups: repgroups.ComputeRowCounts(page.Components, data),
		Attachments: state.Attachments{
			"uploader-0": {{ID: "abc", Name: "a.pdf", Uploaded: true}},
			"uploader-1": {{ID: "def", Name: "b.pdf", Uploaded: true}},
		},
		Validations: validation.Validations{pageKey: {
			"name-1":   {"simpleBinding": {validation.SeverityErrors: {"b bad"}}},
			"name-2":   {"simpleBinding": {validation.SeverityErrors: {"c bad"}}},
			"note-2-1": {"simpleBinding": {validation.SeverityErrors: {"n"}}},
			"title":    {"simpleBinding": {validation.SeverityInfo: {"hi"}}},
		}},
	}
}

type recordingDeleter struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]error
}

func (d *recordingDeleter) DeleteAttachment(ctx context.Context, componentID string, att state.Attachment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[att.ID]; err != nil {
		return err
	}
	d.deleted = append(d.deleted, componentID+"/"+att.ID)
	return nil
}

func TestDeleteRowKeepsStateConsistent(t *testing.T) {
	set := fixtureSet(t)
	store := state.NewStore(fixtureState(t, set))
	deleter := &recordingDeleter{}
	coord := New(store, set, WithAttachmentDeleter(deleter))

	var kinds []EventKind
	coord.Subscribe(func(e Event) {
		kinds = append(kinds, e.Kind)
		if e.Kind == RowDeleted {
			if got := store.Snapshot().RepeatingGroups["repeating-group"].Index; got != 1 {
				t.Errorf("event delivered before commit: index = %d", got)
			}
		}
	})

	if err := coord.DeleteRow(context.Background(), pageKey, "repeating-group", 1); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}

	snap := store.Snapshot()

	wantData := formdata.DataModel{
		"Group[0].name":          "a",
		"Group[0].attachmentRef": "abc",
		"Group[1].name":          "c",
		"Group[1].sub[0].note":   "n20",
		"Group[1].sub[1].note":   "n21",
	}
	if diff := cmp.Diff(wantData, snap.DataModel); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}

	group := snap.RepeatingGroups["repeating-group"]
	if group.Index != 1 || group.EditIndex != -1 || group.DeletingIndex != nil {
		t.Fatalf("group state = %+v", group)
	}
	indexes := map[string]int{}
	for id, st := range snap.RepeatingGroups {
		indexes[id] = st.Index
	}
	wantIndexes := map[string]int{"repeating-group": 1, "sub-0": -1, "sub-1": 1}
	if diff := cmp.Diff(wantIndexes, indexes); diff != "" {
		t.Fatalf("group indexes mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(state.Attachments{"uploader-0": {{ID: "abc", Name: "a.pdf", Uploaded: true}}}, snap.Attachments); diff != "" {
		t.Fatalf("attachments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"uploader-1/def"}, deleter.deleted); diff != "" {
		t.Fatalf("deleted mismatch (-want +got):\n%s", diff)
	}

	wantValidations := validation.Validations{pageKey: {
		"name-1":   {"simpleBinding": {validation.SeverityErrors: {"c bad"}}},
		"note-1-1": {"simpleBinding": {validation.SeverityErrors: {"n"}}},
		"title":    {"simpleBinding": {validation.SeverityInfo: {"hi"}}},
	}}
	if diff := cmp.Diff(wantValidations, snap.Validations); diff != "" {
		t.Fatalf("validations mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]EventKind{AttachmentDeleted, ValidationUpdated, RowDeleted}, kinds); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteRowAttachmentFailureLeavesStateUntouched(t *testing.T) {
	set := fixtureSet(t)
	initial := fixtureState(t, set)
	store := state.NewStore(initial)
	storageDown := errors.New("storage unavailable")
	coord := New(store, set, WithAttachmentDeleter(&recordingDeleter{fail: map[string]error{"def": storageDown}}))

	var events []Event
	coord.Subscribe(func(e Event) { events = append(events, e) })

	err := coord.DeleteRow(context.Background(), pageKey, "repeating-group", 1)
	if !errors.Is(err, ErrAttachmentDeletion) || !errors.Is(err, storageDown) {
		t.Fatalf("expected attachment deletion error, got %v", err)
	}
	if diff := cmp.Diff(initial, store.Snapshot()); diff != "" {
		t.Fatalf("state changed after failure (-want +got):\n%s", diff)
	}
	if len(events) != 0 {
		t.Fatalf("no events expected, got %+v", events)
	}
}

func TestDeleteRowRejectsBadInput(t *testing.T) {
	set := fixtureSet(t)
	coord := New(state.NewStore(fixtureState(t, set)), set)
	ctx := context.Background()

	if err := coord.DeleteRow(ctx, pageKey, "missing", 0); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
	if err := coord.DeleteRow(ctx, pageKey, "repeating-group", 3); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
	if err := coord.DeleteRow(ctx, pageKey, "repeating-group", -1); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
}

func TestDeleteNestedRow(t *testing.T) {
	set := fixtureSet(t)
	store := state.NewStore(fixtureState(t, set))
	coord := New(store, set)

	if err := coord.DeleteRow(context.Background(), pageKey, "sub-2", 0); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	snap := store.Snapshot()
	if _, ok := snap.DataModel["Group[2].sub[1].note"]; ok {
		t.Fatalf("row 1 should have moved down")
	}
	if got := snap.DataModel["Group[2].sub[0].note"]; got != "n21" {
		t.Fatalf("Group[2].sub[0].note = %v, want n21", got)
	}
	if got := snap.DataModel["Group[1].sub[0].note"]; got != "n10" {
		t.Fatalf("other rows must be untouched, got %v", got)
	}
	if got := snap.RepeatingGroups["sub-2"].Index; got != 0 {
		t.Fatalf("sub-2 index = %d, want 0", got)
	}
	if !snap.Validations.HasValidationMessages(pageKey, "note-2-0") {
		t.Fatalf("note-2-1 validation should have moved to note-2-0")
	}
}

func TestConcurrentDeletesAreSerialized(t *testing.T) {
	set := fixtureSet(t)
	store := state.NewStore(fixtureState(t, set))
	coord := New(store, set)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = coord.DeleteRow(context.Background(), pageKey, "repeating-group", 0)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("DeleteRow: %v", err)
		}
	}

	snap := store.Snapshot()
	if got := snap.RepeatingGroups["repeating-group"].Index; got != -1 {
		t.Fatalf("index = %d, want -1", got)
	}
	if keys := snap.DataModel.Keys(); len(keys) != 0 {
		t.Fatalf("expected empty data model, got %v", keys)
	}
}

func TestAddRowAndIndexes(t *testing.T) {
	set := fixtureSet(t)
	store := state.NewStore(state.State{RepeatingGroups: repgroups.States{
		"repeating-group": {Index: 0, EditIndex: -1, MultiPageIndex: -1, DataModelBinding: "Group"},
	}})
	coord := New(store, set)
	ctx := context.Background()

	var kinds []EventKind
	coord.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	for want := 1; want <= 2; want++ {
		got, err := coord.AddRow(ctx, "repeating-group")
		if err != nil {
			t.Fatalf("AddRow: %v", err)
		}
		if got != want {
			t.Fatalf("AddRow = %d, want %d", got, want)
		}
	}
	if _, err := coord.AddRow(ctx, "repeating-group"); !errors.Is(err, ErrMaxCountReached) {
		t.Fatalf("expected ErrMaxCountReached, got %v", err)
	}
	if got := store.Snapshot().RepeatingGroups["repeating-group"].EditIndex; got != 2 {
		t.Fatalf("edit index = %d, want 2", got)
	}

	if err := coord.SetEditIndex(ctx, "repeating-group", -1); err != nil {
		t.Fatalf("SetEditIndex: %v", err)
	}
	if err := coord.SetEditIndex(ctx, "repeating-group", 5); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
	if err := coord.SetMultiPageIndex(ctx, "repeating-group", 1); err != nil {
		t.Fatalf("SetMultiPageIndex: %v", err)
	}

	st := store.Snapshot().RepeatingGroups["repeating-group"]
	if st.EditIndex != -1 || st.MultiPageIndex != 1 {
		t.Fatalf("state = %+v", st)
	}
	want := []EventKind{RowAdded, RowAdded, EditIndexChanged, MultiPageIndexChanged}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRowSeedsNestedGroupsOfNewRow(t *testing.T) {
	set := fixtureSet(t)
	page, err := set.Page(pageKey)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	data := formdata.DataModel{"Group[0].name": "a", "Group[0].sub[0].note": "n00"}
	store := state.NewStore(state.State{
		DataModel:       data,
		RepeatingGroups: repgroups.ComputeRowCounts(page.Components, data),
	})
	coord := New(store, set)
	ctx := context.Background()

	row, err := coord.AddRow(ctx, "repeating-group")
	if err != nil || row != 1 {
		t.Fatalf("AddRow(repeating-group) = %d, %v", row, err)
	}
	want := repgroups.State{Index: -1, EditIndex: -1, MultiPageIndex: -1, DataModelBinding: "Group.sub", BaseGroupID: "sub"}
	if diff := cmp.Diff(want, store.Snapshot().RepeatingGroups["sub-1"]); diff != "" {
		t.Fatalf("sub-1 state mismatch (-want +got):\n%s", diff)
	}

	nested, err := coord.AddRow(ctx, "sub-1")
	if err != nil || nested != 0 {
		t.Fatalf("AddRow(sub-1) = %d, %v", nested, err)
	}
	if got := store.Snapshot().RepeatingGroups["sub-0"].Index; got != 0 {
		t.Fatalf("sub-0 index = %d, want 0", got)
	}
}

type observingDeleter struct {
	store *state.Store
	seen  []*int
	err   error
}

func (d *observingDeleter) DeleteAttachment(ctx context.Context, componentID string, att state.Attachment) error {
	d.seen = append(d.seen, d.store.Snapshot().RepeatingGroups["repeating-group"].DeletingIndex)
	return d.err
}

func TestDeleteRowMarksRowWhileDeletingAttachments(t *testing.T) {
	set := fixtureSet(t)
	initial := fixtureState(t, set)
	store := state.NewStore(initial)
	deleter := &observingDeleter{store: store, err: errors.New("storage unavailable")}
	coord := New(store, set, WithAttachmentDeleter(deleter), WithConcurrency(1))

	var published []*int
	unsubscribe := store.Subscribe(func(s state.State) {
		published = append(published, s.RepeatingGroups["repeating-group"].DeletingIndex)
	})
	defer unsubscribe()

	before := store.Version()
	if err := coord.DeleteRow(context.Background(), pageKey, "repeating-group", 1); !errors.Is(err, ErrAttachmentDeletion) {
		t.Fatalf("expected ErrAttachmentDeletion, got %v", err)
	}

	if len(deleter.seen) != 1 || deleter.seen[0] == nil || *deleter.seen[0] != 1 {
		t.Fatalf("deleting index during deletion = %v, want row 1", deleter.seen)
	}
	if got := store.Version() - before; got != 2 {
		t.Fatalf("version advanced by %d, want 2 (marker set and cleared)", got)
	}
	if len(published) != 2 || published[0] == nil || published[1] != nil {
		t.Fatalf("published markers = %v, want [row 1, nil]", published)
	}
	if diff := cmp.Diff(initial, store.Snapshot()); diff != "" {
		t.Fatalf("state changed after failure (-want +got):\n%s", diff)
	}
}
