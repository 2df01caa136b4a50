package rowmutation

// EventKind names a committed change.
type EventKind string

const (
	AttachmentDeleted     EventKind = "attachment-deleted"
	RowDeleted            EventKind = "row-deleted"
	RowAdded              EventKind = "row-added"
	ValidationUpdated     EventKind = "validation-updated"
	EditIndexChanged      EventKind = "edit-index-changed"
	MultiPageIndexChanged EventKind = "multi-page-index-changed"
)

// Event describes one committed change. Only the fields relevant to the kind
// are set.
type Event struct {
	Kind         EventKind
	PageKey      string
	GroupID      string
	Row          int
	ComponentID  string
	AttachmentID string
}
