package validation

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/goliatone/go-formlayout/internal/logonce"
	"github.com/goliatone/go-formlayout/pkg/hierarchy"
	"github.com/goliatone/go-formlayout/pkg/textresources"
)

// BackendSeverity is the numeric severity used on the wire by the backend.
type BackendSeverity int

const (
	BackendUnspecified   BackendSeverity = 0
	BackendError         BackendSeverity = 1
	BackendWarning       BackendSeverity = 2
	BackendInformational BackendSeverity = 3
	BackendFixed         BackendSeverity = 4
	BackendSuccess       BackendSeverity = 5
)

var backendSeverities = map[BackendSeverity]Severity{
	BackendUnspecified:   SeverityUnspecified,
	BackendError:         SeverityErrors,
	BackendWarning:       SeverityWarnings,
	BackendInformational: SeverityInfo,
	BackendFixed:         SeverityFixed,
	BackendSuccess:       SeveritySuccess,
}

// Severity converts to the frontend severity.
func (s BackendSeverity) Severity() (Severity, bool) {
	sev, ok := backendSeverities[s]
	return sev, ok
}

// BackendIssue is one validation issue reported by the backend.
type BackendIssue struct {
	Code          string          `json:"code"`
	Description   string          `json:"description"`
	Field         string          `json:"field"`
	Scope         *string         `json:"scope"`
	Severity      BackendSeverity `json:"severity"`
	TargetID      string          `json:"targetId"`
	Source        string          `json:"source,omitempty"`
	CustomTextKey string          `json:"customTextKey,omitempty"`
}

// Unmapped is the page and component key for issues that match no node.
const Unmapped = "unmapped"

// DroppedIssue is a backend issue that could not be mapped at all.
type DroppedIssue struct {
	Issue  BackendIssue `json:"issue"`
	Reason string       `json:"reason"`
}

// MapOption configures MapBackendIssues.
type MapOption func(*mapper)

type mapper struct {
	text   func(key string) string
	logger *logonce.Logger
}

// WithText resolves customTextKey through text.
func WithText(text func(key string) string) MapOption {
	return func(m *mapper) { m.text = text }
}

// WithLogger reports dropped issues through logger, once per reason and code.
func WithLogger(logger *slog.Logger) MapOption {
	return func(m *mapper) { m.logger = logonce.New(logger) }
}

// MapBackendIssues turns backend issues into a Result. An issue is attached to
// every node whose resolved binding equals its field, else to the node named
// by its target id, else to the unmapped page. Issues without field and
// target, or with an unknown severity, are dropped and returned.
func MapBackendIssues(issues []BackendIssue, pages *hierarchy.LayoutPages, opts ...MapOption) (Result, []DroppedIssue) {
	m := &mapper{logger: logonce.New(nil)}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	byBinding := bindingIndex(pages)

	var (
		objects []Object
		dropped []DroppedIssue
	)
	drop := func(issue BackendIssue, reason string) {
		dropped = append(dropped, DroppedIssue{Issue: issue, Reason: reason})
		m.logger.Warn("backend-issue|"+reason+"|"+issue.Code, "dropping backend validation issue",
			"reason", reason, "code", issue.Code, "field", issue.Field, "target", issue.TargetID)
	}

	for _, issue := range issues {
		sev, ok := issue.Severity.Severity()
		if !ok {
			drop(issue, fmt.Sprintf("unknown severity %d", issue.Severity))
			continue
		}
		if issue.Field == "" && issue.TargetID == "" {
			drop(issue, "no field or target")
			continue
		}
		msg := m.message(issue)

		if targets := byBinding[issue.Field]; issue.Field != "" && len(targets) > 0 {
			for _, t := range targets {
				objects = append(objects, Message(t.page, t.id, t.key, sev, msg))
			}
			continue
		}
		if node := findTarget(pages, issue.TargetID); node != nil {
			objects = append(objects, Message(node.Page().Name(), node.ID(), "simpleBinding", sev, msg))
			continue
		}
		objects = append(objects, Message(Unmapped, Unmapped, issue.Field, sev, msg))
	}
	return BuildResult(objects), dropped
}

func (m *mapper) message(issue BackendIssue) string {
	msg := issue.Description
	if issue.CustomTextKey != "" && m.text != nil {
		msg = m.text(issue.CustomTextKey)
	}
	if msg == "" {
		msg = issue.Code
	}
	return textresources.Sanitize(msg)
}

type bindingTarget struct {
	page string
	id   string
	key  string
}

func bindingIndex(pages *hierarchy.LayoutPages) map[string][]bindingTarget {
	out := make(map[string][]bindingTarget)
	if pages == nil {
		return out
	}
	for _, page := range pages.All() {
		for _, node := range page.Flat(true) {
			for key, path := range node.Bindings() {
				if path == "" || key == "group" {
					continue
				}
				out[path] = append(out[path], bindingTarget{page: page.Name(), id: node.ID(), key: key})
			}
		}
	}
	for _, ts := range out {
		sort.Slice(ts, func(i, j int) bool { return targetLess(ts[i], ts[j]) })
	}
	return out
}

func findTarget(pages *hierarchy.LayoutPages, id string) *hierarchy.LayoutNode {
	if pages == nil || id == "" {
		return nil
	}
	if node := pages.FindByID(id); node != nil {
		return node
	}
	if nodes := pages.FindAllByBaseID(id); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

func targetLess(a, b bindingTarget) bool {
	if a.page != b.page {
		return a.page < b.page
	}
	if a.id != b.id {
		return a.id < b.id
	}
	return a.key < b.key
}
