package layout

import (
	"sort"
	"strings"
	"sync"
)

// Category classifies what a component kind does on a page.
type Category string

const (
	CategoryForm         Category = "form"
	CategoryContainer    Category = "container"
	CategoryPresentation Category = "presentation"
	CategoryAction       Category = "action"
	CategoryUnknown      Category = "unknown"
)

// Kind describes one component type and the capabilities the engine needs to
// know about. Kinds are registered once; a type tag that resolves to no kind
// resolves to Unknown instead.
type Kind struct {
	Name                string
	Category            Category
	CanHaveChildren     bool
	SupportsRepeat      bool
	RenderInTable       bool
	RenderInButtonGroup bool
	HasAttachments      bool
	// BindingKeys lists the data model binding names the kind reads. The first
	// entry is the primary binding used by component lookups.
	BindingKeys []string
}

// Unknown is the inert kind assigned to unrecognised type tags.
var Unknown = &Kind{Name: "", Category: CategoryUnknown}

// IsUnknown reports whether k is the placeholder kind.
func (k *Kind) IsUnknown() bool {
	return k == nil || k == Unknown
}

// PrimaryBinding returns the binding key component lookups read.
func (k *Kind) PrimaryBinding() string {
	if k == nil || len(k.BindingKeys) == 0 {
		return ""
	}
	return k.BindingKeys[0]
}

// Registry maps type tags to kinds.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}

// NewRegistry returns a registry populated with the built-in kinds.
func NewRegistry() *Registry {
	reg := &Registry{kinds: make(map[string]*Kind)}
	reg.registerBuiltins()
	return reg
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the shared built-in registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register adds or replaces a kind. Empty names are ignored.
func (r *Registry) Register(kind Kind) {
	if r == nil {
		return
	}
	name := strings.TrimSpace(kind.Name)
	if name == "" {
		return
	}
	kind.Name = name
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[name] = &kind
}

// Resolve returns the kind registered for typ, or Unknown.
func (r *Registry) Resolve(typ string) (*Kind, bool) {
	if r == nil {
		return Unknown, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.kinds[typ]
	if !ok {
		return Unknown, false
	}
	return kind, true
}

// Names lists the registered type tags in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) registerBuiltins() {
	simple := []string{"simpleBinding"}

	for _, name := range []string{
		"Input", "TextArea", "Checkboxes", "RadioButtons", "Dropdown",
		"MultipleSelect", "Datepicker", "Likert", "Map", "Custom",
	} {
		r.Register(Kind{Name: name, Category: CategoryForm, RenderInTable: true, BindingKeys: simple})
	}
	r.Register(Kind{
		Name:          "AddressComponent",
		Category:      CategoryForm,
		RenderInTable: true,
		BindingKeys:   []string{"address", "zipCode", "postPlace", "careOf", "houseNumber"},
	})
	r.Register(Kind{Name: "FileUpload", Category: CategoryForm, HasAttachments: true, BindingKeys: []string{"simpleBinding", "list"}})
	r.Register(Kind{Name: "FileUploadWithTag", Category: CategoryForm, HasAttachments: true, BindingKeys: []string{"simpleBinding", "list"}})

	r.Register(Kind{Name: TypeGroup, Category: CategoryContainer, CanHaveChildren: true, SupportsRepeat: true, BindingKeys: []string{"group"}})

	for _, name := range []string{
		"Header", "Paragraph", "Image", "Panel", "Alert", "Summary", "AttachmentList", "Grid",
	} {
		r.Register(Kind{Name: name, Category: CategoryPresentation})
	}

	for _, name := range []string{
		"Button", "NavigationButtons", "PrintButton", "InstantiationButton", "ActionButton", "NavigationBar",
	} {
		r.Register(Kind{Name: name, Category: CategoryAction, RenderInButtonGroup: true})
	}
	r.Register(Kind{Name: "ButtonGroup", Category: CategoryContainer})
}
