// Package export provides the formatter and importer plugins of the back
// office. Plugins implement one capability interface and are registered
// under a category and an identifier; a manifest selects which of them are
// enabled at startup.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"abo/internal/logger"
	"abo/pkg/models"
	"abo/pkg/services"
	"github.com/rs/zerolog"
)

// Plugin categories.
const (
	CategoryInvoice = "invoice" // InvoiceFormatter
	CategoryAddress = "address" // ContractFormatter
	CategoryBank    = "bank"    // ImporterFactory
)

// Key identifies a plugin.
type Key struct {
	Category string `json:"category"`
	ID       string `json:"id"`
}

func (k Key) String() string {
	return k.Category + "/" + k.ID
}

// Progress reports how many items a formatter has written.
type Progress struct {
	Done  int
	Total int
}

// InvoiceFormatter writes invoices to w. If progress is not nil, one
// Progress is sent per written item.
type InvoiceFormatter interface {
	Write(ctx context.Context, invoices []*models.Invoice, w io.Writer, progress chan<- Progress) error
}

// ContractFormatter writes contracts to w. If progress is not nil, one
// Progress is sent per written item.
type ContractFormatter interface {
	Write(ctx context.Context, contracts []*models.Contract, w io.Writer, progress chan<- Progress) error
}

// ImporterFactory creates an importer reading from source, typically a
// file path.
type ImporterFactory func(ctx context.Context, source string) (services.Importer, error)

type entry struct {
	invoice  InvoiceFormatter
	contract ContractFormatter
	importer ImporterFactory
	enabled  bool
}

// Registry holds the known plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[Key]*entry
	log     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[Key]*entry),
		log:     logger.WithComponent("export-registry"),
	}
}

// RegisterInvoiceFormatter registers f under the invoice category.
func (r *Registry) RegisterInvoiceFormatter(id string, f InvoiceFormatter) error {
	return r.register(Key{CategoryInvoice, id}, &entry{invoice: f, enabled: true})
}

// RegisterContractFormatter registers f under the address category.
func (r *Registry) RegisterContractFormatter(id string, f ContractFormatter) error {
	return r.register(Key{CategoryAddress, id}, &entry{contract: f, enabled: true})
}

// RegisterImporter registers f under the bank category.
func (r *Registry) RegisterImporter(id string, f ImporterFactory) error {
	return r.register(Key{CategoryBank, id}, &entry{importer: f, enabled: true})
}

func (r *Registry) register(key Key, e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[key]; exists {
		return fmt.Errorf("plugin %s already registered", key)
	}
	r.plugins[key] = e
	r.log.Debug().Str("plugin", key.String()).Msg("Registered plugin")
	return nil
}

func (r *Registry) lookup(key Key) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.plugins[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, key)
	}
	if !e.enabled {
		return nil, fmt.Errorf("%w: %s", ErrPluginDisabled, key)
	}
	return e, nil
}

// InvoiceFormatter returns the enabled invoice formatter id.
func (r *Registry) InvoiceFormatter(id string) (InvoiceFormatter, error) {
	e, err := r.lookup(Key{CategoryInvoice, id})
	if err != nil {
		return nil, err
	}
	return e.invoice, nil
}

// ContractFormatter returns the enabled address formatter id.
func (r *Registry) ContractFormatter(id string) (ContractFormatter, error) {
	e, err := r.lookup(Key{CategoryAddress, id})
	if err != nil {
		return nil, err
	}
	return e.contract, nil
}

// Importer creates an importer from the enabled bank plugin id.
func (r *Registry) Importer(ctx context.Context, id, source string) (services.Importer, error) {
	e, err := r.lookup(Key{CategoryBank, id})
	if err != nil {
		return nil, err
	}
	return e.importer(ctx, source)
}

// List returns the keys of all enabled plugins, sorted.
func (r *Registry) List() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var keys []Key
	for k, e := range r.plugins {
		if e.enabled {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

// Apply enables exactly the plugins listed in m. Listing an unknown plugin
// is an error and leaves the registry unchanged.
func (r *Registry) Apply(m *Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[Key]bool, len(m.Enabled))
	for _, k := range m.Enabled {
		if _, ok := r.plugins[k]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPlugin, k)
		}
		wanted[k] = true
	}
	for k, e := range r.plugins {
		e.enabled = wanted[k]
	}

	r.log.Info().Int("enabled", len(wanted)).Int("registered", len(r.plugins)).Msg("Plugin manifest applied")
	return nil
}

// sendProgress reports progress unless ch is nil. It gives up when ctx is
// done.
func sendProgress(ctx context.Context, ch chan<- Progress, done, total int) error {
	if ch == nil {
		return ctx.Err()
	}
	select {
	case ch <- Progress{Done: done, Total: total}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
