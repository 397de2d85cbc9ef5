// Package lifecycle binds services to the lifetime of an open design document.
//
// A Registry is an explicit, independently constructible object: services are
// added to it, registered in order when a document opens, and deregistered in
// reverse order when it closes. There is no process-wide registry.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/brplusa/spacelink/internal/space"
)

var (
	// ErrDocumentOpen is returned by Opened while another document is open.
	ErrDocumentOpen = errors.New("a document is already open")

	// ErrNoDocument is returned by Closed when no document is open.
	ErrNoDocument = errors.New("no document is open")
)

// Document identifies an open design document.
type Document struct {
	// Path is the design document's file path.
	Path string
}

// StorePath returns the relationship store path for the document: the
// document's directory joined with space.StoreFileName.
func (d Document) StorePath() string {
	return StorePath(d.Path)
}

// StorePath returns the relationship store path for a design document path.
func StorePath(docPath string) string {
	return filepath.Join(filepath.Dir(docPath), space.StoreFileName)
}

// Updater is a service that lives while a document is open.
type Updater interface {
	// Name identifies the updater in logs and errors.
	Name() string
	// Register binds the updater to doc.
	Register(ctx context.Context, doc Document) error
	// Deregister releases whatever Register acquired.
	Deregister(ctx context.Context) error
}

// Registry holds updaters and drives them through document open/close.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	updaters   []Updater
	registered []Updater
	active     *Document
	logger     *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger means slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Add appends updaters. Updaters added while a document is open take effect
// on the next Opened.
func (r *Registry) Add(updaters ...Updater) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updaters = append(r.updaters, updaters...)
}

// Opened registers every updater with doc, in the order they were added.
//
// If one fails, the updaters already registered are deregistered again and
// the document is not considered open.
func (r *Registry) Opened(ctx context.Context, doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return fmt.Errorf("open %s: %w (%s)", doc.Path, ErrDocumentOpen, r.active.Path)
	}

	for _, u := range r.updaters {
		if err := u.Register(ctx, doc); err != nil {
			rollbackErr := r.deregisterAll(ctx)
			return errors.Join(fmt.Errorf("register %s: %w", u.Name(), err), rollbackErr)
		}
		r.registered = append(r.registered, u)
		r.logger.Debug("updater registered", "updater", u.Name(), "document", doc.Path)
	}

	r.active = &doc
	return nil
}

// Closed deregisters every registered updater in reverse order. All updaters
// are attempted; their errors are joined.
func (r *Registry) Closed(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return ErrNoDocument
	}
	r.active = nil
	return r.deregisterAll(ctx)
}

// Active returns the open document, if any.
func (r *Registry) Active() (Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return Document{}, false
	}
	return *r.active, true
}

// deregisterAll must be called with r.mu held.
func (r *Registry) deregisterAll(ctx context.Context) error {
	var errs []error
	for i := len(r.registered) - 1; i >= 0; i-- {
		u := r.registered[i]
		if err := u.Deregister(ctx); err != nil {
			errs = append(errs, fmt.Errorf("deregister %s: %w", u.Name(), err))
			continue
		}
		r.logger.Debug("updater deregistered", "updater", u.Name())
	}
	r.registered = nil
	return errors.Join(errs...)
}
