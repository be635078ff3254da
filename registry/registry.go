// Package registry implements the name -> callable lookup table that
// the dispatch loop consults for every inbound WORK. Names are scoped
// to a domain so a peer can expose a restricted subset of its API to
// callers that a predicate does not trust with the default domain.
package registry

import "sync"

// Handler is an application procedure reachable by name. callerID is
// the authenticated user id of the peer that sent the WORK, populated
// only for entries registered with wantsCallerIdentity true.
type Handler func(callerID string, args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// Entry is one registered name, mirroring the data model in
// SPEC_FULL.md §5.
type Entry struct {
	Name                string
	Domain              string
	Handler             Handler
	WantsCallerIdentity bool
}

// DefaultDomain is the domain name used by Register when none is given,
// and is always tried last by Lookup so that more specific domains take
// precedence, per the original get_rpc_callable's candidate sort.
const DefaultDomain = "default"

// Registry is a name -> Entry table. The zero value is ready to use.
//
// Entries are kept in two slices rather than a flat map so that
// Lookup can prefer non-default domains without a secondary sort on
// every call: Register appends each entry to scoped or defaulted based
// on its Domain, and Lookup walks scoped before defaulted.
type Registry struct {
	mu       sync.RWMutex
	scoped   []*Entry
	defaulted []*Entry
	byName   map[string][]*Entry

	// parent is consulted by Lookup when no local entry matches,
	// mirroring zope's component registry adapter chaining used by
	// register_rpc/get_rpc_callable for a global fallback registry.
	parent *Registry
}

// New returns an empty Registry optionally chained to a parent that is
// consulted when a lookup finds nothing locally.
func New(parent *Registry) *Registry {
	return &Registry{
		byName: make(map[string][]*Entry),
		parent: parent,
	}
}

// Register adds h under name, scoped to domain (DefaultDomain if
// empty). Registering the same (name, domain) pair twice replaces the
// earlier entry.
func (r *Registry) Register(name, domain string, h Handler, wantsCallerIdentity bool) {
	if domain == "" {
		domain = DefaultDomain
	}
	entry := &Entry{Name: name, Domain: domain, Handler: h, WantsCallerIdentity: wantsCallerIdentity}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byName == nil {
		r.byName = make(map[string][]*Entry)
	}
	r.removeLocked(name, domain)
	r.byName[name] = append(r.byName[name], entry)
	if domain == DefaultDomain {
		r.defaulted = append(r.defaulted, entry)
	} else {
		r.scoped = append(r.scoped, entry)
	}
}

func (r *Registry) removeLocked(name, domain string) {
	existing := r.byName[name]
	kept := existing[:0]
	for _, e := range existing {
		if e.Domain == domain {
			continue
		}
		kept = append(kept, e)
	}
	r.byName[name] = kept

	r.scoped = filterOut(r.scoped, name, domain)
	r.defaulted = filterOut(r.defaulted, name, domain)
}

func filterOut(entries []*Entry, name, domain string) []*Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Name == name && e.Domain == domain {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Predicate gates whether an entry's domain may be used for a given
// caller. It plays the role of the original implementation's
// IPredicate adapters (PassThrough, FilterByModule).
type Predicate func(callerID string, entry *Entry) bool

// Lookup returns the first entry named name whose domain's predicate
// (if any, via predicates) allows callerID, trying non-default domains
// first. If nothing local matches and a parent registry was given,
// Lookup recurses into it.
func (r *Registry) Lookup(name, callerID string, predicates map[string]Predicate) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.scoped {
		if e.Name != name {
			continue
		}
		if allowed(e, callerID, predicates) {
			return e, true
		}
	}
	for _, e := range r.defaulted {
		if e.Name != name {
			continue
		}
		if allowed(e, callerID, predicates) {
			return e, true
		}
	}
	if r.parent != nil {
		return r.parent.Lookup(name, callerID, predicates)
	}
	return nil, false
}

func allowed(e *Entry, callerID string, predicates map[string]Predicate) bool {
	p, ok := predicates[e.Domain]
	if !ok {
		return e.Domain == DefaultDomain
	}
	return p(callerID, e)
}

// List returns every registered name, local entries only, in
// registration order (non-default domains first). It is exposed over
// the wire as the well-known WORK name "rpc.list_methods" (§6.B),
// mirroring the introspection call a reflection-based registry gives
// away for free.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scoped)+len(r.defaulted))
	seen := make(map[string]bool, len(names))
	for _, group := range [][]*Entry{r.scoped, r.defaulted} {
		for _, e := range group {
			if seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names
}
