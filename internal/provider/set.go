package provider

import "fmt"

// Set resolves a provider id to the adapter of its family. The orchestrator only
// asks for "a create function and a poll function for this provider id".
type Set struct {
	catalog  *Catalog
	adapters map[Family]Adapter
}

// NewSet wires one adapter per family on top of a shared client.
func NewSet(catalog *Catalog, client *Client) *Set {
	return NewSetWith(catalog, map[Family]Adapter{
		FamilyGemini:  NewGeminiAdapter(client),
		FamilyChat:    NewChatAdapter(client),
		FamilyKling:   NewKlingAdapter(client),
		FamilyUnified: NewUnifiedVideoAdapter(client),
		FamilySora:    NewSoraAdapter(client),
	})
}

// NewSetWith builds a Set from explicit adapters, mainly for tests.
func NewSetWith(catalog *Catalog, adapters map[Family]Adapter) *Set {
	return &Set{catalog: catalog, adapters: adapters}
}

// Catalog returns the catalog the set resolves against.
func (s *Set) Catalog() *Catalog {
	return s.catalog
}

// Adapter returns the create side for providerID.
func (s *Set) Adapter(providerID string) (Adapter, error) {
	m, ok := s.catalog.Get(providerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}
	a, ok := s.adapters[m.Family]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for family %s", ErrUnknownProvider, m.Family)
	}
	return a, nil
}

// Poller returns the poll side for providerID. ok is false for synchronous or
// unknown providers.
func (s *Set) Poller(providerID string) (Poller, bool) {
	a, err := s.Adapter(providerID)
	if err != nil {
		return nil, false
	}
	p, ok := a.(Poller)
	return p, ok
}
