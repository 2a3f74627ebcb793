// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package drivers defines the pluggable connector contract and its registry.
//
// A Driver maps a provider string to a connector with a stable three-call
// contract: TestConnection, Metadata, Query. The federation core consumes
// drivers through this interface only; provider-specific behavior lives in
// the driver implementations.
package drivers

import (
	"context"
	"fmt"
	"sync"
)

// Column describes one column of a driver-discovered table.
type Column struct {
	Name string
	Type string
}

// TableMetadata describes one table shape discovered by a driver.
type TableMetadata struct {
	Name    string
	Columns []Column
}

// Result is a tabular query result.
type Result struct {
	Columns []string
	Rows    [][]interface{}
}

// Driver is the pluggable connector contract.
type Driver interface {
	// Name returns the provider identifier this driver handles.
	Name() string

	// TestConnection verifies the source is reachable with the given config.
	TestConnection(ctx context.Context, cfg map[string]string) error

	// Metadata discovers table shapes from the source. At least one table is
	// returned for a healthy source.
	Metadata(ctx context.Context, cfg map[string]string) ([]TableMetadata, error)

	// Query executes a query directly against the source.
	Query(ctx context.Context, cfg map[string]string, query string) (*Result, error)
}

// Registry maps provider names to drivers.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers: make(map[string]Driver),
	}
}

// NewDefaultRegistry creates a registry with the built-in relational drivers
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PostgresDriver{})
	r.Register(&MySQLDriver{})
	return r
}

// Register registers a driver under its provider name. An existing driver
// with the same name is replaced.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Name()] = d
}

// Get retrieves a driver by provider name.
func (r *Registry) Get(name string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[name]
	return d, ok
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	return names
}

// MustGet retrieves a driver or returns a descriptive error.
func (r *Registry) MustGet(name string) (Driver, error) {
	d, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("no driver registered for provider: %s", name)
	}
	return d, nil
}
