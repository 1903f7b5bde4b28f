// gatekeeper/catalog/file_catalog.go
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	sec_errors "github.com/dev-mohitbeniwal/echo/gatekeeper/errors"
	logger "github.com/dev-mohitbeniwal/echo/gatekeeper/logging"
	"github.com/dev-mohitbeniwal/echo/gatekeeper/model"
)

// document is the on-disk shape of a catalog file.
type document struct {
	Queries []*model.Query `yaml:"queries"`
}

// FileCatalog serves query definitions loaded from a YAML file. Lookups
// return copies, so callers may rewrite SQL freely.
type FileCatalog struct {
	mu      sync.RWMutex
	queries map[string]*model.Query
}

func LoadFile(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrInvalidCatalog, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logger.Info("Query catalog loaded", zap.String("path", path), zap.Int("queries", c.Len()))
	return c, nil
}

// Parse builds a catalog from YAML. Security specs are validated while
// decoding, so a bad spec fails the whole catalog.
func Parse(data []byte) (*FileCatalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", sec_errors.ErrInvalidCatalog, err)
	}

	c := &FileCatalog{queries: make(map[string]*model.Query, len(doc.Queries))}
	for i, q := range doc.Queries {
		if q == nil || q.QName == "" {
			return nil, fmt.Errorf("%w: entry %d has no qname", sec_errors.ErrInvalidCatalog, i)
		}
		if q.SQL == "" {
			return nil, fmt.Errorf("%w: query %s has no sql", sec_errors.ErrInvalidCatalog, q.QName)
		}
		if _, dup := c.queries[q.QName]; dup {
			return nil, fmt.Errorf("%w: duplicate qname %s", sec_errors.ErrInvalidCatalog, q.QName)
		}
		c.queries[q.QName] = q
	}
	return c, nil
}

func (c *FileCatalog) FindQuery(_ context.Context, qname string) (*model.Query, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.queries[qname]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sec_errors.ErrQueryNotFound, qname)
	}
	return q.Clone(), nil
}

// Put adds or replaces a query.
func (c *FileCatalog) Put(q *model.Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[q.QName] = q.Clone()
}

// Legacy lists, in sorted order, the protected queries without a security
// spec. They can only be evaluated against a lock store.
func (c *FileCatalog) Legacy() []string {
	var names []string
	for _, name := range c.Names() {
		c.mu.RLock()
		q := c.queries[name]
		c.mu.RUnlock()
		if q.Protected && q.Security == nil {
			names = append(names, name)
		}
	}
	return names
}

// Names lists every qname in sorted order.
func (c *FileCatalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.queries))
	for n := range c.queries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *FileCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queries)
}
