// Package identity resolves the stable owner id for captured notes.
package identity

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kimhsiao/memovox/backend/internal/logging"
	"github.com/kimhsiao/memovox/backend/internal/uuid"
)

// AnonymousOwnerID is the degraded fallback when the persisted device id
// cannot be read or written. Stable so offline notes still group under one
// owner.
const AnonymousOwnerID = "anonymous"

// Provider resolves and caches the owner id for this device.
// The id is derived exactly once per process start; lookups after that are
// cheap and never re-derive. Resolution never fails: storage problems
// degrade to AnonymousOwnerID instead of blocking the capture pipeline.
type Provider struct {
	dataDir string

	once    sync.Once
	ownerID string
}

// NewProvider creates a Provider rooted at the given data directory.
func NewProvider(dataDir string) *Provider {
	return &Provider{dataDir: dataDir}
}

// OwnerID returns the owner id, initializing it on first call.
func (p *Provider) OwnerID() string {
	p.once.Do(func() {
		p.ownerID = p.resolve()
	})
	return p.ownerID
}

// resolve loads the persisted device id, creating one on first run.
func (p *Provider) resolve() string {
	path := filepath.Join(p.dataDir, "device_id")

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if uuid.IsValid(id) {
			return id
		}
		logging.Warn("Persisted device id is malformed, regenerating",
			map[string]interface{}{"path": path})
	}

	id := uuid.New()

	if err := os.MkdirAll(p.dataDir, 0755); err != nil {
		logging.Warn("Cannot create data directory, using anonymous owner id",
			map[string]interface{}{"error": err.Error()})
		return AnonymousOwnerID
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		logging.Warn("Cannot persist device id, using anonymous owner id",
			map[string]interface{}{"error": err.Error()})
		return AnonymousOwnerID
	}

	return id
}
