// Package permission provides the runtime permission collaborator.
package permission

import (
	"os"

	zlog "github.com/rs/zerolog/log"
)

// Permissions requested before the media store is read.
const (
	ReadMediaVideo      = "READ_MEDIA_VIDEO"
	ReadExternalStorage = "READ_EXTERNAL_STORAGE"
)

// Status is the grant state of a single permission.
type Status int

const (
	StatusDenied  Status = iota // Not granted
	StatusGranted               // Granted
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusDenied:
		return "denied"
	case StatusGranted:
		return "granted"
	default:
		return "unknown"
	}
}

// Result is the outcome of requesting one permission.
type Result struct {
	Name   string
	Status Status
}

// Callback receives the results of a request, tagged with its request code.
type Callback func(requestCode int, results []Result)

// AnyGranted reports whether at least one permission of a request was granted.
func AnyGranted(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusGranted {
			return true
		}
	}
	return false
}

// Config lists the permissions the user has granted and the media roots
// storage permissions give access to.
type Config struct {
	Granted []string
	Roots   []string
}

// Manager answers permission checks and requests.
// Request callbacks are delivered through post, never synchronously.
type Manager struct {
	granted map[string]bool
	roots   []string
	post    func(func())
}

// NewManager creates a permission manager.
func NewManager(cfg Config, post func(func())) *Manager {
	granted := make(map[string]bool, len(cfg.Granted))
	for _, name := range cfg.Granted {
		granted[name] = true
	}
	return &Manager{
		granted: granted,
		roots:   cfg.Roots,
		post:    post,
	}
}

// CheckGranted reports whether a permission is currently granted.
// Storage permissions also require at least one readable media root.
func (m *Manager) CheckGranted(name string) bool {
	if !m.granted[name] {
		return false
	}
	if isStoragePermission(name) {
		return m.anyRootReadable()
	}
	return true
}

// Request asks for the given permissions. The callback runs later on the
// UI loop with one result per requested name, in request order.
func (m *Manager) Request(names []string, requestCode int, callback Callback) {
	results := make([]Result, 0, len(names))
	for _, name := range names {
		status := StatusDenied
		if m.CheckGranted(name) {
			status = StatusGranted
		}
		results = append(results, Result{Name: name, Status: status})
	}

	zlog.Debug().Msgf("permission: request code=%d results=%v", requestCode, results)
	m.post(func() {
		callback(requestCode, results)
	})
}

func (m *Manager) anyRootReadable() bool {
	for _, root := range m.roots {
		f, err := os.Open(root)
		if err != nil {
			continue
		}
		_ = f.Close()
		return true
	}
	return false
}

func isStoragePermission(name string) bool {
	return name == ReadMediaVideo || name == ReadExternalStorage
}
