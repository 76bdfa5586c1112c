// Package knowledge implements the knowledge base: the read-mostly fact
// store populated by preprocessing and consumed by parsers and workers
// during extraction.
//
// Lifecycle: the preprocessing scheduler fills the knowledge base before
// any extraction worker starts; once extraction begins it is treated as
// immutable and read concurrently by every worker without locking the
// individual facts. Setters remain internally synchronized so misuse fails
// safe rather than racing.
package knowledge

import (
	"sync"
	"time"

	"github.com/5l1v3r1/plaso/event"
)

// Well-known attribute names written by the stock preprocessing plugins.
const (
	AttrHostname   = "hostname"
	AttrTimezone   = "time_zone_str"
	AttrCodePage   = "code_page"
	AttrUsers      = "users"
	AttrSystemRoot = "systemroot"
	AttrOSVersion  = "osversion"
)

// User maps one account identifier (SID on Windows, UID elsewhere) to a
// username, as discovered by preprocessing.
type User struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
}

// Base is the knowledge base.
type Base struct {
	mu sync.RWMutex

	platform string
	hostname string
	codePage string
	timezone *time.Location
	users    []User
	byIdent  map[string]string

	// Escape hatch for plugin-specific facts without a dedicated field.
	values event.Map
}

// NewBase creates an empty knowledge base with defaults: UTC timezone and
// the cp1252 code page.
func NewBase() *Base {
	return &Base{
		codePage: "cp1252",
		timezone: time.UTC,
		byIdent:  make(map[string]string),
		values:   make(event.Map),
	}
}

// Platform returns the OS guess for the source, "" when undetermined.
func (b *Base) Platform() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.platform
}

// SetPlatform records the OS guess for the source.
func (b *Base) SetPlatform(platform string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.platform = platform
}

// Hostname returns the detected hostname, "" when unknown.
func (b *Base) Hostname() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hostname
}

// CodePage returns the detected code page, defaulting to cp1252.
func (b *Base) CodePage() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.codePage
}

// Timezone returns the detected timezone, defaulting to UTC.
func (b *Base) Timezone() *time.Location {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.timezone
}

// SetTimezone records the source timezone.
func (b *Base) SetTimezone(loc *time.Location) {
	if loc == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timezone = loc
}

// Users returns the discovered account table.
func (b *Base) Users() []User {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]User, len(b.users))
	copy(result, b.users)
	return result
}

// SetUsers records the account table and rebuilds the identifier index.
func (b *Base) SetUsers(users []User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = users
	b.byIdent = make(map[string]string, len(users))
	for _, user := range users {
		if user.Identifier != "" {
			b.byIdent[user.Identifier] = user.Name
		}
	}
}

// UsernameByIdentifier resolves a SID or UID to a username. Returns "-"
// when the identifier is empty or unknown, matching the timeline output
// convention for an unresolvable account.
func (b *Base) UsernameByIdentifier(identifier string) string {
	if identifier == "" {
		return "-"
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if name, ok := b.byIdent[identifier]; ok && name != "" {
		return name
	}
	return "-"
}

// Value retrieves a named fact. The boolean reports presence; callers must
// treat an absent attribute as "unknown", never as an error.
func (b *Base) Value(name string) (event.Value, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[name]
	return value, ok
}

// StringValue retrieves a named fact as a string, "" when absent.
func (b *Base) StringValue(name string) string {
	value, _ := b.Value(name)
	s, _ := value.AsString()
	return s
}

// SetValue records a named fact. The well-known attribute names also update
// the dedicated fields so the typed getters observe them.
func (b *Base) SetValue(name string, value event.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[name] = value

	switch name {
	case AttrHostname:
		if s, ok := value.AsString(); ok {
			b.hostname = s
		}
	case AttrCodePage:
		if s, ok := value.AsString(); ok && s != "" {
			b.codePage = s
		}
	case AttrTimezone:
		if s, ok := value.AsString(); ok {
			if loc, err := time.LoadLocation(s); err == nil {
				b.timezone = loc
			}
		}
	}
}
