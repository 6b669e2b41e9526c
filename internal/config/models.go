package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/muurk/adax/internal/adax"
)

// Registry represents the entire user configuration file.
// It stores the account, API tuning, room aliases and CLI preferences.
type Registry struct {
	Version     int               `yaml:"version"`
	Account     *Account          `yaml:"account,omitempty"`
	API         *APIPrefs         `yaml:"api,omitempty"`
	Rooms       map[int]*RoomMeta `yaml:"rooms,omitempty"` // Keyed by Adax room id
	Preferences *Preferences      `yaml:"preferences,omitempty"`
}

// Account identifies the Adax account.
// Note: The password is NEVER stored - it comes from ADAX_PASSWORD or a prompt.
type Account struct {
	ID string `yaml:"id"` // Account id shown in the Adax app
}

// APIPrefs tunes the API client.
type APIPrefs struct {
	BaseURL         string        `yaml:"base_url,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"` // Per-call timeout (e.g. "10s")
	WithEnergy      bool          `yaml:"with_energy"`
	FetchEnergyLogs bool          `yaml:"fetch_energy_logs"`
}

// RoomMeta is user-defined metadata for a room. The API knows nothing about it.
type RoomMeta struct {
	Alias string `yaml:"alias"`          // Short name usable on the command line
	Icon  string `yaml:"icon,omitempty"` // Optional emoji shown next to the room
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	Format        string        `yaml:"format"`         // Output format: "detailed" or "json"
	WatchInterval time.Duration `yaml:"watch_interval"` // Refresh interval for `adax watch`
	Listen        string        `yaml:"listen"`         // Bridge listen address for `adax serve`
}

func defaultAPIPrefs() *APIPrefs {
	return &APIPrefs{
		BaseURL:         adax.DefaultBaseURL,
		Timeout:         adax.DefaultTimeout,
		FetchEnergyLogs: true,
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		Format:        "detailed",
		WatchInterval: 30 * time.Second,
		Listen:        ":8080",
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Account:     &Account{},
		API:         defaultAPIPrefs(),
		Rooms:       make(map[int]*RoomMeta),
		Preferences: defaultPreferences(),
	}
}

// SetRoomAlias sets or updates the alias and icon of a room.
func (r *Registry) SetRoomAlias(roomID int, alias, icon string) {
	if r.Rooms == nil {
		r.Rooms = make(map[int]*RoomMeta)
	}
	r.Rooms[roomID] = &RoomMeta{Alias: alias, Icon: icon}
}

// RoomLabel returns the alias of a room, or name if it has none.
func (r *Registry) RoomLabel(roomID int, name string) string {
	if meta := r.Rooms[roomID]; meta != nil && meta.Alias != "" {
		if meta.Icon != "" {
			return meta.Icon + " " + meta.Alias
		}
		return meta.Alias
	}
	return name
}

// ResolveRoom maps a command-line room reference to a room id. The reference
// is either a numeric id or a case-insensitive alias.
func (r *Registry) ResolveRoom(ref string) (int, bool) {
	if id, err := strconv.Atoi(ref); err == nil {
		return id, true
	}
	for id, meta := range r.Rooms {
		if meta != nil && strings.EqualFold(meta.Alias, ref) {
			return id, true
		}
	}
	return 0, false
}

// ClientConfig builds the API client configuration. password is supplied by
// the caller since it is never part of the file. Request spacing is fixed by
// the API and cannot be configured.
func (r *Registry) ClientConfig(password string) adax.Config {
	cfg := adax.Config{Password: password}
	if r.Account != nil {
		cfg.AccountID = r.Account.ID
	}
	if r.API != nil {
		cfg.BaseURL = r.API.BaseURL
		cfg.Timeout = r.API.Timeout
		cfg.WithEnergy = r.API.WithEnergy
		cfg.SkipEnergyLogs = !r.API.FetchEnergyLogs
	}
	return cfg
}
