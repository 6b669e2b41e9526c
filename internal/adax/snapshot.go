package adax

import (
	"maps"
	"slices"
	"sync"
)

// Snapshot holds the last fetched view of the account. Fetches replace it
// wholesale; the only partial update is PatchRoom after a successful write.
type Snapshot struct {
	mu      sync.RWMutex
	homes   []Home
	rooms   []Room
	devices []Device
	energy  map[int]EnergyLog
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{energy: make(map[int]EnergyLog)}
}

// ReplaceContent replaces homes, rooms and devices in one step
func (s *Snapshot) ReplaceContent(homes []Home, rooms []Room, devices []Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.homes = homes
	s.rooms = rooms
	s.devices = devices
}

// ReplaceEnergy replaces the energy mapping. Callers only commit complete mappings.
func (s *Snapshot) ReplaceEnergy(energy map[int]EnergyLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.energy = energy
}

// PatchRoom applies a sent setpoint to the matching room. The heating flag
// is only touched when heating is non-nil. Returns false if no room matched.
func (s *Snapshot) PatchRoom(id int, target float64, heating *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].ID != id {
			continue
		}
		s.rooms[i].TargetTemperature = target
		if heating != nil {
			s.rooms[i].HeatingEnabled = *heating
		}
		return true
	}
	return false
}

// Homes returns a copy of the homes
func (s *Snapshot) Homes() []Home {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.homes)
}

// Rooms returns a copy of the rooms
func (s *Snapshot) Rooms() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rooms)
}

// Devices returns a copy of the devices
func (s *Snapshot) Devices() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.devices)
}

// Energy returns a copy of the energy mapping
func (s *Snapshot) Energy() map[int]EnergyLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.energy)
}

// Room returns the room with the given id
func (s *Snapshot) Room(id int) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}
