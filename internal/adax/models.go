package adax

import (
	"encoding/json"
	"math"
	"strconv"
)

// Home is an Adax home as returned by the content endpoint.
type Home struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Room is a heated room. Temperatures are in °C; the API carries them as
// integer hundredths of a degree and they are scaled on ingest.
type Room struct {
	ID                int     `json:"id"`
	HomeID            int     `json:"homeId"`
	Name              string  `json:"name"`
	HeatingEnabled    bool    `json:"heatingEnabled"`
	TargetTemperature float64 `json:"targetTemperature"`
	Temperature       float64 `json:"temperature"`
	EnergyWh          int64   `json:"energyWh,omitempty"`
	EnergyTime        int64   `json:"energyTime,omitempty"`
}

// Device is a single heater.
type Device struct {
	ID         int    `json:"id"`
	HomeID     int    `json:"homeId"`
	RoomID     int    `json:"roomId"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	EnergyWh   int64  `json:"energyWh,omitempty"`
	EnergyTime int64  `json:"energyTime,omitempty"`
}

// EnergyLog is the undecoded energy_log response for one room.
type EnergyLog = json.RawMessage

// apiRoom is the wire form of Room.
type apiRoom struct {
	ID                int    `json:"id"`
	HomeID            int    `json:"homeId"`
	Name              string `json:"name"`
	HeatingEnabled    bool   `json:"heatingEnabled"`
	TargetTemperature int64  `json:"targetTemperature"`
	Temperature       int64  `json:"temperature"`
	EnergyWh          int64  `json:"energyWh"`
	EnergyTime        int64  `json:"energyTime"`
}

func (r apiRoom) toRoom() Room {
	return Room{
		ID:                r.ID,
		HomeID:            r.HomeID,
		Name:              r.Name,
		HeatingEnabled:    r.HeatingEnabled,
		TargetTemperature: float64(r.TargetTemperature) / 100.0,
		Temperature:       float64(r.Temperature) / 100.0,
		EnergyWh:          r.EnergyWh,
		EnergyTime:        r.EnergyTime,
	}
}

// contentResponse is the body of GET /rest/v1/content/.
type contentResponse struct {
	Homes   []Home    `json:"homes"`
	Rooms   []apiRoom `json:"rooms"`
	Devices []Device  `json:"devices"`
}

// RoomUpdate is a requested setpoint change. A nil HeatingEnabled leaves the
// room's heating flag untouched.
type RoomUpdate struct {
	ID                int
	TargetTemperature float64
	HeatingEnabled    *bool
}

// pendingRoom is one entry of the control request body.
type pendingRoom struct {
	ID                int    `json:"id"`
	HeatingEnabled    *bool  `json:"heatingEnabled,omitempty"`
	TargetTemperature string `json:"targetTemperature"`
}

func (u RoomUpdate) toPending() pendingRoom {
	return pendingRoom{
		ID:                u.ID,
		HeatingEnabled:    u.HeatingEnabled,
		TargetTemperature: strconv.FormatInt(toHundredths(u.TargetTemperature), 10),
	}
}

// controlRequest is the body of POST /rest/v1/control/.
type controlRequest struct {
	Rooms []pendingRoom `json:"rooms"`
}

// toHundredths scales °C to the API's integer hundredths. Rounding instead
// of truncating keeps values like 20.3 from becoming 2029.
func toHundredths(celsius float64) int64 {
	return int64(math.Round(celsius * 100))
}

// fromHundredths parses a sent targetTemperature back to °C.
func fromHundredths(s string) float64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return float64(v) / 100.0
}
