package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/adax/internal/adax"
	"github.com/muurk/adax/internal/urls"
)

var testRooms = []adax.Room{
	{ID: 1, HomeID: 10, Name: "Living room", HeatingEnabled: true, TargetTemperature: 21, Temperature: 19.5},
	{ID: 2, HomeID: 10, Name: "Bedroom", HeatingEnabled: false, TargetTemperature: 16, Temperature: 17.2},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatDetailed, false},
		{"detailed", FormatDetailed, false},
		{"json", FormatJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = (%q, %v), want (%q, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestPrinterRoomsDetailed(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatDetailed).WithLabels(func(id int, name string) string {
		if id == 2 {
			return "sleep"
		}
		return name
	})

	if err := p.PrintRooms(testRooms); err != nil {
		t.Fatalf("PrintRooms() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Living room", "sleep", "19.5 °C", "21.0 °C", HeatingOn, HeatingOff} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintRooms() output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Bedroom") {
		t.Error("alias should replace the room name")
	}
}

func TestPrinterRoomsJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)

	if err := p.PrintRooms(testRooms); err != nil {
		t.Fatalf("PrintRooms() error = %v", err)
	}

	var rooms []adax.Room
	if err := json.Unmarshal(buf.Bytes(), &rooms); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(rooms) != 2 || rooms[0].TargetTemperature != 21 {
		t.Errorf("decoded rooms = %+v", rooms)
	}
}

func TestPrinterHeaderSilentInJSON(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatJSON).PrintHeader("Rooms", "adax rooms", nil)
	if buf.Len() != 0 {
		t.Errorf("PrintHeader() wrote %q in JSON mode", buf.String())
	}
}

func TestPrinterDevices(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatDetailed)

	err := p.PrintDevices([]adax.Device{{ID: 100, Name: "Heater", Type: "Heater", RoomID: 1, EnergyWh: 12500}})
	if err != nil {
		t.Fatalf("PrintDevices() error = %v", err)
	}
	if !strings.Contains(buf.String(), "12.5 kWh") {
		t.Errorf("PrintDevices() output:\n%s", buf.String())
	}
}

func TestPrinterEnergy(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatDetailed)

	energy := map[int]adax.EnergyLog{
		1: json.RawMessage(`{"points":[{"fromTime":1,"toTime":2,"energyWh":300},{"fromTime":2,"toTime":3,"energyWh":450}]}`),
		2: json.RawMessage(`not json`),
	}
	if err := p.PrintEnergy(energy, testRooms); err != nil {
		t.Fatalf("PrintEnergy() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "750 Wh") {
		t.Errorf("PrintEnergy() missing total:\n%s", out)
	}
	if !strings.Contains(out, "unreadable") {
		t.Errorf("PrintEnergy() should flag unreadable logs:\n%s", out)
	}
}

func TestSummarizeEnergy(t *testing.T) {
	points, total, err := SummarizeEnergy(json.RawMessage(`{"points":[{"energyWh":5},{"energyWh":7}]}`))
	if err != nil {
		t.Fatalf("SummarizeEnergy() error = %v", err)
	}
	if points != 2 || total != 12 {
		t.Errorf("SummarizeEnergy() = (%d, %d), want (2, 12)", points, total)
	}
}

func TestPrinterErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, FormatJSON).PrintError("Failed to set room 1", errors.New("boom"))

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if out["ok"] != false || out["error"] != "boom" {
		t.Errorf("PrintError() JSON = %v", out)
	}
}

func TestHeaderRenderSortedParams(t *testing.T) {
	h := NewHeader("Rooms", "adax rooms", map[string]string{
		"Zone":    "z",
		"Account": "123456",
	}).SetWidth(80)

	out := h.Render()
	if !strings.Contains(out, "ROOMS") {
		t.Errorf("title should be upper-cased:\n%s", out)
	}
	if strings.Index(out, "Account") > strings.Index(out, "Zone") {
		t.Errorf("params should be sorted:\n%s", out)
	}
}

func TestResultFailureTroubleshooting(t *testing.T) {
	err := adax.NewAuthError("login rejected", 401, nil)
	r := NewFailureResult("Failed to set room 1", err, nil).SetWidth(80)

	if len(r.Troubleshooting) == 0 {
		t.Fatal("auth errors should carry troubleshooting tips")
	}
	out := r.Render()
	if !strings.Contains(out, "Authentication failed") {
		t.Errorf("Render() should use the short message:\n%s", out)
	}
}

func TestTroubleshootingFor(t *testing.T) {
	if TroubleshootingFor(nil) != nil {
		t.Error("nil error should have no tips")
	}
	if len(TroubleshootingFor(adax.NewRateLimitedError("x"))) == 0 {
		t.Error("rate limited error should have tips")
	}
	if TroubleshootingFor(errors.New("other")) != nil {
		t.Error("unknown errors should have no tips")
	}
}

func TestTroubleshootingLinksGuide(t *testing.T) {
	tips := TroubleshootingFor(adax.NewAuthError("login rejected", 401, nil))
	if !strings.Contains(strings.Join(tips, "\n"), urls.AdaxAPI) {
		t.Errorf("auth tips should link the API credential guide: %v", tips)
	}
}
