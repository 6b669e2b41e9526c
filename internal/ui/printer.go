package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/adax/internal/adax"
)

// Format selects how the Printer renders data
type Format string

const (
	FormatDetailed Format = "detailed"
	FormatJSON     Format = "json"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatDetailed, FormatJSON:
		return Format(s), nil
	case "":
		return FormatDetailed, nil
	default:
		return "", fmt.Errorf("unknown format %q (want detailed or json)", s)
	}
}

// LabelFunc returns the display name for a room
type LabelFunc func(roomID int, name string) string

// Printer renders command output to a writer, either as styled tables or JSON.
type Printer struct {
	out    io.Writer
	width  int
	format Format
	label  LabelFunc
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer, format Format) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:    w,
		width:  GetTerminalWidth(),
		format: format,
		label:  func(_ int, name string) string { return name },
	}
}

// WithLabels sets the room name lookup (for user aliases)
func (p *Printer) WithLabels(fn LabelFunc) *Printer {
	if fn != nil {
		p.label = fn
	}
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintJSON writes v as indented JSON
func (p *Printer) PrintJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintHeader prints a command header box. It prints nothing in JSON mode.
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	if p.format == FormatJSON {
		return
	}
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	if p.format == FormatJSON {
		_ = p.PrintJSON(map[string]any{"ok": true, "message": title, "details": details})
		return
	}
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error) {
	if p.format == FormatJSON {
		_ = p.PrintJSON(map[string]any{"ok": false, "message": title, "error": err.Error()})
		return
	}
	p.Println(NewFailureResult(title, err, nil).SetWidth(p.width).Render())
}

// PrintHomes prints the homes
func (p *Printer) PrintHomes(homes []adax.Home) error {
	if p.format == FormatJSON {
		return p.PrintJSON(homes)
	}
	rows := make([][]string, 0, len(homes))
	for _, h := range homes {
		rows = append(rows, []string{strconv.Itoa(h.ID), h.Name})
	}
	p.Println(renderTable([]string{"ID", "NAME"}, rows, nil))
	return nil
}

// PrintRooms prints the rooms with their temperatures and heating state
func (p *Printer) PrintRooms(rooms []adax.Room) error {
	if p.format == FormatJSON {
		return p.PrintJSON(rooms)
	}
	p.Println(RenderRooms(rooms, p.label))
	return nil
}

// PrintDevices prints the heaters
func (p *Printer) PrintDevices(devices []adax.Device) error {
	if p.format == FormatJSON {
		return p.PrintJSON(devices)
	}
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{
			strconv.Itoa(d.ID),
			d.Name,
			d.Type,
			strconv.Itoa(d.RoomID),
			formatEnergy(d.EnergyWh),
		})
	}
	p.Println(renderTable([]string{"ID", "NAME", "TYPE", "ROOM", "ENERGY"}, rows, nil))
	return nil
}

// PrintEnergy prints a per-room summary of the energy logs
func (p *Printer) PrintEnergy(energy map[int]adax.EnergyLog, rooms []adax.Room) error {
	if p.format == FormatJSON {
		return p.PrintJSON(energy)
	}

	names := make(map[int]string, len(rooms))
	for _, r := range rooms {
		names[r.ID] = p.label(r.ID, r.Name)
	}

	ids := make([]int, 0, len(energy))
	for id := range energy {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		points, total, err := SummarizeEnergy(energy[id])
		if err != nil {
			rows = append(rows, []string{strconv.Itoa(id), names[id], "-", "unreadable"})
			continue
		}
		rows = append(rows, []string{strconv.Itoa(id), names[id], strconv.Itoa(points), formatEnergy(total)})
	}
	p.Println(renderTable([]string{"ROOM", "NAME", "POINTS", "TOTAL"}, rows, nil))
	return nil
}

// RenderRooms renders the room table used by the rooms command and the watch view
func RenderRooms(rooms []adax.Room, label LabelFunc) string {
	if label == nil {
		label = func(_ int, name string) string { return name }
	}

	rows := make([][]string, 0, len(rooms))
	for _, r := range rooms {
		heating := HeatingOff
		if r.HeatingEnabled {
			heating = HeatingOn
		}
		rows = append(rows, []string{
			strconv.Itoa(r.ID),
			label(r.ID, r.Name),
			formatCelsius(r.Temperature),
			formatCelsius(r.TargetTemperature),
			heating,
		})
	}

	return renderTable(
		[]string{"ID", "ROOM", "TEMP", "TARGET", "HEATING"},
		rows,
		func(row, col int) (lipgloss.Style, bool) {
			if row < 0 || row >= len(rooms) {
				return lipgloss.Style{}, false
			}
			r := rooms[row]
			switch col {
			case 2:
				if r.HeatingEnabled && r.Temperature < r.TargetTemperature {
					return BelowTargetStyle, true
				}
			case 4:
				if r.HeatingEnabled {
					return HeatingOnStyle, true
				}
				return HeatingOffStyle, true
			}
			return lipgloss.Style{}, false
		},
	)
}

// cellStyler overrides the style of a data cell (row is 0-based, headers excluded)
type cellStyler func(row, col int) (lipgloss.Style, bool)

func renderTable(headers []string, rows [][]string, styler cellStyler) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			if styler != nil {
				if s, ok := styler(row, col); ok {
					return s
				}
			}
			return TableCellStyle
		}).
		Render()
}

// SummarizeEnergy returns the number of points and the summed energy of one
// energy_log response.
func SummarizeEnergy(log adax.EnergyLog) (int, int64, error) {
	var body struct {
		Points []struct {
			FromTime int64 `json:"fromTime"`
			ToTime   int64 `json:"toTime"`
			EnergyWh int64 `json:"energyWh"`
		} `json:"points"`
	}
	if err := json.Unmarshal(log, &body); err != nil {
		return 0, 0, err
	}
	var total int64
	for _, pt := range body.Points {
		total += pt.EnergyWh
	}
	return len(body.Points), total, nil
}

func formatCelsius(c float64) string {
	return strconv.FormatFloat(c, 'f', 1, 64) + " °C"
}

func formatEnergy(wh int64) string {
	if wh >= 10000 {
		return strconv.FormatFloat(float64(wh)/1000, 'f', 1, 64) + " kWh"
	}
	return strconv.FormatInt(wh, 10) + " Wh"
}
