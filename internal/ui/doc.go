// Package ui provides terminal output for the adax command.
//
// This package uses Lipgloss to render headers, room tables and result boxes,
// and Bubble Tea for the live watch view.
//
// # Components
//
//   - Header: Command banner showing the command and its parameters
//   - Printer: Homes, rooms, devices and energy as tables or JSON
//   - Result: Success/failure boxes for commands that change a setpoint
//   - WatchModel: Polls the account and redraws the room table
//
// # Logging Integration
//
// This package expects logging to be controlled via the ADAX_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the table output to be displayed cleanly.
package ui
