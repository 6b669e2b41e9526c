package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/adax/internal/adax"
	"github.com/muurk/adax/internal/server"
	"github.com/muurk/adax/internal/ui"
	"github.com/muurk/adax/internal/urls"
	"github.com/muurk/adax/internal/version"
)

// PasswordEnvVar holds the account password for non-interactive use
const PasswordEnvVar = "ADAX_PASSWORD"

// Command flags
var (
	setOff        bool
	watchInterval time.Duration
	listenAddr    string
	certPath      string
	keyPath       string
	streamEvery   time.Duration
)

func init() {
	rootCmd.AddCommand(homesCmd)
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(energyCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

var homesCmd = &cobra.Command{
	Use:   "homes",
	Short: "List homes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		p := newPrinter()
		p.PrintHeader("Homes", "adax homes", map[string]string{"Account": registry.Account.ID})
		return p.PrintHomes(client.GetHomes(ctx))
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List rooms with temperatures and setpoints",
	Example: `  # Table of rooms
  adax rooms

  # JSON for scripting
  adax rooms --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		p := newPrinter()
		p.PrintHeader("Rooms", "adax rooms", map[string]string{"Account": registry.Account.ID})
		return p.PrintRooms(client.GetRooms(ctx))
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List heaters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		p := newPrinter()
		p.PrintHeader("Heaters", "adax devices", map[string]string{"Account": registry.Account.ID})
		return p.PrintDevices(client.GetDevices(ctx))
	},
}

var energyCmd = &cobra.Command{
	Use:   "energy",
	Short: "Show per-room energy logs",
	Long: `Fetch the energy log of every room and show a summary.

Energy logs are only shown when every room's log could be fetched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry.API.FetchEnergyLogs = true
		client, _, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		p := newPrinter()
		p.PrintHeader("Energy", "adax energy", map[string]string{"Account": registry.Account.ID})
		energy := client.GetEnergy(ctx)
		return p.PrintEnergy(energy, client.Snapshot().Rooms())
	},
}

var setCmd = &cobra.Command{
	Use:   "set <room> <temperature>",
	Short: "Set a room's target temperature",
	Long: `Set the target temperature of a room in °C.

The room is either its numeric id or an alias from the config file. Heating
is switched on unless --off is given. The command returns once the change
has been sent.`,
	Example: `  # Living room to 21.5 °C
  adax set 196342 21.5

  # By alias, heating off
  adax set bedroom 16 --off`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

func init() {
	setCmd.Flags().BoolVar(&setOff, "off", false, "Switch heating off for the room")
}

func runSet(cmd *cobra.Command, args []string) error {
	roomID, ok := registry.ResolveRoom(args[0])
	if !ok {
		return fmt.Errorf("unknown room %q (use a room id or a configured alias)", args[0])
	}
	temperature, err := parseTemperature(args[1])
	if err != nil {
		return err
	}

	client, _, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	p := newPrinter()
	heating := !setOff
	if err := client.SetRoomTargetTemperature(ctx, roomID, temperature, heating); err != nil {
		p.PrintError("Setpoint failed", err)
		return err
	}

	label := strconv.Itoa(roomID)
	if room, ok := client.Room(roomID); ok {
		label = registry.RoomLabel(roomID, room.Name)
	}
	if format == ui.FormatJSON {
		return p.PrintJSON(map[string]any{
			"id":                roomID,
			"targetTemperature": temperature,
			"heatingEnabled":    heating,
		})
	}
	p.PrintSuccess("Setpoint sent", map[string]string{
		"Room":        label,
		"Temperature": fmt.Sprintf("%.1f °C", temperature),
		"Heating":     onOff(heating),
	})
	return nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live view of the rooms",
	Long: `Show the rooms in a full-screen view that refreshes periodically.

Press r to refresh now and q to quit. Refreshes inside the API's rate limit
show the last known state.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsTerminal() {
			return errors.New("watch needs an interactive terminal (try 'adax rooms')")
		}

		interval := watchInterval
		if !cmd.Flags().Changed("interval") && registry.Preferences.WatchInterval > 0 {
			interval = registry.Preferences.WatchInterval
		}

		client, _, err := newClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		model := ui.NewWatchModel(ctx, client, interval, registry.Account.ID, registry.RoomLabel)
		return ui.RunWatch(ctx, model)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Refresh interval")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP and WebSocket bridge",
	Long: `Serve one Adax account to the local network.

All bridge clients share a single API client, so the account's rate limit
holds however many programs use the bridge. Prometheus metrics for both the
API client and the bridge are served on /metrics.

Endpoint reference: ` + urls.Bridge,
	Example: `  # Listen on the configured address (default :8080)
  adax serve

  # Loopback only, with TLS
  adax serve --listen 127.0.0.1:8443 --cert cert.pem --key key.pem`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address host:port (default from config)")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	serveCmd.Flags().DurationVar(&streamEvery, "stream-interval", server.DefaultStreamInterval, "Default /ws room stream interval")
}

func runServe(cmd *cobra.Command, args []string) error {
	if (certPath != "") != (keyPath != "") {
		return errors.New("both --cert and --key must be provided together")
	}

	addr := listenAddr
	if addr == "" {
		addr = registry.Preferences.Listen
	}
	host, port, err := splitListen(addr)
	if err != nil {
		return err
	}

	client, reg, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(&server.Config{
		Host:           host,
		Port:           port,
		CertPath:       certPath,
		KeyPath:        keyPath,
		StreamInterval: streamEvery,
	}, client, reg)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	fmt.Printf("Adax bridge %s listening on %s\n", version.Version, net.JoinHostPort(host, strconv.Itoa(port)))
	return srv.Start(cmd.Context())
}

// newClient builds the API client from the loaded config. The returned
// registry holds the client's metrics.
func newClient() (*adax.Client, *prometheus.Registry, error) {
	if registry.Account.ID == "" {
		return nil, nil, errors.New("no account id configured (run 'adax config init' or pass --account)")
	}

	password, err := readPassword()
	if err != nil {
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	metrics, err := adax.NewMetrics(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	client := adax.New(registry.ClientConfig(password),
		adax.WithMetrics(metrics),
		adax.WithUserAgent(version.UserAgent()),
	)
	return client, reg, nil
}

// readPassword returns $ADAX_PASSWORD or prompts for the password on the terminal
func readPassword() (string, error) {
	if pw := os.Getenv(PasswordEnvVar); pw != "" {
		return pw, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password: set %s or run from a terminal", PasswordEnvVar)
	}

	fmt.Fprintf(os.Stderr, "Adax password for account %s: ", registry.Account.ID)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(pw) == 0 {
		return "", errors.New("empty password")
	}
	return string(pw), nil
}

func newPrinter() *ui.Printer {
	return ui.NewPrinter(os.Stdout, format).WithLabels(registry.RoomLabel)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// parseTemperature accepts "21.5", "21,5" and "21.5C"
func parseTemperature(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(strings.TrimSuffix(v, "C"), "°")
	v = strings.ReplaceAll(v, ",", ".")
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature %q", s)
	}
	if t < 5 || t > 35 {
		return 0, fmt.Errorf("temperature %.1f °C out of range (5-35)", t)
	}
	return t, nil
}

// splitListen parses "host:port" or ":port"
func splitListen(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in listen address %q", addr)
	}
	return host, port, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
