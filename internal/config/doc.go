// Package config provides user configuration management for the adax command.
//
// This package manages a YAML-based configuration file that stores the Adax
// account id, API client tuning, room aliases and CLI preferences. The
// configuration follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/adax/config.yaml or $HOME/.config/adax/config.yaml
//   - macOS: $HOME/.config/adax/config.yaml
//   - Windows: %LOCALAPPDATA%\adax\config.yaml
//
// ADAX_ACCOUNT_ID and ADAX_BASE_URL override the file.
//
// # Security
//
// IMPORTANT: This package NEVER stores the account password. The command
// reads it from ADAX_PASSWORD or prompts for it.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SetRoomAlias(196342, "office", "💻")
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
//	client := adax.New(registry.ClientConfig(os.Getenv("ADAX_PASSWORD")))
//
// # File Format
//
//	version: 1
//	account:
//	  id: "123456"
//	api:
//	  timeout: 10s
//	  fetch_energy_logs: true
//	rooms:
//	  196342:
//	    alias: office
//	preferences:
//	  format: detailed
//	  watch_interval: 30s
//	  listen: ":8080"
package config
