package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"

	"lautenbacher.net/tronstrip/engine"
)

// ConfigHandler routes /api/config requests. GET returns the
// runtime-safe subset of the configuration on disk; POST merges a new
// runtime subset into the file, validates and writes it back, which the
// file watcher picks up as a live reload.
func ConfigHandler(cfile string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getConfigHandler(w, r, cfile)
		case http.MethodPost:
			setConfigHandler(w, r, cfile)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func getConfigHandler(w http.ResponseWriter, _ *http.Request, cfile string) {
	slog.Info("Handling GET /api/config request")
	// Read the file on every request so we always serve the latest
	// version, including changes made outside the API.
	fullConfig, err := ReadConfig(cfile)
	if err != nil {
		slog.Error("Failed to read config file for API", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}

	runtimeConfig := RuntimeConfig{
		Ambient: fullConfig.Ambient,
		Burst:   fullConfig.Burst,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runtimeConfig); err != nil {
		slog.Error("Failed to encode runtime config to JSON", "error", err)
		http.Error(w, "Failed to serialize configuration", http.StatusInternalServerError)
	}
}

func setConfigHandler(w http.ResponseWriter, r *http.Request, cfile string) {
	slog.Info("Handling POST /api/config request")
	var newRuntimeConfig RuntimeConfig
	if err := json.NewDecoder(r.Body).Decode(&newRuntimeConfig); err != nil {
		slog.Error("Failed to decode incoming JSON", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Merge into the full configuration from disk so hardware and
	// logging settings survive untouched.
	fullConfig, err := ReadConfig(cfile)
	if err != nil {
		slog.Error("Failed to read existing config for update", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}

	fullConfig.Ambient = newRuntimeConfig.Ambient
	fullConfig.Burst = newRuntimeConfig.Burst

	if err := fullConfig.Validate(); err != nil {
		slog.Error("Validation failed for new config", "error", err)
		http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
		return
	}

	yamlData, err := yaml.Marshal(fullConfig)
	if err != nil {
		slog.Error("Failed to marshal merged config to YAML", "error", err)
		http.Error(w, "Failed to prepare configuration for saving", http.StatusInternalServerError)
		return
	}

	if err := os.WriteFile(cfile, yamlData, 0o644); err != nil {
		slog.Error("Failed to write updated config file", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	slog.Info("Successfully updated config file, runtime parameters will reload.")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Configuration updated successfully.")
}

// ParamsHandler accepts a flat JSON object of parameter updates, e.g.
// {"brightness": 0.5, "bounce": "forward-back"}, and feeds every pair
// through the update channel into the validator. Rejected parameters
// are reported back by name; the rest still take effect.
func ParamsHandler(updates chan<- engine.ParamUpdate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var pairs map[string]any
		if err := json.NewDecoder(r.Body).Decode(&pairs); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		// Stable application order keeps responses reproducible when
		// several parameters arrive in one request.
		names := maps.Keys(pairs)
		sort.Strings(names)

		rejected := make(map[string]string)
		for _, name := range names {
			reply := make(chan error, 1)
			select {
			case updates <- engine.ParamUpdate{Name: name, Value: pairs[name], Reply: reply}:
			case <-time.After(2 * time.Second):
				http.Error(w, "Command intake is not responding", http.StatusServiceUnavailable)
				return
			}
			select {
			case err := <-reply:
				if err != nil {
					rejected[name] = err.Error()
				}
			case <-time.After(2 * time.Second):
				http.Error(w, "Command intake is not responding", http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if len(rejected) > 0 {
			w.WriteHeader(http.StatusBadRequest)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"applied":  len(pairs) - len(rejected),
			"rejected": rejected,
		})
	}
}

// StateHandler serves the published state mirror: ambient settings plus
// the animation activity flag.
func StateHandler(mirror func() engine.Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(mirror()); err != nil {
			slog.Error("Failed to encode state mirror", "error", err)
		}
	}
}

// FireHandler triggers a manual burst. The response reports how many
// bursts were actually admitted (0 when the queue was full).
func FireHandler(fire func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		admitted := fire()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"admitted": admitted})
	}
}
