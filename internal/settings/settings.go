package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/janekbaraniewski/usagetray/internal/config"
)

// Settings are preferences toggled from the tray menu.
type Settings struct {
	ShowCostIndicator bool `json:"show_cost_indicator"`
}

func DefaultSettings() Settings {
	return Settings{ShowCostIndicator: true}
}

func Path() string {
	return filepath.Join(config.ConfigDir(), "settings.json")
}

func Load() (Settings, error) {
	return LoadFrom(Path())
}

func LoadFrom(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parsing settings %s: %w", path, err)
	}

	return s, nil
}

func Save(s Settings) error {
	return SaveTo(Path(), s)
}

func SaveTo(path string, s Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	return nil
}

// saveMu guards read-modify-write cycles on the settings file.
var saveMu sync.Mutex

// ToggleCostIndicator flips the title badge preference and returns the new value.
func ToggleCostIndicator() (bool, error) {
	return ToggleCostIndicatorAt(Path())
}

func ToggleCostIndicatorAt(path string) (bool, error) {
	saveMu.Lock()
	defer saveMu.Unlock()

	s, err := LoadFrom(path)
	if err != nil {
		s = DefaultSettings()
	}
	s.ShowCostIndicator = !s.ShowCostIndicator
	if err := SaveTo(path, s); err != nil {
		return !s.ShowCostIndicator, err
	}
	return s.ShowCostIndicator, nil
}
