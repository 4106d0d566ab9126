package camera

import "sort"

// Preset names for common configurations.
const (
	PresetDefault = "default"
	PresetLegacy  = "legacy"
	Preset720p    = "720p"
	PresetLowLag  = "low-latency"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLegacy:  LegacyConfig(),
		Preset720p:    HD720Config(),
		PresetLowLag:  LowLatencyConfig(),
	}
}

// PresetNames returns the sorted list of preset names.
func PresetNames() []string {
	names := make([]string, 0, 4)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// LegacyConfig returns 640x480 for USB webcams without a 16:9 mode.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Preset = PresetLegacy
	return cfg
}

// HD720Config returns 1280x720. Sharper lane edges, slower pipelines.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.Preset = Preset720p
	return cfg
}

// LowLatencyConfig keeps a single frame queued so the loop always sees the newest frame.
func LowLatencyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 360
	cfg.FPS = 60
	cfg.QueueSize = 1
	cfg.Preset = PresetLowLag
	return cfg
}
