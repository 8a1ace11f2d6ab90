package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultEngine returns the engine tunables used when the config file omits
// them.
func DefaultEngine() Engine {
	return Engine{
		WalkSpeedMps:       1.3,
		TransferPenaltySec: 300,
		EntryRadiusM:       500,
		StationRadiusM:     500,
		TransferDistanceM:  200,
		EgressFactor:       1.4,
		WalkCeilingSec:     3600,
		GridCellM:          250,
		Bands:              12,
		MaxMinutes:         60,
		PixelSize:          4,
		PreviewPixelFactor: 4,
		Opacity:            0.55,
	}
}

// Load reads, validates and defaults the application configuration.
func Load(path string) (App, error) {
	var cfg App
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills in unset values.
func (cfg *App) ApplyDefaults() {
	def := DefaultEngine()
	e := &cfg.Engine
	if e.WalkSpeedMps == 0 {
		e.WalkSpeedMps = def.WalkSpeedMps
	}
	if e.TransferPenaltySec == 0 {
		e.TransferPenaltySec = def.TransferPenaltySec
	}
	if e.EntryRadiusM == 0 {
		e.EntryRadiusM = def.EntryRadiusM
	}
	if e.StationRadiusM == 0 {
		e.StationRadiusM = def.StationRadiusM
	}
	if e.TransferDistanceM == 0 {
		e.TransferDistanceM = def.TransferDistanceM
	}
	if e.EgressFactor == 0 {
		e.EgressFactor = def.EgressFactor
	}
	if e.WalkCeilingSec == 0 {
		e.WalkCeilingSec = def.WalkCeilingSec
	}
	if e.GridCellM == 0 {
		e.GridCellM = def.GridCellM
	}
	if e.Bands == 0 {
		e.Bands = def.Bands
	}
	if e.MaxMinutes == 0 {
		e.MaxMinutes = def.MaxMinutes
	}
	if e.PixelSize == 0 {
		e.PixelSize = def.PixelSize
	}
	if e.PreviewPixelFactor == 0 {
		e.PreviewPixelFactor = def.PreviewPixelFactor
	}
	if e.Opacity == 0 {
		e.Opacity = def.Opacity
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8086
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
}
