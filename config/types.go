// Package config loads and validates the application configuration.
package config

// Engine holds the computation tunables.
type Engine struct {
	WalkSpeedMps       float64 `yaml:"walk_speed_mps" validate:"gte=0"`
	TransferPenaltySec float64 `yaml:"transfer_penalty_sec" validate:"gte=0"`
	EntryRadiusM       float64 `yaml:"entry_radius_m" validate:"gte=0"`
	StationRadiusM     float64 `yaml:"station_radius_m" validate:"gte=0"`
	TransferDistanceM  float64 `yaml:"transfer_distance_m" validate:"gte=0"`
	EgressFactor       float64 `yaml:"egress_factor" validate:"gte=0"`
	WalkCeilingSec     float64 `yaml:"walk_ceiling_sec" validate:"gte=0"`
	GridCellM          float64 `yaml:"grid_cell_m" validate:"gte=0"`
	Bands              int     `yaml:"bands" validate:"gte=0"`
	MaxMinutes         float64 `yaml:"max_minutes" validate:"gte=0"`
	PixelSize          int     `yaml:"pixel_size" validate:"gte=0"`
	PreviewPixelFactor int     `yaml:"preview_pixel_factor" validate:"gte=0"`
	Opacity            float64 `yaml:"opacity" validate:"gte=0,lte=1"`
}

// Server holds the HTTP surface settings.
type Server struct {
	Port           int      `yaml:"port" validate:"gte=0,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Datasets points at the consumed dataset files and the cache location.
type Datasets struct {
	Transit       string `yaml:"transit"`
	Walking       string `yaml:"walking"`
	Obstacles     string `yaml:"obstacles"`
	CacheDB       string `yaml:"cache_db"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" validate:"gte=0"`
}

// App is the full application configuration.
type App struct {
	Engine   Engine   `yaml:"engine"`
	Server   Server   `yaml:"server"`
	Datasets Datasets `yaml:"datasets"`
}
