package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/transittopo/transitiso"
	"github.com/transittopo/transitiso/cache"
	"github.com/transittopo/transitiso/config"
)

var (
	configPath = flag.String("config", "config.yml", "Path to YAML configuration file")
	transit    = flag.String("transit", "", "Transit dataset JSON (overrides config)")
	walking    = flag.String("walking", "", "Walking dataset JSON or *.osm.pbf (overrides config)")
	obstacles  = flag.String("obstacles", "", "Obstacle GeoJSON (overrides config)")
)

type isochroneRequest struct {
	Lat     float64           `json:"lat"`
	Lon     float64           `json:"lon"`
	Bounds  transitiso.Bounds `json:"bounds"`
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Preview bool              `json:"preview"`
}

func main() {
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg.ApplyDefaults()
	}
	if *transit != "" {
		cfg.Datasets.Transit = *transit
	}
	if *walking != "" {
		cfg.Datasets.Walking = *walking
	}
	if *obstacles != "" {
		cfg.Datasets.Obstacles = *obstacles
	}

	var store cache.Cache = cache.Nop{}
	if cfg.Datasets.CacheDB != "" {
		sqliteCache, err := cache.OpenSQLite(cfg.Datasets.CacheDB)
		if err != nil {
			log.Fatalf("Failed to open dataset cache: %v", err)
		}
		defer sqliteCache.Close()
		store = sqliteCache
		log.Printf("Dataset cache: %s", cfg.Datasets.CacheDB)
	}
	ttl := time.Duration(cfg.Datasets.CacheTTLHours) * time.Hour

	engine := transitiso.NewEngine(cfg.Engine)
	defer engine.Close()

	if cfg.Datasets.Transit != "" {
		data, err := transitiso.FetchDataset(store, cfg.Datasets.Transit, ttl, func() ([]byte, error) {
			return os.ReadFile(cfg.Datasets.Transit)
		})
		if err != nil {
			log.Fatalf("Failed to read transit dataset: %v", err)
		}
		if err := engine.LoadTransit(data); err != nil {
			log.Fatalf("Failed to load transit dataset: %v", err)
		}
	}

	if cfg.Datasets.Walking != "" {
		if isPBF(cfg.Datasets.Walking) {
			network, err := transitiso.ImportWalkingFromPBF(cfg.Datasets.Walking, cfg.Engine.WalkSpeedMps, cfg.Engine.WalkCeilingSec, cfg.Engine.GridCellM)
			if err != nil {
				log.Fatalf("Failed to import walking network: %v", err)
			}
			engine.UseWalking(network)
		} else {
			data, err := transitiso.FetchDataset(store, cfg.Datasets.Walking, ttl, func() ([]byte, error) {
				return os.ReadFile(cfg.Datasets.Walking)
			})
			if err != nil {
				log.Fatalf("Failed to read walking dataset: %v", err)
			}
			if err := engine.LoadWalking(data); err != nil {
				log.Fatalf("Failed to load walking dataset: %v", err)
			}
		}
	}

	if cfg.Datasets.Obstacles != "" {
		data, err := transitiso.FetchDataset(store, cfg.Datasets.Obstacles, ttl, func() ([]byte, error) {
			return os.ReadFile(cfg.Datasets.Obstacles)
		})
		if err != nil {
			log.Printf("Warning: obstacle dataset unavailable, continuing without obstacle avoidance: %v", err)
		} else if err := engine.LoadObstacles(data); err != nil {
			log.Printf("Warning: obstacle dataset malformed, continuing without obstacle avoidance: %v", err)
		}
	}

	// Handlers mutate engine state (origin, viewport); serialize them.
	var engineMu sync.Mutex

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
		})
	})

	r.Get("/api/traveltime", func(w http.ResponseWriter, req *http.Request) {
		lat, errLat := strconv.ParseFloat(req.URL.Query().Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(req.URL.Query().Get("lon"), 64)
		if errLat != nil || errLon != nil {
			http.Error(w, "lat and lon query parameters are required", http.StatusBadRequest)
			return
		}
		engineMu.Lock()
		minutes, ok := engine.TravelTime(lat, lon)
		engineMu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			json.NewEncoder(w).Encode(map[string]interface{}{"minutes": nil})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"minutes": minutes})
	})

	r.Post("/api/isochrone", func(w http.ResponseWriter, req *http.Request) {
		var body isochroneRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		engineMu.Lock()
		engine.SetOrigin(body.Lat, body.Lon)
		if err := engine.SetViewport(body.Bounds, body.Width, body.Height); err != nil {
			engineMu.Unlock()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, err := engine.RenderSync(body.Preview)
		engineMu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("X-Image-Width", strconv.Itoa(result.Width))
		w.Header().Set("X-Image-Height", strconv.Itoa(result.Height))
		w.Write(result.Pixels)
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func isPBF(path string) bool {
	return len(path) > 4 && path[len(path)-4:] == ".pbf"
}
