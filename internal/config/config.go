package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	// Dataset location. "s3://bucket[/prefix]" selects the S3 store,
	// anything else is treated as a local directory path.
	ZarrURI  string
	Variable string

	// Extraction window and bounding box. Timestamps are UTC.
	TimeStart time.Time
	TimeEnd   time.Time
	LatMin    float64
	LatMax    float64
	LonMin    float64
	LonMax    float64

	OutputDir    string
	SubsetFile   string
	AreaMeanFile string

	S3Endpoint string
	S3Region   string

	FetchWorkers   int
	ChunkCacheSize int

	LogLevel  string
	LogFormat string

	// PushgatewayURL enables a metrics push at the end of the run when set.
	PushgatewayURL string
}

// Accepted formats for AORC_TIME_START / AORC_TIME_END, interpreted as UTC.
var timeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	timeStart, err := parseTime("AORC_TIME_START", "2010-01-01T00:00:00")
	if err != nil {
		return nil, err
	}
	timeEnd, err := parseTime("AORC_TIME_END", "2020-12-31T23:00:00")
	if err != nil {
		return nil, err
	}

	latMin, err := parseFloat("AORC_LAT_MIN", 37.60)
	if err != nil {
		return nil, err
	}
	latMax, err := parseFloat("AORC_LAT_MAX", 37.85)
	if err != nil {
		return nil, err
	}
	lonMin, err := parseFloat("AORC_LON_MIN", -89.35)
	if err != nil {
		return nil, err
	}
	lonMax, err := parseFloat("AORC_LON_MAX", -89.05)
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("AORC_FETCH_WORKERS", 8)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseNonNegativeInt("AORC_CHUNK_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ZarrURI:  envOrDefault("AORC_ZARR_URI", "s3://noaa-nws-aorc-v1-1-1km"),
		Variable: envOrDefault("AORC_VARIABLE", "apcp"),

		TimeStart: timeStart,
		TimeEnd:   timeEnd,
		LatMin:    latMin,
		LatMax:    latMax,
		LonMin:    lonMin,
		LonMax:    lonMax,

		OutputDir:    envOrDefault("AORC_OUTPUT_DIR", "outputs"),
		SubsetFile:   envOrDefault("AORC_SUBSET_FILE", "aorc_subset_apcp_2010_2020.nc"),
		AreaMeanFile: envOrDefault("AORC_AREA_MEAN_FILE", "aorc_area_mean_apcp_hourly_2010_2020.csv"),

		S3Endpoint: envOrDefault("AORC_S3_ENDPOINT", "s3.amazonaws.com"),
		S3Region:   envOrDefault("AORC_S3_REGION", "us-east-1"),

		FetchWorkers:   workers,
		ChunkCacheSize: cacheSize,

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),

		PushgatewayURL: os.Getenv("AORC_PUSHGATEWAY_URL"),
	}

	if cfg.ZarrURI == "" {
		return nil, errors.New("AORC_ZARR_URI is required")
	}
	if cfg.Variable == "" {
		return nil, errors.New("AORC_VARIABLE is required")
	}
	if cfg.TimeEnd.Before(cfg.TimeStart) {
		return nil, errors.New("AORC_TIME_END must not be before AORC_TIME_START")
	}
	if cfg.LatMax < cfg.LatMin {
		return nil, errors.New("AORC_LAT_MAX must not be less than AORC_LAT_MIN")
	}
	if cfg.LonMax < cfg.LonMin {
		return nil, errors.New("AORC_LON_MAX must not be less than AORC_LON_MIN")
	}

	return cfg, nil
}

// SubsetPath returns the full path of the gridded NetCDF artifact.
func (c *Config) SubsetPath() string {
	return filepath.Join(c.OutputDir, c.SubsetFile)
}

// AreaMeanPath returns the full path of the area-mean CSV artifact.
func (c *Config) AreaMeanPath() string {
	return filepath.Join(c.OutputDir, c.AreaMeanFile)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseTime(key, def string) (time.Time, error) {
	s := envOrDefault(key, def)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q (want YYYY-MM-DDTHH:MM:SS)", key, s)
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return f, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
