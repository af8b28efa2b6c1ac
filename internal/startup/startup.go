package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/gorilla/mux"

	"media-catalog/internal/logging"
	"media-catalog/internal/memory"
	"media-catalog/internal/playlist"
	"media-catalog/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// ErrLocked is returned by AcquireLock when another process holds the
// catalog lock.
var ErrLocked = errors.New("catalog is locked by another process")

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	MediaDir            string
	DatabaseDir         string
	Port                string
	MetricsPort         string
	MetricsEnabled      bool
	IndexInterval       time.Duration
	PollInterval        time.Duration
	LayoutConfig        string
	PlaylistGCThreshold int
	ImportWorkers       int
	LogHealthChecks     bool

	// Derived paths
	DatabasePath string
	LockPath     string
}

// Defaults used when a variable is unset or invalid.
const (
	defaultIndexInterval = 30 * time.Minute
	defaultPollInterval  = 30 * time.Second
)

// LoadConfig loads and validates configuration from environment variables.
// The media directory is only checked; the database directory is created
// and must be writable.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	section("CONFIGURATION")

	cfg := &Config{
		MediaDir:            getEnv("MEDIA_DIR", "/media"),
		DatabaseDir:         getEnv("DATABASE_DIR", "/database"),
		Port:                getEnv("PORT", "8080"),
		MetricsPort:         getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		IndexInterval:       getEnvDuration("INDEX_INTERVAL", defaultIndexInterval),
		PollInterval:        getEnvDuration("POLL_INTERVAL", defaultPollInterval),
		LayoutConfig:        getEnv("LAYOUT_CONFIG", ""),
		PlaylistGCThreshold: getEnvInt("PLAYLIST_GC_THRESHOLD", playlist.DefaultGCThreshold),
		ImportWorkers:       workers.ForImport(),
		LogHealthChecks:     getEnvBool("LOG_HEALTH_CHECKS", true),
	}

	logging.Info("  MEDIA_DIR:              %s", cfg.MediaDir)
	logging.Info("  DATABASE_DIR:           %s", cfg.DatabaseDir)
	logging.Info("  PORT:                   %s", cfg.Port)
	logging.Info("  METRICS_PORT:           %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:        %v", cfg.MetricsEnabled)
	logging.Info("  INDEX_INTERVAL:         %v", cfg.IndexInterval)
	logging.Info("  POLL_INTERVAL:          %v", cfg.PollInterval)
	logging.Info("  LAYOUT_CONFIG:          %s", valueOr(cfg.LayoutConfig, "(built-in rules)"))
	logging.Info("  PLAYLIST_GC_THRESHOLD:  %d", cfg.PlaylistGCThreshold)
	logging.Info("  %s:         %d", workers.EnvOverride, cfg.ImportWorkers)
	logging.Info("  LOG_LEVEL:              %s", logging.GetLevel())

	section("DIRECTORY SETUP")

	var err error
	if cfg.MediaDir, err = filepath.Abs(cfg.MediaDir); err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", cfg.MediaDir)

	if cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", cfg.DatabaseDir)

	if err := checkMediaDir(cfg.MediaDir); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	if err := ensureDirectory(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "catalog.db")
	cfg.LockPath = filepath.Join(cfg.DatabaseDir, "catalog.lock")
	return cfg, nil
}

// AcquireLock takes the exclusive catalog lock at path. The caller releases
// it with Unlock on shutdown.
func AcquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	logging.Info("  [OK] Acquired catalog lock %s", path)
	return lock, nil
}

// LogMemoryConfig logs how the Go memory limit was configured.
func LogMemoryConfig(result memory.ConfigResult) {
	section("MEMORY")
	logging.Info("  Memory limit: %s (source: %s)", result, result.Source)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	section("DATABASE INITIALIZATION")
	logging.Info("  [OK] Catalog opened in %v", duration)
}

// LogLayoutInit logs the active layout rules.
func LogLayoutInit(source string, rules []string) {
	section("LAYOUT")
	logging.Info("  Rules from: %s", source)
	logging.Info("  Enabled:    %s", strings.Join(rules, ", "))
}

// LogIndexerInit logs indexer initialization
func LogIndexerInit(indexInterval, pollInterval time.Duration) {
	section("INDEXER INITIALIZATION")
	logging.Info("  Index interval: %v", indexInterval)
	logging.Info("  Poll interval:  %v", pollInterval)
	logging.Info("  Starting indexer...")
}

// LogIndexerStarted logs successful indexer start
func LogIndexerStarted() {
	logging.Info("  [OK] Indexer started")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: path, Name: route.GetName()})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the registered routes grouped by prefix. The route
// table is only printed at debug level.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			g := getRouteGroup(route.Path)
			groups[g] = append(groups[g], route)
		}
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, k := range keys {
			logging.Debug("  [%s]", valueOr(k, "root"))
			for _, route := range groups[k] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}
	return parts[0]
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  API:             http://0.0.0.0:%s/api", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func section(title string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("%s", title)
	logging.Info("------------------------------------------------------------")
}

func printBanner() {
	banner := `
------------------------------------------------------------
                   _ _                  _        _
  _ __  ___ __| (_)__ _   __ __ _| |_ __ _| |___  __ _
 | '  \/ -_) _' | / _' | / _/ _' |  _/ _' | / _ \/ _' |
 |_|_|_\___\__,_|_\__,_| \__\__,_|\__\__,_|_\___/\__, |
                                                 |___/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
}

func logSystemInfo() {
	section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	if hostname, err := os.Hostname(); err == nil {
		logging.Debug("  Hostname:        %s", hostname)
	}
}

func checkMediaDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(path); err == nil {
			logging.Debug("    Contents: %d entries (top level)", len(entries))
		}
	}
	return nil
}

func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Creating %s", path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid %s %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
