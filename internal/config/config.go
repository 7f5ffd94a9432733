// internal/config/config.go
package config

type Config struct {
	Broadcast BroadcastConfig `yaml:"broadcast" envPrefix:"BROADCAST_"`
	App       AppConfig       `yaml:"app" envPrefix:"BROADCAST_APP_"`
	Export    ExportConfig    `yaml:"export" envPrefix:"BROADCAST_EXPORT_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"BROADCAST_METRICS_"`
	Log       LogConfig       `yaml:"log" envPrefix:"BROADCAST_LOG_"`
}

// ---- BROADCAST ----

type BroadcastConfig struct {
	// IPCDir is the namespace directory holding the shared region,
	// the producer mutex and both events.
	IPCDir string `yaml:"ipc_dir" env:"IPC_DIR"`

	SharedMemory  string `yaml:"shared_memory" env:"SHARED_MEMORY"`
	NewDataEvent  string `yaml:"new_data_event" env:"NEW_DATA_EVENT"`
	AppCountEvent string `yaml:"app_count_event" env:"APP_COUNT_EVENT"`
	ProducerMutex string `yaml:"producer_mutex" env:"PRODUCER_MUTEX"`

	RegistryPath string `yaml:"registry_path" env:"REGISTRY_PATH"`

	Service ServiceConfig `yaml:"service" envPrefix:"SERVICE_"`
	Poll    PollConfig    `yaml:"poll" envPrefix:"POLL_"`
	Monitor MonitorConfig `yaml:"monitor" envPrefix:"MONITOR_"`

	JoinTimeoutMs int `yaml:"join_timeout_ms" env:"JOIN_TIMEOUT_MS"`
}

// ---- SERVICE ----

type ServiceConfig struct {
	// ProcessName is matched against the process table.
	ProcessName string `yaml:"process_name" env:"PROCESS_NAME"`
	// Executable is the installed binary; its presence means "installed".
	Executable string `yaml:"executable" env:"EXECUTABLE"`
}

// ---- POLL ----

type PollConfig struct {
	// IntervalUs is the cycle budget. Nil => default, zero disables the sleep.
	IntervalUs    *int `yaml:"interval_us" env:"INTERVAL_US"`
	IdleRecheckMs int  `yaml:"idle_recheck_ms" env:"IDLE_RECHECK_MS"`
	LiveRecheckMs int  `yaml:"live_recheck_ms" env:"LIVE_RECHECK_MS"`
	NewDataPollMs int  `yaml:"new_data_poll_ms" env:"NEW_DATA_POLL_MS"`
}

// ---- MONITOR ----

type MonitorConfig struct {
	QuantumMs       int `yaml:"quantum_ms" env:"QUANTUM_MS"`
	CheckIntervalMs int `yaml:"check_interval_ms" env:"CHECK_INTERVAL_MS"`
}

// ---- APP IDENTITY ----

// AppConfig selects how the daemon initializes its session.
// GUID set => verified Init. Otherwise Title/Index => InitEx.
type AppConfig struct {
	GUID  string `yaml:"guid" env:"GUID"`
	Index int    `yaml:"index" env:"INDEX"`
	Title string `yaml:"title" env:"TITLE"`
}

// ---- STATUS EXPORT ----

type ExportConfig struct {
	// Endpoint empty => export disabled.
	Endpoint   string `yaml:"endpoint" env:"ENDPOINT"`
	UnitID     uint8  `yaml:"unit_id" env:"UNIT_ID"`
	BaseSlot   uint16 `yaml:"base_slot" env:"BASE_SLOT"`
	DeviceName string `yaml:"device_name" env:"DEVICE_NAME"`
	TimeoutMs  int    `yaml:"timeout_ms" env:"TIMEOUT_MS"`
}

// ---- METRICS ----

type MetricsConfig struct {
	Listen string `yaml:"listen" env:"LISTEN"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}
