package model

import "time"

// APIServer holds the api server configuration
type APIServer struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Mongo holds the database configuration
type Mongo struct {
	URI string `yaml:"uri" validate:"required"`
}

// Log holds the log configuration
type Log struct {
	Level      string `yaml:"level"`
	FolderPath string `yaml:"folder_path"`
}

// OTEL holds the opentelemetry configuration
type OTEL struct {
	Addr    string `yaml:"addr" validate:"required"`
	Type    string `yaml:"type" validate:"required"`
	Timeout int64  `yaml:"timeout" default:"10"`
}

// Common holds the common configuration
type Common struct {
	Production bool  `yaml:"production"`
	Log        Log   `yaml:"log"`
	Mongo      Mongo `yaml:"mongo" validate:"required"`
	Tracing    OTEL  `yaml:"tracing" validate:"required"`
}

// Pipeline holds the conversion pipeline tuning knobs (spec.md §5, §4.7)
type Pipeline struct {
	// MaxConcurrentRequests is the process-wide admission limit, default 64
	MaxConcurrentRequests int64 `yaml:"max_concurrent_requests" validate:"required" default:"64"`

	// JobChannelCapacity bounds producer/consumer skew between manager and worker
	JobChannelCapacity int `yaml:"job_channel_capacity" validate:"required" default:"8"`

	// LargeDecompressThresholdBytes is accepted in the configuration file but not read by
	// the manager, which offloads decompression at the fixed decompress.AsyncThreshold (2 MiB)
	LargeDecompressThresholdBytes int64 `yaml:"large_decompress_threshold_bytes" validate:"required" default:"2097152"`

	// DecompressTimeoutSeconds bounds an offloaded (large) decompression
	DecompressTimeoutSeconds int `yaml:"decompress_timeout_seconds" validate:"required" default:"30"`

	// WorkerJoinTimeoutSeconds is accepted in the configuration file but not read by the
	// manager, which waits for the worker's outcome without a time bound
	WorkerJoinTimeoutSeconds int `yaml:"worker_join_timeout_seconds" validate:"required" default:"30"`
}

// DecompressTimeout returns the configured large-decompression timeout as
// a time.Duration.
func (p Pipeline) DecompressTimeout() time.Duration {
	return time.Duration(p.DecompressTimeoutSeconds) * time.Second
}

// WorkerJoinTimeout returns the configured worker-drain timeout as a
// time.Duration.
func (p Pipeline) WorkerJoinTimeout() time.Duration {
	return time.Duration(p.WorkerJoinTimeoutSeconds) * time.Second
}

// XSLTEngine holds the configuration for the stylesheet transform engine
type XSLTEngine struct {
	// XsltprocPath is the path to the xsltproc binary used by the native engine
	XsltprocPath string `yaml:"xsltproc_path" validate:"required" default:"/usr/bin/xsltproc"`
}

// Converter holds the invoice-conversion service configuration
type Converter struct {
	APIServer APIServer  `yaml:"api_server" validate:"required"`
	Pipeline  Pipeline   `yaml:"pipeline" validate:"required"`
	XSLT      XSLTEngine `yaml:"xslt" validate:"required"`
}

// Cfg is the main configuration structure for this application
type Cfg struct {
	Common    Common    `yaml:"common"`
	Converter Converter `yaml:"converter" validate:"required"`
}
