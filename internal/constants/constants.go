package constants

import "time"

const (
	PluginID    = "signalk-aprsfi-ais-reporter"
	PluginName  = "aprs.fi AIS reporter"
	ServiceName = "ais-reporter"
)

const (
	DefaultEvents          = "nmea0183,nmea0183out"
	DefaultIntervalSeconds = 30
	DefaultBufferSize      = 300
	DefaultSenderName      = "NOCALL"
	AISSentenceMarker      = "!AIVDM"
)

const (
	JSONAISProtocol    = "jsonais"
	ContentTypeJSON    = "application/json"
	TimestampLayout    = "20060102150405"
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	StatusNotConfigured = "No upload URL set"
	StatusNoEvents      = "No AIS events to report"
)

const (
	KafkaMinBytes = 1
	KafkaMaxBytes = 10e6
)

const (
	ShutdownTimeout   = 5 * time.Second
	DefaultServerPort = 9336
)

const (
	SourceTypeTCP   = "tcp"
	SourceTypeUDP   = "udp"
	SourceTypeKafka = "kafka"
	SourceTypeRedis = "redis"
)

const (
	MaxLineBytes       = 64 * 1024
	UDPReadBufferBytes = 64 * 1024
)
