// Package models holds the request and response bodies of the status API.
package models

import (
	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/telemetry"
	"github.com/smazurov/picambench/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// VersionResponse wraps build metadata.
type VersionResponse struct {
	Body version.Info
}

// PipelineData is the resolved pipeline configuration.
type PipelineData struct {
	Resolution string `json:"resolution" example:"1280x720" doc:"Capture resolution"`
	FPS        int    `json:"fps" example:"30" doc:"Requested frame rate"`
	Bitrate    int    `json:"bitrate" example:"4000000" doc:"Target bitrate in bits per second"`
	Encode     string `json:"encode" example:"auto" doc:"Encode mode"`
	Overlay    bool   `json:"overlay" example:"true" doc:"Whether the telemetry overlay is drawn"`
	Corner     string `json:"corner,omitempty" example:"top-left" doc:"Overlay corner"`
}

// StatusData is a snapshot of the running session.
type StatusData struct {
	State    string            `json:"state" example:"running" doc:"Session state"`
	Source   string            `json:"source" example:"usb:/dev/video0" doc:"Resolved capture source"`
	Dir      string            `json:"dir,omitempty" example:"/tmp/picambench.123456" doc:"Session working directory"`
	Pipeline PipelineData      `json:"pipeline" doc:"Pipeline configuration"`
	Latest   *telemetry.Status `json:"latest,omitempty" doc:"Most recent telemetry sample"`
}

type StatusResponse struct {
	Body StatusData
}

// LogsData holds buffered log entries, oldest first.
type LogsData struct {
	Entries []logging.LogEntry `json:"entries" doc:"Buffered log entries"`
	Count   int                `json:"count" example:"42" doc:"Number of entries"`
}

type LogsInput struct {
	Module string `query:"module" example:"session" doc:"Only return entries from this module"`
	Limit  int    `query:"limit" minimum:"0" example:"100" doc:"Return at most this many of the newest entries, 0 for all"`
}

type LogsResponse struct {
	Body LogsData
}
