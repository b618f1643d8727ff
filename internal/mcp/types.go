// File: internal/mcp/types.go
package mcp

import (
	"github.com/xkilldash9x/linkmcp/internal/tools"
)

// ServerInfo identifies this server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CommandRequest is the body of POST /api/v1/command.
type CommandRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// CommandResponse wraps an outcome for the HTTP transport.
type CommandResponse struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   *tools.Outcome `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// MessageType is the kind of a websocket frame.
type MessageType string

const (
	MsgTypeToolCall     MessageType = "ToolCall"
	MsgTypeToolResult   MessageType = "ToolResult"
	MsgTypeStatusUpdate MessageType = "StatusUpdate"
	MsgTypeSystemError  MessageType = "SystemError"
)

// WSMessage is the envelope for every websocket frame.
type WSMessage struct {
	Type      MessageType    `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Result    *tools.Outcome `json:"result,omitempty"`
	Timestamp string         `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
}
