package session

import (
	"context"
	"log/slog"
)

// ToolName identifies one of the functions the model may invoke.
type ToolName string

const (
	ToolCheckAvailability   ToolName = "checkAvailability"
	ToolManageAccessControl ToolName = "manageAccessControl"
	ToolNotifyStaff         ToolName = "notifyStaff"
	ToolSendWhatsApp        ToolName = "sendWhatsApp"
	ToolSetVisualState      ToolName = "setVisualState"
	ToolEndCall             ToolName = "endCall"
)

// KnownToolNames lists every tool the session understands, in the order
// they are declared to the model.
func KnownToolNames() []ToolName {
	return []ToolName{
		ToolCheckAvailability,
		ToolManageAccessControl,
		ToolNotifyStaff,
		ToolSendWhatsApp,
		ToolSetVisualState,
		ToolEndCall,
	}
}

// ParseToolName maps a wire name to a ToolName.
func ParseToolName(name string) (ToolName, bool) {
	for _, known := range KnownToolNames() {
		if string(known) == name {
			return known, true
		}
	}
	return "", false
}

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name ToolName
	Args map[string]any
}

// ToolResult answers one ToolCall. ID and Name echo the call.
type ToolResult struct {
	ID       string
	Name     ToolName
	Response map[string]any
}

// ToolHandler executes one tool invocation on behalf of the host
// application and returns the payload to report back to the model.
type ToolHandler func(ctx context.Context, call ToolCall) (map[string]any, error)

// dispatchTool resolves a single call to its result payload. Handler
// errors, panics and unknown tools degrade to an acknowledgement so the
// model always receives an answer and the conversation keeps moving.
func dispatchTool(ctx context.Context, handlers map[ToolName]ToolHandler, call ToolCall, logger *slog.Logger) (out map[string]any) {
	out = map[string]any{"status": "ok"}

	handler, ok := handlers[call.Name]
	if !ok {
		logger.Debug("no handler registered for tool", "tool", call.Name, "id", call.ID)
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("tool handler panicked", "tool", call.Name, "id", call.ID, "panic", r)
			out = map[string]any{"status": "ok"}
		}
	}()

	result, err := handler(ctx, call)
	if err != nil {
		logger.Warn("tool handler failed", "tool", call.Name, "id", call.ID, "error", err)
		return out
	}
	if len(result) > 0 {
		out = result
	}
	return out
}
