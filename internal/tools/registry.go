package tools

import (
	"context"
	"runtime/debug"
	"sort"

	"go.uber.org/zap"
)

// Tool names as exposed to the agent.
const (
	ToolSearchPeople   = "search_people"
	ToolGetProfile     = "get_profile"
	ToolSendConnection = "send_connection"
	ToolNavigate       = "navigate"
	ToolClick          = "click"
	ToolTypeText       = "type_text"
	ToolScroll         = "scroll"
	ToolScreenshot     = "screenshot"
	ToolSessionStatus  = "session_status"
)

// Handler runs one tool call. It must return exactly one Outcome.
type Handler func(ctx context.Context, env *Env, args map[string]any) Outcome

// Tool is a named operation with its JSON input schema.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	Handler     Handler        `json:"-"`
}

// Registry maps tool names to handlers.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry returns a registry holding every built-in tool.
func NewRegistry() *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range builtinTools() {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name] = t
}

// Lookup returns the tool named name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools lists the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch runs the named tool against env. Panics and malformed outcomes
// are converted into Error outcomes here so nothing escapes the boundary.
func (r *Registry) Dispatch(ctx context.Context, env *Env, name string, args map[string]any) (out Outcome) {
	t, ok := r.tools[name]
	if !ok {
		return Errorf("unknown tool %q", name)
	}
	logger := env.logger.With(zap.String("tool", name))
	start := env.clock.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Tool handler panicked.",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			out = Errorf("internal error in %s: %v", name, rec)
		}
		if err := out.Check(); err != nil {
			logger.Error("Tool returned a malformed outcome.", zap.Error(err))
			out = Errorf("malformed outcome from %s: %v", name, err)
		}
		logger.Info("Tool call finished.",
			zap.String("status", string(out.Status)),
			zap.String("reason", string(out.Reason)),
			zap.Duration("duration", env.clock.Now().Sub(start)))
	}()

	logger.Debug("Tool call started.")
	return t.Handler(ctx, env, args)
}

func browserUnavailable(err error) Outcome {
	return Errorf("browser unavailable: %v", err)
}

func schema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func integer(desc string, lo, hi int) map[string]any {
	return map[string]any{"type": "integer", "description": desc, "minimum": lo, "maximum": hi}
}

func builtinTools() []Tool {
	targetProps := func() map[string]any {
		return map[string]any{
			"selector": str("CSS selector of the element."),
			"role":     str("Logical role from the selector table, e.g. connect_button."),
		}
	}
	typeProps := targetProps()
	typeProps["text"] = str("Text to type.")
	typeProps["clear"] = map[string]any{"type": "boolean", "description": "Clear the field first."}

	return []Tool{
		{
			Name:        ToolSearchPeople,
			Description: "Search for people and return up to limit results with name, headline, location and profile URL.",
			InputSchema: schema(map[string]any{
				"query":    str("Search keywords."),
				"location": str("Optional location added to the keywords."),
				"limit":    integer("Maximum results (default 10).", 1, maxSearchLimit),
			}, "query"),
			Handler: SearchPeople,
		},
		{
			Name:        ToolGetProfile,
			Description: "Open a member profile and extract name, headline, location, about, experience and education.",
			InputSchema: schema(map[string]any{"profile_url": str("Profile URL (/in/<id>).")}, "profile_url"),
			Handler:     GetProfile,
		},
		{
			Name:        ToolSendConnection,
			Description: "Send a connection request, optionally with a note of at most 300 characters.",
			InputSchema: schema(map[string]any{
				"profile_url": str("Profile URL (/in/<id>)."),
				"message":     map[string]any{"type": "string", "description": "Optional note.", "maxLength": maxNoteLength},
			}, "profile_url"),
			Handler: SendConnection,
		},
		{
			Name:        ToolNavigate,
			Description: "Load an absolute http(s) URL in the browser.",
			InputSchema: schema(map[string]any{"url": str("Absolute URL.")}, "url"),
			Handler:     Navigate,
		},
		{
			Name:        ToolClick,
			Description: "Click an element by CSS selector or logical role with a humanized pointer.",
			InputSchema: schema(targetProps()),
			Handler:     Click,
		},
		{
			Name:        ToolTypeText,
			Description: "Type text into a field by CSS selector or logical role with humanized keystrokes.",
			InputSchema: schema(typeProps, "text"),
			Handler:     TypeText,
		},
		{
			Name:        ToolScroll,
			Description: "Scroll the page like a person would.",
			InputSchema: schema(map[string]any{
				"direction": map[string]any{"type": "string", "enum": []string{"down", "up"}},
				"times":     integer("Number of scrolls (default 1).", 1, maxScrollTimes),
			}),
			Handler: Scroll,
		},
		{
			Name:        ToolScreenshot,
			Description: "Capture the viewport or one element and return the file path of the image.",
			InputSchema: schema(map[string]any{"selector": str("Optional CSS selector.")}),
			Handler:     Screenshot,
		},
		{
			Name:        ToolSessionStatus,
			Description: "Report session pacing, browser state and the invitation budget.",
			InputSchema: schema(map[string]any{}),
			Handler:     SessionStatus,
		},
	}
}
