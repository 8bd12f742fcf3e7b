package actuator

import (
	"time"
)

// LaunchOptions configures a new actuator instance.
type LaunchOptions struct {
	SessionID string `json:"session_id"`

	// ChromePath, when set, makes the runtime launch a local Chrome with a
	// remote debugging port instead of letting the agent bring its own.
	ChromePath string `json:"chrome_path,omitempty"`

	Headless          bool `json:"headless"`
	ViewportExpansion int  `json:"viewport_expansion,omitempty"`

	// MaxActionsPerStep caps how many browser actions the agent may take in
	// a single reasoning step.
	MaxActionsPerStep int `json:"max_actions_per_step,omitempty"`
}

// DefaultLaunchOptions returns the recommended launch defaults.
func DefaultLaunchOptions() LaunchOptions {
	return LaunchOptions{
		Headless:          false,
		ViewportExpansion: 0,
		MaxActionsPerStep: 4,
	}
}

// ActionType identifies a browser action taken during a step.
type ActionType string

const (
	ActionNavigate ActionType = "go_to_url"
	ActionClick    ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionSubmit   ActionType = "submit"
	ActionSelect   ActionType = "select"
	ActionScroll   ActionType = "scroll"
	ActionExtract  ActionType = "extract"
	ActionAskUser  ActionType = "ask_user"
	ActionDone     ActionType = "done"
)

// Action is one browser action recorded in the run history.
type Action struct {
	Type ActionType `json:"type"`
	URL  string     `json:"url,omitempty"`
	Text string     `json:"text,omitempty"`
}

// Step is one reasoning step of a run: the actions taken, the content
// extracted, and an optional page capture.
type Step struct {
	Actions    []Action  `json:"actions,omitempty"`
	Extracted  []string  `json:"extracted,omitempty"`
	Screenshot []byte    `json:"screenshot,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Result is the outcome of a completed run. The raw history can carry large
// page captures; callers ship Digest() over the wire, never the Result itself.
type Result struct {
	FinalOutput string        `json:"final_output,omitempty"`
	History     []Step        `json:"history,omitempty"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
}
