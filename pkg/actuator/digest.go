package actuator

import (
	"fmt"
	"strings"
)

// Digest summarizes a run into a short action log suitable for transmission.
// Screenshots and other large payloads are dropped; each step becomes one
// bullet listing the actions taken and what they extracted.
func (r *Result) Digest() string {
	if r == nil {
		return ""
	}
	if len(r.History) == 0 {
		if r.FinalOutput != "" {
			return r.FinalOutput
		}
		return "Task completed"
	}

	var sb strings.Builder
	sb.WriteString("Task completed with the following steps:\n")
	for _, step := range r.History {
		line := summarizeStep(step)
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if r.FinalOutput != "" {
		sb.WriteString(r.FinalOutput)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func summarizeStep(step Step) string {
	var actions []string
	for _, a := range step.Actions {
		switch a.Type {
		case ActionNavigate:
			actions = append(actions, "Navigated to "+a.URL)
		case ActionClick, ActionTypeText, ActionSubmit, ActionSelect:
			actions = append(actions, fmt.Sprintf("Performed %s action", a.Type))
		case ActionAskUser:
			actions = append(actions, "Asked user for input")
		case ActionExtract, ActionScroll, ActionDone:
			// Covered by extracted content or not worth a line.
		}
	}

	if len(actions) == 0 && len(step.Extracted) == 0 {
		return ""
	}

	line := "• " + strings.Join(actions, ", ")
	if len(step.Extracted) > 0 {
		if len(actions) == 0 {
			line = "• " + strings.Join(step.Extracted, " ")
		} else {
			line += " → " + strings.Join(step.Extracted, " ")
		}
	}
	return line
}
