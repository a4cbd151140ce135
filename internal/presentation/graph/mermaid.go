package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/workflow"
)

// Overlay marks the step a user is currently at.
type Overlay struct {
	Current domain.Step
}

// GenerateMermaid produces a Mermaid flowchart of the intake conversation.
// It applies semantic styling:
// - No session: ((Circle))
// - Terminal: (((Double circle)))
// - Awaiting input: [/Parallelogram/]
// Cancel edges are dotted. An overlay highlights the current step.
func GenerateMermaid(flow []workflow.Transition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declared := make(map[domain.Step]bool)
	declare := func(s domain.Step) {
		if declared[s] {
			return
		}
		declared[s] = true

		opener, closer := "[/", "/]"
		switch s {
		case domain.StepNone:
			opener, closer = "((", "))"
		case domain.StepTerminal:
			opener, closer = "(((", ")))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", nodeID(s), opener, nodeID(s), closer)
	}

	for _, t := range flow {
		declare(t.From)
		declare(t.To)
	}

	for _, t := range flow {
		label := strings.ReplaceAll(t.Label, "\"", "'")
		if t.Trigger == domain.EventCancel {
			fmt.Fprintf(&sb, "    %s -. \"⚡ %s\" .-> %s\n", nodeID(t.From), label, nodeID(t.To))
			continue
		}
		fmt.Fprintf(&sb, "    %s -- \"%s: %s\" --> %s\n", nodeID(t.From), t.Trigger, label, nodeID(t.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for contrast on light and dark themes.
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", nodeID(overlay.Current))
	}

	return sb.String()
}

func nodeID(s domain.Step) string {
	if s == domain.StepNone {
		return "none"
	}
	return strings.ReplaceAll(string(s), "-", "_")
}
