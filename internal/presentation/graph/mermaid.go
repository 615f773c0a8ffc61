// Package graph renders a workflow as a Mermaid flowchart: sequenced steps
// joined by execution order, with the entities each step touches attached as
// data edges.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/pergola/pkg/domain"
)

// GenerateMermaid produces Mermaid flowchart syntax for the document.
// It applies semantic styling:
// - Step: [Rectangle]
// - Sampler: [/Parallelogram/]
// - Model: [[Subroutine]]
// - DataObject: [(Cylinder)]
// - OutStream: >Flag]
// Sequence order uses solid arrows; data flow uses dotted arrows.
func GenerateMermaid(doc *domain.Document) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declared := make(map[string]bool)
	declare := func(id, shape, label string) {
		if declared[id] {
			return
		}
		declared[id] = true
		opener, closer := "[", "]"
		switch shape {
		case "sampler":
			opener, closer = "[/", "/]"
		case "model":
			opener, closer = "[[", "]]"
		case "data":
			opener, closer = "[(", ")]"
		case "stream":
			opener, closer = ">", "]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label, closer))
	}

	var prev string
	for _, name := range doc.RunInfo.Sequence {
		step, ok := doc.Steps[name]
		if !ok {
			continue
		}
		stepID := sanitizeMermaidID("step_" + name)
		declare(stepID, "step", fmt.Sprintf("%s<br/>%s", name, step.Kind))

		if prev != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", prev, stepID))
		}
		prev = stepID

		if step.Sampler != nil {
			id := sanitizeMermaidID("smp_" + step.Sampler.Name)
			declare(id, "sampler", step.Sampler.Name)
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", id, stepID))
		}
		if step.Model != nil {
			id := sanitizeMermaidID("mdl_" + step.Model.Name)
			declare(id, "model", step.Model.Name)
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", id, stepID))
		}
		for _, in := range step.Inputs {
			if in.Class != domain.CollectionDataObjects {
				continue
			}
			id := sanitizeMermaidID("do_" + in.Name)
			declare(id, "data", in.Name)
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", id, stepID))
		}
		for _, out := range step.Outputs {
			switch out.Class {
			case domain.CollectionDataObjects:
				id := sanitizeMermaidID("do_" + out.Name)
				declare(id, "data", out.Name)
				sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", stepID, id))
			case domain.CollectionOutStreams:
				id := sanitizeMermaidID("os_" + out.Name)
				declare(id, "stream", out.Name)
				sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", stepID, id))
			case domain.CollectionModels:
				id := sanitizeMermaidID("mdl_" + out.Name)
				declare(id, "model", out.Name)
				sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", stepID, id))
			}
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
