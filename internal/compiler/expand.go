package compiler

import (
	"fmt"

	"github.com/aretw0/pergola/pkg/domain"
)

// expandGroups macro-expands VariableGroup names everywhere a variable list
// is accepted. A token matching a declared group is replaced by the group's
// members in place; duplicates introduced by expansion collapse, keeping
// first position. Groups may reference other groups, cycles are rejected.
func expandGroups(doc *domain.Document) error {
	resolved := make(map[string][]string, len(doc.VariableGroups))
	for name := range doc.VariableGroups {
		vars, err := resolveGroup(doc, name, map[string]bool{})
		if err != nil {
			return err
		}
		resolved[name] = vars
	}

	expand := func(list []string) []string {
		var out []string
		seen := map[string]bool{}
		for _, tok := range list {
			members, isGroup := resolved[tok]
			if !isGroup {
				members = []string{tok}
			}
			for _, m := range members {
				if !seen[m] {
					seen[m] = true
					out = append(out, m)
				}
			}
		}
		return out
	}

	for _, m := range doc.Models {
		m.Variables = expand(m.Variables)
		m.Features = expand(m.Features)
		m.Targets = expand(m.Targets)
	}
	for _, d := range doc.DataObjects {
		d.Inputs = expand(d.Inputs)
		d.Outputs = expand(d.Outputs)
	}
	return nil
}

func resolveGroup(doc *domain.Document, name string, visiting map[string]bool) ([]string, error) {
	if visiting[name] {
		return nil, fmt.Errorf("variable group %q is part of a cycle: %w", name, domain.ErrValidation)
	}
	visiting[name] = true
	defer delete(visiting, name)

	var out []string
	for _, tok := range doc.VariableGroups[name].Variables {
		if _, isGroup := doc.VariableGroups[tok]; isGroup {
			nested, err := resolveGroup(doc, tok, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}
