package intake

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Prioridad string

const (
	PrioridadCritica Prioridad = "CRÍTICA"
	PrioridadAlta    Prioridad = "ALTA"
	PrioridadMedia   Prioridad = "MEDIA"
	PrioridadNormal  Prioridad = "NORMAL"
)

var severityRank = map[Prioridad]int{
	PrioridadCritica: 0,
	PrioridadAlta:    1,
	PrioridadMedia:   2,
	PrioridadNormal:  3,
}

// Rule ties a set of trigger phrases to a priority. Weight feeds the raw
// keyword score reported alongside the priority.
type Rule struct {
	Prioridad Prioridad `yaml:"prioridad"`
	Triggers  []string  `yaml:"triggers"`
	Weight    float64   `yaml:"weight"`
}

// RuleSet is an immutable ordered rule list built once at startup. Rules are
// held most-severe first so a description carrying both urgent and mild
// language always resolves to the severe priority.
type RuleSet struct {
	rules []Rule
}

func NewRuleSet(rules []Rule) (*RuleSet, error) {
	clean := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if _, ok := severityRank[r.Prioridad]; !ok || r.Prioridad == PrioridadNormal {
			return nil, fmt.Errorf("rule #%d: unknown prioridad %q", i+1, r.Prioridad)
		}
		var triggers []string
		for _, t := range r.Triggers {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				triggers = append(triggers, t)
			}
		}
		if len(triggers) == 0 {
			return nil, fmt.Errorf("rule #%d (%s): no triggers", i+1, r.Prioridad)
		}
		clean = append(clean, Rule{Prioridad: r.Prioridad, Triggers: triggers, Weight: r.Weight})
	}
	sort.SliceStable(clean, func(i, j int) bool {
		return severityRank[clean[i].Prioridad] < severityRank[clean[j].Prioridad]
	})
	return &RuleSet{rules: clean}, nil
}

// DefaultRuleSet mirrors the keyword sets the service shipped with.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet([]Rule{
		{Prioridad: PrioridadCritica, Weight: 0.4, Triggers: []string{
			"urgente", "fuego", "crash", "caída", "servidor", "error crítico",
		}},
		{Prioridad: PrioridadAlta, Weight: 0.25, Triggers: []string{
			"fallo", "no funciona", "bloqueado", "lento",
		}},
		{Prioridad: PrioridadMedia, Weight: 0.1, Triggers: []string{
			"error", "problema", "consulta",
		}},
	})
	if err != nil {
		panic(err)
	}
	return rs
}

// LoadRuleSet reads rules from a YAML file:
//
//	rules:
//	  - prioridad: CRÍTICA
//	    triggers: [urgente, fuego]
//	    weight: 0.4
func LoadRuleSet(path string) (*RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier rules: %w", err)
	}
	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse classifier rules %s: %w", path, err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("classifier rules %s: no rules defined", path)
	}
	return NewRuleSet(doc.Rules)
}

// Classify scores a free-text description. Rules are walked most-severe
// first; the first rule with a trigger contained in the text decides the
// priority, and NORMAL is the fallback. The score is the summed weight of
// every matched trigger across all rules, matching the stored
// puntuacion_ia of existing records. Pure function: same text, same result.
func (rs *RuleSet) Classify(descripcion string) (Prioridad, float64) {
	text := strings.ToLower(descripcion)
	prioridad := PrioridadNormal
	score := 0.0
	for _, rule := range rs.rules {
		matched := false
		for _, trigger := range rule.Triggers {
			if strings.Contains(text, trigger) {
				score += rule.Weight
				matched = true
			}
		}
		if matched && prioridad == PrioridadNormal {
			prioridad = rule.Prioridad
		}
	}
	if prioridad == PrioridadNormal {
		return PrioridadNormal, 0
	}
	return prioridad, score
}
