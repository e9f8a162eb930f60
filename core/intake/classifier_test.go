package intake

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyDefaultsToNormal(t *testing.T) {
	rs := DefaultRuleSet()
	prioridad, puntuacion := rs.Classify("la impresora hace un ruido raro al encender")
	if prioridad != PrioridadNormal {
		t.Fatalf("prioridad = %s, want %s", prioridad, PrioridadNormal)
	}
	if puntuacion != 0 {
		t.Fatalf("puntuacion = %v, want 0", puntuacion)
	}
}

func TestClassifySeverityWinsOverMilderLanguage(t *testing.T) {
	rs := DefaultRuleSet()
	// Contains both a critical trigger and a media trigger; the critical
	// rule is checked first so severity wins.
	prioridad, _ := rs.Classify("el servidor se ha caído, no es un gran problema pero avisad")
	if prioridad != PrioridadCritica {
		t.Fatalf("prioridad = %s, want %s", prioridad, PrioridadCritica)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	rs := DefaultRuleSet()
	prioridad, _ := rs.Classify("URGENTE: nada responde")
	if prioridad != PrioridadCritica {
		t.Fatalf("prioridad = %s, want %s", prioridad, PrioridadCritica)
	}
}

func TestClassifyAltaAndMedia(t *testing.T) {
	rs := DefaultRuleSet()
	if prioridad, _ := rs.Classify("el sistema va muy lento desde ayer"); prioridad != PrioridadAlta {
		t.Fatalf("prioridad = %s, want %s", prioridad, PrioridadAlta)
	}
	if prioridad, _ := rs.Classify("tengo un problema con mi factura"); prioridad != PrioridadMedia {
		t.Fatalf("prioridad = %s, want %s", prioridad, PrioridadMedia)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	rs := DefaultRuleSet()
	text := "fallo urgente en el servidor, todo bloqueado"
	firstPrioridad, firstPuntuacion := rs.Classify(text)
	for i := 0; i < 50; i++ {
		prioridad, puntuacion := rs.Classify(text)
		if prioridad != firstPrioridad || puntuacion != firstPuntuacion {
			t.Fatalf("call %d: got (%s, %v), want (%s, %v)", i, prioridad, puntuacion, firstPrioridad, firstPuntuacion)
		}
	}
}

func TestClassifyScoreSumsMatchedTriggers(t *testing.T) {
	rs := DefaultRuleSet()
	// One critical trigger (0.4) plus one alta trigger (0.25).
	prioridad, puntuacion := rs.Classify("crash total, el disco va lento")
	if prioridad != PrioridadCritica {
		t.Fatalf("prioridad = %s, want %s", prioridad, PrioridadCritica)
	}
	if puntuacion < 0.64 || puntuacion > 0.66 {
		t.Fatalf("puntuacion = %v, want 0.65", puntuacion)
	}
}

func TestNewRuleSetRejectsNormalRules(t *testing.T) {
	if _, err := NewRuleSet([]Rule{{Prioridad: PrioridadNormal, Triggers: []string{"x"}}}); err == nil {
		t.Fatal("expected error for NORMAL rule")
	}
	if _, err := NewRuleSet([]Rule{{Prioridad: "EXTREMA", Triggers: []string{"x"}}}); err == nil {
		t.Fatal("expected error for unknown prioridad")
	}
	if _, err := NewRuleSet([]Rule{{Prioridad: PrioridadAlta, Triggers: []string{"  "}}}); err == nil {
		t.Fatal("expected error for empty trigger list")
	}
}

func TestNewRuleSetOrdersBySeverity(t *testing.T) {
	rs, err := NewRuleSet([]Rule{
		{Prioridad: PrioridadMedia, Triggers: []string{"papel"}, Weight: 0.1},
		{Prioridad: PrioridadCritica, Triggers: []string{"papel quemado"}, Weight: 0.4},
	})
	if err != nil {
		t.Fatalf("NewRuleSet: %v", err)
	}
	// Both rules match; the critical one must win regardless of input order.
	if prioridad, _ := rs.Classify("hay papel quemado en la bandeja"); prioridad != PrioridadCritica {
		t.Fatalf("prioridad = %s, want %s", prioridad, PrioridadCritica)
	}
}

func TestLoadRuleSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - prioridad: "CRÍTICA"
    triggers: ["incendio"]
    weight: 0.5
  - prioridad: "ALTA"
    triggers: ["gotera"]
    weight: 0.2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	if prioridad, puntuacion := rs.Classify("hay un incendio en la sala"); prioridad != PrioridadCritica || puntuacion != 0.5 {
		t.Fatalf("got (%s, %v), want (CRÍTICA, 0.5)", prioridad, puntuacion)
	}
	if prioridad, _ := rs.Classify("una gotera en el techo"); prioridad != PrioridadAlta {
		t.Fatalf("prioridad = %s, want %s", prioridad, PrioridadAlta)
	}
}

func TestLoadRuleSetMissingFile(t *testing.T) {
	if _, err := LoadRuleSet(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}
