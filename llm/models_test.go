package llm

import "testing"

func TestProviderForModel(t *testing.T) {
	tests := []struct {
		model string
		want  Provider
		err   bool
	}{
		{ModelGPT4oMini, ProviderOpenAI, false},
		{ModelClaude35Haiku, ProviderAnthropic, false},
		{"gpt-5-preview", ProviderOpenAI, false},
		{"o3-mini", ProviderOpenAI, false},
		{"claude-opus-4-1", ProviderAnthropic, false},
		{"llama3", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, err := ProviderForModel(tt.model)
			if (err != nil) != tt.err {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %s got %s", tt.want, got)
			}
		})
	}
}

func TestDefaultModelsAreCatalogued(t *testing.T) {
	for p, name := range DefaultModels {
		m, err := GetModel(name)
		if err != nil {
			t.Fatalf("%s default %s: %v", p, name, err)
		}
		if m.Provider != p {
			t.Fatalf("%s default belongs to %s", p, m.Provider)
		}
	}
}

func TestEstimateCost(t *testing.T) {
	got := EstimateCost(ModelGPT4oMini, 1_000_000, 1_000_000)
	if got < 0.74 || got > 0.76 {
		t.Fatalf("unexpected cost %f", got)
	}
	if EstimateCost("unknown", 100, 100) != 0 {
		t.Fatalf("unknown model should be free")
	}
}

func TestModelsSorted(t *testing.T) {
	ms := Models()
	for i := 1; i < len(ms); i++ {
		a, b := ms[i-1], ms[i]
		if a.Provider > b.Provider || (a.Provider == b.Provider && a.Name > b.Name) {
			t.Fatalf("not sorted at %d: %s before %s", i, a, b)
		}
	}
}
