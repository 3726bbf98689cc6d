package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	target := ModelTarget{
		Name:     "gpt-4",
		Provider: "openai",
		Config:   map[string]string{"temperature": "0.7", "max_tokens": "256"},
	}

	assert.Equal(t, Fingerprint("promptinject.basic", target), Fingerprint("promptinject.basic", target))
}

func TestFingerprint_IndependentOfConfigKeyOrder(t *testing.T) {
	a := ModelTarget{
		Name:     "gpt-4",
		Provider: "openai",
		Config:   map[string]string{"a": "1", "b": "2", "c": "3"},
	}
	b := ModelTarget{
		Name:     "gpt-4",
		Provider: "openai",
		Config:   map[string]string{"c": "3", "a": "1", "b": "2"},
	}

	assert.Equal(t, Fingerprint("promptinject.basic", a), Fingerprint("promptinject.basic", b))
}

func TestFingerprint_SensitiveToEveryComponent(t *testing.T) {
	base := ModelTarget{
		Name:     "gpt-4",
		Provider: "openai",
		Config:   map[string]string{"temperature": "0.7"},
	}
	fp := Fingerprint("promptinject.basic", base)

	otherProbe := Fingerprint("jailbreak.dan", base)
	assert.NotEqual(t, fp, otherProbe)

	otherModel := base
	otherModel.Name = "gpt-3.5"
	assert.NotEqual(t, fp, Fingerprint("promptinject.basic", otherModel))

	otherProvider := base
	otherProvider.Provider = "azure"
	assert.NotEqual(t, fp, Fingerprint("promptinject.basic", otherProvider))

	otherConfig := ModelTarget{
		Name:     "gpt-4",
		Provider: "openai",
		Config:   map[string]string{"temperature": "0.9"},
	}
	assert.NotEqual(t, fp, Fingerprint("promptinject.basic", otherConfig))
}

func TestFingerprint_KeyValueBoundariesDoNotCollide(t *testing.T) {
	a := ModelTarget{Name: "m", Provider: "p", Config: map[string]string{"ab": "c"}}
	b := ModelTarget{Name: "m", Provider: "p", Config: map[string]string{"a": "bc"}}

	assert.NotEqual(t, Fingerprint("probe", a), Fingerprint("probe", b))
}

func TestModelKey_Lowercased(t *testing.T) {
	key := ModelKey(ModelTarget{Name: "GPT-4", Provider: "OpenAI"})
	assert.Equal(t, "openai:gpt-4", key)
}
