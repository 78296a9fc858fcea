package correct

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Vocabulary maps colloquial specialty names to their canonical form.
type Vocabulary struct {
	terms map[string]string
	keys  []string // sorted for deterministic partial matching
}

// DefaultVocabulary returns the built-in specialty table.
func DefaultVocabulary() *Vocabulary {
	return newVocabulary(map[string]string{
		"cardio":            "Cardiology",
		"cardiologist":      "Cardiology",
		"heart doctor":      "Cardiology",
		"ortho":             "Orthopedics",
		"orthopedic":        "Orthopedics",
		"bone doctor":       "Orthopedics",
		"pediatrics":        "Pediatrics",
		"peds":              "Pediatrics",
		"child doctor":      "Pediatrics",
		"internal medicine": "Internal Medicine",
		"family practice":   "Family Medicine",
		"family medicine":   "Family Medicine",
		"general practice":  "Family Medicine",
		"dermatology":       "Dermatology",
		"skin doctor":       "Dermatology",
		"neurology":         "Neurology",
		"neurologist":       "Neurology",
		"psychiatry":        "Psychiatry",
		"mental health":     "Psychiatry",
	})
}

// LoadVocabulary reads a specialty vocabulary from a YAML file. The file maps
// lowercase variants to canonical names:
//
//	specialties:
//	  cardio: Cardiology
//	  peds: Pediatrics
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "correct: read vocabulary %s", path)
	}

	var wrapper struct {
		Specialties map[string]string `yaml:"specialties"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "correct: parse vocabulary")
	}
	if len(wrapper.Specialties) == 0 {
		return nil, eris.Errorf("correct: vocabulary %s has no specialties", path)
	}

	terms := make(map[string]string, len(wrapper.Specialties))
	for k, v := range wrapper.Specialties {
		terms[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return newVocabulary(terms), nil
}

func newVocabulary(terms map[string]string) *Vocabulary {
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Vocabulary{terms: terms, keys: keys}
}

var titleCaser = cases.Title(language.AmericanEnglish)

// Normalize resolves a specialty against the vocabulary. Exact matches score
// 0.98, partial matches 0.85, and anything else falls back to a title-cased
// cleanup at 0.6. Empty input scores zero.
func (v *Vocabulary) Normalize(specialty string) (value string, confidence float64, source string) {
	if strings.TrimSpace(specialty) == "" {
		return "", 0.0, "Empty specialty"
	}

	lower := strings.ToLower(strings.TrimSpace(specialty))

	if canonical, ok := v.terms[lower]; ok {
		return canonical, 0.98, "Controlled vocabulary"
	}

	for _, key := range v.keys {
		if strings.Contains(lower, key) || strings.Contains(key, lower) {
			return v.terms[key], 0.85, "Partial match in vocabulary"
		}
	}

	return titleCaser.String(strings.TrimSpace(specialty)), 0.6, "Basic cleaning"
}
