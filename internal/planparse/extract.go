// Package planparse turns a Spanish sentence describing a person into a
// complete plan request.
package planparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/eatbalance/web/internal"
)

var (
	ageRe    = regexp.MustCompile(`(\d+)\s*(?:años|año)`)
	weightRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:kg|kilogramos?)`)
	heightRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:cm|cent[ií]metros?)`)
)

type synonymGroup struct {
	level    internal.ActivityLevel
	synonyms []string
}

// activitySynonyms is checked in order and the first group with a hit wins.
// "muy activo" must come before "activo" or it would never match.
var activitySynonyms = []synonymGroup{
	{internal.ActivityVeryActive, []string{"muy activo", "muy activa"}},
	{internal.ActivityActive, []string{"activo", "activa"}},
	{internal.ActivityModerate, []string{"moderado", "moderada"}},
	{internal.ActivityLight, []string{"ligero", "ligera"}},
	{internal.ActivitySedentary, []string{"sedentario", "sedentaria"}},
}

var goalSynonyms = []struct {
	goal     internal.Goal
	synonyms []string
}{
	{internal.GoalSurplus, []string{"superavit", "superávit"}},
	{internal.GoalDeficit, []string{"déficit", "deficit"}},
	{internal.GoalMaintenance, []string{"mantenimiento"}},
}

// Field names reported by UnresolvedError.
const (
	FieldSex      = "sex"
	FieldAge      = "age"
	FieldHeight   = "height_cm"
	FieldWeight   = "weight_kg"
	FieldActivity = "activity_level"
	FieldGoal     = "goal"
)

// UnresolvedError lists the fields the sentence did not provide.
type UnresolvedError struct {
	Missing []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("planparse: unresolved fields: %s", strings.Join(e.Missing, ", "))
}

// Extract returns a complete request or an *UnresolvedError. It never returns
// a partially filled request.
func Extract(text string) (internal.PlanRequest, error) {
	s := strings.ToLower(text)
	var missing []string

	age, ok := matchInt(ageRe, s)
	if !ok {
		missing = append(missing, FieldAge)
	}
	weight, ok := matchDecimal(weightRe, s)
	if !ok {
		missing = append(missing, FieldWeight)
	}
	height, ok := matchDecimal(heightRe, s)
	if !ok {
		missing = append(missing, FieldHeight)
	}
	sex, ok := matchSex(s)
	if !ok {
		missing = append(missing, FieldSex)
	}
	activity, ok := matchActivity(s)
	if !ok {
		missing = append(missing, FieldActivity)
	}
	goal, ok := matchGoal(s)
	if !ok {
		missing = append(missing, FieldGoal)
	}

	if len(missing) > 0 {
		return internal.PlanRequest{}, &UnresolvedError{Missing: missing}
	}
	return internal.PlanRequest{
		Sex:           sex,
		Age:           age,
		HeightCM:      height,
		WeightKG:      weight,
		ActivityLevel: activity,
		Goal:          goal,
	}, nil
}

// ParseDecimal accepts both "75,5" and "75.5".
func ParseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
}

func matchInt(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func matchDecimal(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := ParseDecimal(m[1])
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func matchSex(s string) (internal.Sex, bool) {
	switch {
	case strings.Contains(s, "mujer"):
		return internal.SexFemale, true
	case strings.Contains(s, "hombre"):
		return internal.SexMale, true
	}
	return "", false
}

func matchActivity(s string) (internal.ActivityLevel, bool) {
	for _, g := range activitySynonyms {
		if containsAny(s, g.synonyms) {
			return g.level, true
		}
	}
	return "", false
}

func matchGoal(s string) (internal.Goal, bool) {
	for _, g := range goalSynonyms {
		if containsAny(s, g.synonyms) {
			return g.goal, true
		}
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
