package scraper

import (
	"regexp"
	"strings"
)

// Mode selects which suffix vocabulary the variant planner probes for a base
// model. Physical catalog items are often published under several near-identical
// pages whose URLs differ only by a fuel/voltage/phase suffix.
type Mode string

const (
	ModeNone       Mode = "None"
	ModeGasType    Mode = "Gas Type"
	ModeElectric   Mode = "Electric"
	ModeLowVoltage Mode = "Low Voltage"
	ModeCheckAll   Mode = "Check All"
	ModeAuto       Mode = "Auto"
)

var (
	gasVariants = []string{"LP", "NG"}

	electricVariants = []string{
		"115", "1151", "120", "1201", "208", "2081", "2083",
		"220", "2201", "2203", "230", "2301", "2303", "240", "2401", "2403",
		"4403", "4003",
	}

	lowVoltageVariants = []string{
		"115", "1151", "120", "1201", "208", "2081",
		"220", "2201", "230", "2301", "240", "2401",
	}

	// Check All probes the gas suffixes first, then the electric set.
	allVariants = append(append([]string{}, gasVariants...), electricVariants...)
)

// SpecLookup maps a raw model identifier to its free-text specification,
// side-loaded from a vendor sheet. Auto mode resolves against it.
type SpecLookup map[string]string

var (
	gasWordPattern      = regexp.MustCompile(`(?i)\bgas\b`)
	electricWordPattern = regexp.MustCompile(`(?i)\belectric\b`)
)

// ResolveAutoMode inspects the model's specification text for the whole words
// "gas" and "electric" and picks the matching vocabulary. Models absent from
// the lookup, or with neither word, get no suffixes beyond the original page.
func ResolveAutoMode(model string, specs SpecLookup) Mode {
	spec, ok := specs[model]
	if !ok {
		return ModeNone
	}

	hasGas := gasWordPattern.MatchString(spec)
	hasElectric := electricWordPattern.MatchString(spec)

	switch {
	case hasGas && hasElectric:
		return ModeCheckAll
	case hasGas:
		return ModeGasType
	case hasElectric:
		return ModeElectric
	default:
		return ModeNone
	}
}

// PlanVariants returns the ordered suffixes to probe for one base model. The
// empty suffix, the unsuffixed original page, always comes first regardless of
// mode. Auto is resolved through the spec lookup before the vocabulary is
// chosen.
func PlanVariants(mode Mode, model string, specs SpecLookup) []string {
	if mode == ModeAuto {
		mode = ResolveAutoMode(model, specs)
	}

	plan := []string{""}
	switch mode {
	case ModeGasType:
		plan = append(plan, gasVariants...)
	case ModeElectric:
		plan = append(plan, electricVariants...)
	case ModeLowVoltage:
		plan = append(plan, lowVoltageVariants...)
	case ModeCheckAll:
		plan = append(plan, allVariants...)
	}
	return plan
}

// specColumnName is the literal header the side-loaded vendor sheet uses for
// the free-text specification column.
const specColumnName = "AQ Specification"

// BuildSpecLookup extracts the model -> specification mapping Auto mode needs
// from a tabular sheet. The model column is the first header containing both
// "model" and "mfr" (case-insensitive); the spec column must be named exactly
// "AQ Specification". If either is missing the lookup is empty and Auto
// degrades to None for every model.
func BuildSpecLookup(header []string, rows [][]string) SpecLookup {
	specCol := -1
	modelCol := -1
	for i, name := range header {
		trimmed := strings.TrimSpace(name)
		if trimmed == specColumnName && specCol == -1 {
			specCol = i
		}
		lower := strings.ToLower(trimmed)
		if modelCol == -1 && strings.Contains(lower, "model") && strings.Contains(lower, "mfr") {
			modelCol = i
		}
	}

	lookup := make(SpecLookup)
	if specCol == -1 || modelCol == -1 {
		return lookup
	}

	for _, row := range rows {
		if modelCol >= len(row) || specCol >= len(row) {
			continue
		}
		model := strings.TrimSpace(row[modelCol])
		if model == "" {
			continue
		}
		lookup[model] = strings.ToLower(strings.TrimSpace(row[specCol]))
	}
	return lookup
}
