// Package match resolves raw statement rows to registered plots. Matching
// runs the configured stages in order and stops at the first stage that
// yields exactly one plot; several distinct plots at one stage make the row
// ambiguous rather than picking a winner arbitrarily.
package match

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/ttacon/libphonenumber"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/registry"
)

// Status classifies a match outcome.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusAmbiguous Status = "ambiguous"
	StatusUnmatched Status = "unmatched"
)

// Stage names one matching strategy.
type Stage string

const (
	StagePlotNumber Stage = "plot_number"
	StagePhone      Stage = "phone"
	StageOwnerName  Stage = "owner_name"
	StagePayerOnly  Stage = "payer_only"
)

// DefaultPrecedence is the documented stage order: an explicit plot number
// always wins, a phone hit is a warning-tier fallback, owner names come
// after that, and the payer-only heuristic is the last resort.
var DefaultPrecedence = []Stage{StagePlotNumber, StagePhone, StageOwnerName, StagePayerOnly}

// stage confidences.
var confidence = map[Stage]float64{
	StagePlotNumber: 0.9,
	StagePhone:      0.6,
	StageOwnerName:  0.7,
	StagePayerOnly:  0.5,
}

// Input is one normalized statement row, as far as matching is concerned.
type Input struct {
	PlotNumber string
	OwnerName  string
	Phone      string
	Purpose    string
}

// Result is the match outcome for one row.
type Result struct {
	Status     Status
	PlotID     *uuid.UUID
	Candidates []uuid.UUID
	Stage      Stage
	Confidence float64
	Warning    bool
	Reason     string
}

// plot-number patterns recognized in free text: "участок 12", "уч. 12",
// "№12", "У-12".
var plotPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)участок\s*№?\s*(\d+[а-яa-z]?)`),
	regexp.MustCompile(`(?i)уч\.?\s*№?\s*(\d+[а-яa-z]?)`),
	regexp.MustCompile(`№\s*(\d+[а-яА-Яa-zA-Z]?)`),
	regexp.MustCompile(`(?i)у-(\d+[а-яa-z]?)`),
}

// Matcher resolves rows against a snapshot of the plot register. Each row is
// matched independently; the snapshot is taken once per import.
type Matcher struct {
	precedence []Stage
	plots      []registry.Plot
	byNumber   map[string][]int
	byPhone    map[string][]int
}

// New builds a matcher over the given plots. A nil precedence uses
// DefaultPrecedence.
func New(plots []registry.Plot, precedence []Stage) *Matcher {
	if precedence == nil {
		precedence = DefaultPrecedence
	}
	m := &Matcher{
		precedence: precedence,
		plots:      plots,
		byNumber:   make(map[string][]int),
		byPhone:    make(map[string][]int),
	}
	for i, p := range plots {
		if n := registry.NormalizeNumber(p.PlotNumber); n != "" {
			m.byNumber[n] = append(m.byNumber[n], i)
		}
		if d := phoneKey(p.Phone); d != "" {
			m.byPhone[d] = append(m.byPhone[d], i)
		}
	}
	return m
}

// Match runs the stages in precedence order.
func (m *Matcher) Match(in Input) Result {
	for _, stage := range m.precedence {
		var hits []int
		switch stage {
		case StagePlotNumber:
			hits = m.matchPlotNumber(in)
		case StagePhone:
			hits = m.matchPhone(in)
		case StageOwnerName:
			hits = m.matchOwnerName(in.OwnerName)
		case StagePayerOnly:
			hits = m.matchPayerOnly(in)
		}
		if len(hits) == 0 {
			continue
		}
		return m.resolve(stage, hits)
	}
	return Result{Status: StatusUnmatched, Reason: "участок не определен"}
}

func (m *Matcher) resolve(stage Stage, hits []int) Result {
	ids := uniquePlotIDs(m.plots, hits)
	if len(ids) > 1 {
		return Result{
			Status:     StatusAmbiguous,
			Candidates: ids,
			Stage:      stage,
			Reason:     "найдено несколько участков",
		}
	}
	id := ids[0]
	return Result{
		Status:     StatusMatched,
		PlotID:     &id,
		Candidates: ids,
		Stage:      stage,
		Confidence: confidence[stage],
		Warning:    stage == StagePhone,
	}
}

// matchPlotNumber checks the explicit plot-number cell first, then extracts
// numbers from the purpose text.
func (m *Matcher) matchPlotNumber(in Input) []int {
	if n := registry.NormalizeNumber(in.PlotNumber); n != "" {
		if hits, ok := m.byNumber[n]; ok {
			return hits
		}
	}
	var hits []int
	for _, num := range ExtractPlotNumbers(in.Purpose) {
		hits = append(hits, m.byNumber[num]...)
	}
	return hits
}

// ExtractPlotNumbers pulls normalized plot numbers out of free text.
func ExtractPlotNumbers(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, re := range plotPatterns {
		for _, groups := range re.FindAllStringSubmatch(text, -1) {
			n := registry.NormalizeNumber(groups[1])
			if _, dup := seen[n]; n != "" && !dup {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
	}
	return out
}

func (m *Matcher) matchPhone(in Input) []int {
	key := phoneKey(in.Phone)
	if key == "" {
		return nil
	}
	return m.byPhone[key]
}

// phoneKey normalizes a phone to its last ten digits. libphonenumber handles
// the +7/8 national prefix variants; raw digit stripping covers the rest.
func phoneKey(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if num, err := libphonenumber.Parse(raw, "RU"); err == nil && libphonenumber.IsValidNumber(num) {
		return strings.TrimPrefix(libphonenumber.Format(num, libphonenumber.E164), "+7")
	}
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) > 10 {
		d = d[len(d)-10:]
	}
	if len(d) < 10 {
		return ""
	}
	return d
}

// matchOwnerName compares the payer name with registered owners:
// case-insensitive substring containment in either direction, with a fuzzy
// rank pass catching initials and minor misspellings.
func (m *Matcher) matchOwnerName(name string) []int {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	var hits []int
	for i, p := range m.plots {
		owner := strings.ToLower(strings.TrimSpace(p.OwnerFullName))
		if owner == "" {
			continue
		}
		if strings.Contains(owner, name) || strings.Contains(name, owner) {
			hits = append(hits, i)
			continue
		}
		rank := fuzzy.RankMatchNormalizedFold(lastName(name), lastName(owner))
		if rank >= 0 && rank <= 2 {
			hits = append(hits, i)
		}
	}
	return hits
}

// matchPayerOnly is the last resort: the purpose text mentioning the owner's
// surname.
func (m *Matcher) matchPayerOnly(in Input) []int {
	text := strings.ToLower(in.Purpose + " " + in.OwnerName)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var hits []int
	for i, p := range m.plots {
		surname := lastName(strings.ToLower(p.OwnerFullName))
		if len([]rune(surname)) >= 4 && strings.Contains(text, surname) {
			hits = append(hits, i)
		}
	}
	return hits
}

// lastName returns the first word of a "Фамилия Имя Отчество" style name.
func lastName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func uniquePlotIDs(plots []registry.Plot, hits []int) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, i := range hits {
		id := plots[i].ID
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
