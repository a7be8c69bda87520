package timeblock

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Period is the shift letter of the raw schedule notation.
type Period string

const (
	Morning   Period = "M"
	Afternoon Period = "T"
	Night     Period = "N"
)

var periodOrder = map[Period]int{
	Morning:   0,
	Afternoon: 1,
	Night:     2,
}

// slotCodes lists the valid slot digits per period.
var slotCodes = map[Period]string{
	Morning:   "123456",
	Afternoon: "123456",
	Night:     "1234",
}

const (
	MinDay = 2 // Monday
	MaxDay = 7 // Saturday
)

// Block is a single (day, period, slot) cell of the weekly grid.
type Block struct {
	Day    int    `json:"day"`
	Period Period `json:"period"`
	Slot   string `json:"slot"`
}

// String renders the block in raw notation, e.g. "2M1".
func (b Block) String() string {
	return fmt.Sprintf("%d%s%s", b.Day, b.Period, b.Slot)
}

func (b Block) less(other Block) bool {
	if b.Day != other.Day {
		return b.Day < other.Day
	}
	if b.Period != other.Period {
		return periodOrder[b.Period] < periodOrder[other.Period]
	}
	return b.Slot < other.Slot
}

// Set is an ordered, de-duplicated list of blocks.
type Set []Block

// Contains reports whether the block is part of the set.
func (s Set) Contains(block Block) bool {
	for _, b := range s {
		if b == block {
			return true
		}
	}
	return false
}

// Overlaps returns the blocks present in both sets, in s order.
func (s Set) Overlaps(other Set) []Block {
	if len(s) == 0 || len(other) == 0 {
		return nil
	}
	lookup := make(map[Block]struct{}, len(other))
	for _, b := range other {
		lookup[b] = struct{}{}
	}
	var shared []Block
	for _, b := range s {
		if _, ok := lookup[b]; ok {
			shared = append(shared, b)
		}
	}
	return shared
}

// Strings renders every block in raw notation.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for _, b := range s {
		out = append(out, b.String())
	}
	return out
}

// ParseError reports a malformed raw schedule string.
type ParseError struct {
	Input  string
	Group  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("timeblock: cannot parse %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("timeblock: cannot parse %q: group %q: %s", e.Input, e.Group, e.Reason)
}

// Decode expands a raw schedule such as "24M12 6T34" into its blocks.
// A single malformed group fails the whole input.
func Decode(raw string) (Set, error) {
	groups := strings.Fields(raw)
	if len(groups) == 0 {
		return nil, &ParseError{Input: raw, Reason: "empty schedule"}
	}
	seen := make(map[Block]struct{})
	var blocks Set
	for _, group := range groups {
		decoded, reason := decodeGroup(group)
		if reason != "" {
			return nil, &ParseError{Input: raw, Group: group, Reason: reason}
		}
		for _, b := range decoded {
			if _, dup := seen[b]; dup {
				continue
			}
			seen[b] = struct{}{}
			blocks = append(blocks, b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].less(blocks[j]) })
	return blocks, nil
}

func decodeGroup(group string) ([]Block, string) {
	i := 0
	for i < len(group) && isDigit(group[i]) {
		i++
	}
	if i == 0 {
		return nil, "missing day digits"
	}
	days := make([]int, 0, i)
	for _, ch := range group[:i] {
		day := int(ch - '0')
		if day < MinDay || day > MaxDay {
			return nil, fmt.Sprintf("unknown day %q", ch)
		}
		days = append(days, day)
	}
	if i >= len(group) {
		return nil, "missing period letter"
	}
	period := Period(group[i : i+1])
	valid, ok := slotCodes[period]
	if !ok {
		return nil, fmt.Sprintf("unknown period %q", group[i:i+1])
	}
	slots := group[i+1:]
	if slots == "" {
		return nil, "missing slot digits"
	}
	for _, ch := range slots {
		if !strings.ContainsRune(valid, ch) {
			return nil, fmt.Sprintf("slot %q out of range for period %s", ch, period)
		}
	}

	blocks := make([]Block, 0, len(days)*len(slots))
	for _, day := range days {
		for _, ch := range slots {
			blocks = append(blocks, Block{Day: day, Period: period, Slot: string(ch)})
		}
	}
	return blocks, ""
}

// Encode renders blocks back into raw notation. Days sharing the same period and
// slot set are merged into one group, so the output is canonical rather than a
// byte-for-byte copy of whatever was decoded.
func Encode(blocks []Block) string {
	if len(blocks) == 0 {
		return ""
	}
	type dayPeriod struct {
		day    int
		period Period
	}
	slotsByDay := make(map[dayPeriod]map[string]struct{})
	for _, b := range blocks {
		key := dayPeriod{day: b.Day, period: b.Period}
		if slotsByDay[key] == nil {
			slotsByDay[key] = make(map[string]struct{})
		}
		slotsByDay[key][b.Slot] = struct{}{}
	}

	type groupKey struct {
		period Period
		slots  string
	}
	daysByGroup := make(map[groupKey][]int)
	for key, slotSet := range slotsByDay {
		slots := make([]string, 0, len(slotSet))
		for slot := range slotSet {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		gk := groupKey{period: key.period, slots: strings.Join(slots, "")}
		daysByGroup[gk] = append(daysByGroup[gk], key.day)
	}

	type group struct {
		key  groupKey
		days []int
	}
	groups := make([]group, 0, len(daysByGroup))
	for key, days := range daysByGroup {
		sort.Ints(days)
		groups = append(groups, group{key: key, days: days})
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.days[0] != b.days[0] {
			return a.days[0] < b.days[0]
		}
		if a.key.period != b.key.period {
			return periodOrder[a.key.period] < periodOrder[b.key.period]
		}
		return a.key.slots < b.key.slots
	})

	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		var sb strings.Builder
		for _, day := range g.days {
			sb.WriteString(strconv.Itoa(day))
		}
		sb.WriteString(string(g.key.period))
		sb.WriteString(g.key.slots)
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, " ")
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
