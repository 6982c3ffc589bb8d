// Package briefing composes bounded natural-language prompts from a station's
// reconciled accessibility state and turns them into rider-facing reports.
package briefing

import (
	"fmt"
	"strings"
	"time"

	"github.com/stepfree/stepfree/internal/accessibility"
)

const (
	// maxIndividualOperational caps how many operational facilities are
	// listed line-by-line before collapsing to per-type counts. Keeps the
	// prompt bounded at large stations.
	maxIndividualOperational = 6

	// maxServiceAlertDetail truncates service-alert descriptions to bound
	// prompt length.
	maxServiceAlertDetail = 300
)

// typeLabels maps facility types to their plural display labels, in summary
// rendering order.
var typeLabels = map[accessibility.FacilityType]string{
	accessibility.FacilityElevator:     "Elevators",
	accessibility.FacilityEscalator:    "Escalators",
	accessibility.FacilityRamp:         "Ramps",
	accessibility.FacilityPortableLift: "Portable lifts",
}

// Composer builds generation prompts from station accessibility data. It is
// pure apart from the clock, which is injectable for tests.
type Composer struct {
	now func() time.Time
}

// NewComposer creates a composer using the wall clock.
func NewComposer() *Composer {
	return &Composer{now: time.Now}
}

// NewComposerAt creates a composer with a fixed clock.
func NewComposerAt(now func() time.Time) *Composer {
	return &Composer{now: now}
}

// BuildPrompt assembles the generation prompt for one station: a per-type
// count summary, an accessibility notice for stations classified as
// permanently inaccessible, facility detail lines with outage durations and
// agency instructions, cross-outage contradiction warnings, and the filtered
// service alerts, followed by a fixed instruction template.
func (c *Composer) BuildPrompt(stationName string, facilities []*accessibility.Facility, serviceAlerts []accessibility.ServiceAlert, wheelchairBoarding accessibility.WheelchairBoarding) string {
	var b strings.Builder

	fmt.Fprintf(&b, "I rely on escalators and elevators and I'm about to travel through %s station. Give me a quick travel briefing based on this data.\n\n", stationName)

	b.WriteString(summaryLine(facilities))
	b.WriteString("\n\n")

	if wheelchairBoarding == accessibility.WheelchairInaccessible {
		b.WriteString("NOTE: this station is classified as NOT ACCESSIBLE for wheelchair users, regardless of individual facility status below.\n\n")
	}

	b.WriteString("Facilities:\n")
	b.WriteString(facilitiesBlock(facilities, c.now()))
	b.WriteString("\n\n")

	b.WriteString("Service alerts:\n")
	b.WriteString(serviceAlertsBlock(serviceAlerts))
	b.WriteString("\n\n")

	b.WriteString("In one short paragraph (3-5 sentences), tell me:\n")
	b.WriteString("1. Whether I can get from street to platform by elevator right now.\n")
	b.WriteString("2. If not, what exactly I should do instead - use specific stop names, bus routes, and distances from the MBTA instructions above. If any instructions have a WARNING, skip them and use a working alternative.\n")
	b.WriteString("3. Any service disruptions (shuttles, closures) that affect my trip.\n\n")
	b.WriteString("Only use the data above. Write as if talking directly to me. Start with the key information immediately - no greeting or preamble.")

	return b.String()
}

// summaryLine renders per-type totals and outage counts, omitting facility
// types the station does not have.
func summaryLine(facilities []*accessibility.Facility) string {
	totals := make(map[accessibility.FacilityType]int)
	out := make(map[accessibility.FacilityType]int)
	for _, f := range facilities {
		totals[f.Type]++
		if f.Status == accessibility.StatusOutOfService {
			out[f.Type]++
		}
	}

	var parts []string
	for _, t := range accessibility.FacilityTypes() {
		if totals[t] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d (%d out)", typeLabels[t], totals[t], out[t]))
	}
	if len(parts) == 0 {
		return "No tracked accessibility facilities at this station."
	}
	return strings.Join(parts, " | ")
}

// facilitiesBlock renders the facility detail lines. Out-of-service
// facilities always appear individually with outage duration, cause, alert
// header, agency instructions, and contradiction warnings. Operational
// facilities appear individually only while few enough to keep the prompt
// bounded, otherwise as per-type counts.
func facilitiesBlock(facilities []*accessibility.Facility, now time.Time) string {
	outRefs := outOfServiceRefs(facilities)

	var operational, outOfService []*accessibility.Facility
	for _, f := range facilities {
		if f.Status == accessibility.StatusOutOfService {
			outOfService = append(outOfService, f)
		} else {
			operational = append(operational, f)
		}
	}

	var lines []string
	for _, f := range outOfService {
		lines = append(lines, outOfServiceLine(f, outRefs, now))
	}

	if len(operational) <= maxIndividualOperational {
		for _, f := range operational {
			lines = append(lines, fmt.Sprintf("- %s %q: OPERATIONAL", f.Type, displayName(f)))
		}
	} else {
		counts := make(map[accessibility.FacilityType]int)
		for _, f := range operational {
			counts[f.Type]++
		}
		for _, t := range accessibility.FacilityTypes() {
			if counts[t] == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("- %d %s: OPERATIONAL", counts[t], strings.ToLower(typeLabels[t])))
		}
	}

	if len(lines) == 0 {
		return "(none)"
	}
	return strings.Join(lines, "\n")
}

// outOfServiceLine renders one out-of-service facility with its alert
// context. When the agency's instructions mention another facility that is
// also down, an explicit warning follows so the model does not relay a
// broken alternative.
func outOfServiceLine(f *accessibility.Facility, outRefs map[string]struct{}, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- %s %q: OUT OF SERVICE", f.Type, displayName(f))

	if f.Alert == nil {
		return b.String()
	}

	if duration := FormatDuration(f.Alert.OutageStart, now); duration != "" {
		fmt.Fprintf(&b, " (down %s)", duration)
	}
	if f.Alert.Cause != "" {
		fmt.Fprintf(&b, "\n  Cause: %s", f.Alert.Cause)
	}
	if f.Alert.Header != "" {
		fmt.Fprintf(&b, "\n  Alert: %s", f.Alert.Header)
	}

	instructions := strings.TrimSpace(f.Alert.Description)
	if instructions == "" {
		return b.String()
	}
	fmt.Fprintf(&b, "\n  MBTA instructions: %s", instructions)

	instructionsLower := strings.ToLower(instructions)
	selfRef := shortRef(f)
	for ref := range outRefs {
		if ref == selfRef {
			continue
		}
		if strings.Contains(instructionsLower, ref) {
			fmt.Fprintf(&b, "\n  WARNING: These instructions reference %s which is ALSO out of service.", ref)
			break
		}
	}

	return b.String()
}

// outOfServiceRefs collects the short searchable identifiers ("elevator 876")
// of every out-of-service facility, for matching against agency instruction
// text.
func outOfServiceRefs(facilities []*accessibility.Facility) map[string]struct{} {
	refs := make(map[string]struct{})
	for _, f := range facilities {
		if f.Status != accessibility.StatusOutOfService {
			continue
		}
		if ref := shortRef(f); ref != "" {
			refs[ref] = struct{}{}
		}
	}
	return refs
}

func shortRef(f *accessibility.Facility) string {
	if f.Type == "" || f.ID == "" {
		return ""
	}
	return strings.ToLower(string(f.Type)) + " " + f.ID
}

func displayName(f *accessibility.Facility) string {
	if f.Name != "" {
		return f.Name
	}
	return f.ShortName
}

// serviceAlertsBlock renders the filtered route-level disruptions, one line
// per alert with the description truncated to bound prompt length.
func serviceAlertsBlock(alerts []accessibility.ServiceAlert) string {
	if len(alerts) == 0 {
		return "(none)"
	}

	var lines []string
	for _, sa := range alerts {
		line := fmt.Sprintf("- [%s] %s", sa.Effect, sa.Header)
		if sa.Description != "" {
			line += "\n  Details: " + truncate(sa.Description, maxServiceAlertDetail)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
