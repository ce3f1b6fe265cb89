// ABOUTME: Splits generated text into dashboard and channel reports
// ABOUTME: Tag tokenizer with an explicit fallback ladder for malformed model output
package brief

import (
	"regexp"
	"strings"
)

// Stage is the state a report has reached on its way to delivery.
type Stage string

const (
	StageRaw        Stage = "raw"
	StageSanitized  Stage = "sanitized"
	StageBudgetOK   Stage = "budget_ok"
	StageTruncated  Stage = "truncated"
	StageDispatched Stage = "dispatched"
	StageNoReport   Stage = "no_report"
)

// Tier records which rung of the fallback ladder produced a section.
type Tier string

const (
	// TierExactPair: open tag through its matching close tag.
	TierExactPair Tier = "exact_pair"
	// TierNextTag: open tag up to the next known tag of any kind.
	TierNextTag Tier = "next_tag"
	// TierToEnd: open tag to the end of the text.
	TierToEnd Tier = "to_end"
	// TierWholeText: no dashboard tag, so the whole text is used.
	TierWholeText Tier = "whole_text"
	// TierDashboard: no channel tag, so the dashboard text is reused.
	TierDashboard Tier = "dashboard"
)

type Report struct {
	Dashboard     string `json:"dashboard"`
	Channel       string `json:"channel"`
	DashboardTier Tier   `json:"dashboard_tier"`
	ChannelTier   Tier   `json:"channel_tier"`
	Stage         Stage  `json:"stage"`
}

var tagPattern = regexp.MustCompile(`(?i)<\s*(/?)\s*(DASHBOARD|WHATSAPP)_REPORT\s*>`)

type tag struct {
	section string
	closing bool
	start   int
	end     int
}

func tokenize(raw string) []tag {
	matches := tagPattern.FindAllStringSubmatchIndex(raw, -1)
	tags := make([]tag, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, tag{
			section: strings.ToUpper(raw[m[4]:m[5]]) + "_REPORT",
			closing: m[3] > m[2],
			start:   m[0],
			end:     m[1],
		})
	}
	return tags
}

// extract returns the body of section and the tier that found it. ok is
// false when the section has no opening tag.
func extract(raw string, tags []tag, section string) (body string, tier Tier, ok bool) {
	open := -1
	for i, t := range tags {
		if t.section == section && !t.closing {
			open = i
			break
		}
	}
	if open < 0 {
		return "", "", false
	}

	from := tags[open].end
	for _, t := range tags[open+1:] {
		if t.section == section && t.closing {
			return raw[from:t.start], TierExactPair, true
		}
	}
	if open+1 < len(tags) {
		return raw[from:tags[open+1].start], TierNextTag, true
	}
	return raw[from:], TierToEnd, true
}

// Sanitize removes stray section tags and surrounding whitespace.
func Sanitize(text string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
}

// Split derives the dashboard and channel reports from raw generated text.
// The result is sanitized but not yet held to the channel budget.
func Split(raw string) Report {
	tags := tokenize(raw)

	var r Report
	dashboard, tier, ok := extract(raw, tags, DashboardTag)
	if !ok {
		dashboard, tier = raw, TierWholeText
	}
	r.Dashboard = Sanitize(dashboard)
	r.DashboardTier = tier

	channel, tier, ok := extract(raw, tags, ChannelTag)
	if ok {
		r.Channel = Sanitize(channel)
		r.ChannelTier = tier
	} else {
		r.Channel = r.Dashboard
		r.ChannelTier = TierDashboard
	}

	r.Stage = StageSanitized
	return r
}

// ApplyBudget holds the channel text to budget runes and records the stage.
func (r *Report) ApplyBudget(budget int) {
	text, truncated := Truncate(r.Channel, budget)
	r.Channel = text
	if truncated {
		r.Stage = StageTruncated
	} else {
		r.Stage = StageBudgetOK
	}
}
