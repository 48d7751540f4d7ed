package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/tasktree/internal/model"
)

const dateLayout = "2006-01-02"

// Parse refines base with key:value terms such as
//
//	status:completed priority:high tag:ops,release due:2026-03-01..2026-03-31
//
// Words without a key are joined into the search term.
func Parse(terms []string, base Criteria, loc *time.Location) (Criteria, error) {
	if loc == nil {
		loc = time.Local
	}
	out := base
	out.Tags = append([]string(nil), base.Tags...)
	var words []string
	for _, term := range terms {
		key, value, ok := strings.Cut(term, ":")
		if !ok {
			words = append(words, term)
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(key) {
		case "status":
			out.Status = Status(strings.ToLower(value))
			if value == "all" || value == "any" {
				out.Status = StatusAny
			}
		case "priority":
			out.Priority = model.Priority(strings.ToLower(value))
		case "tag", "tags":
			for _, tag := range strings.Split(value, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					out.Tags = append(out.Tags, tag)
				}
			}
		case "due":
			r, err := parseRange(value, loc)
			if err != nil {
				return base, err
			}
			out.DueRange = r
		case "section":
			out.SectionID = value
		case "q", "search":
			words = append(words, value)
		default:
			return base, fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
	}
	if len(words) > 0 {
		out.Search = strings.Join(words, " ")
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

func parseRange(value string, loc *time.Location) (*DateRange, error) {
	startRaw, endRaw, isRange := strings.Cut(value, "..")
	if !isRange {
		endRaw = startRaw
	}
	start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(startRaw), loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, value)
	}
	end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(endRaw), loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, value)
	}
	return &DateRange{Start: start, End: end}, nil
}

// Describe renders c back into the term syntax accepted by Parse.
func Describe(c Criteria) string {
	var parts []string
	if c.SectionID != "" {
		parts = append(parts, "section:"+c.SectionID)
	}
	if c.Status != StatusAny {
		parts = append(parts, "status:"+string(c.Status))
	}
	if c.Priority != "" {
		parts = append(parts, "priority:"+string(c.Priority))
	}
	if c.DueRange != nil {
		parts = append(parts, "due:"+c.DueRange.Start.Format(dateLayout)+".."+c.DueRange.End.Format(dateLayout))
	}
	if len(c.Tags) > 0 {
		parts = append(parts, "tag:"+strings.Join(c.Tags, ","))
	}
	if s := strings.TrimSpace(c.Search); s != "" {
		parts = append(parts, "q:"+s)
	}
	return strings.Join(parts, " ")
}
