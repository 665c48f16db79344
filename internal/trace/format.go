package trace

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Format represents the output format for trace events.
type Format uint8

const (
	FormatAuto   Format = iota // pick from the output path
	FormatText                 // human-readable text
	FormatNDJSON               // newline-delimited JSON
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
	}
}

// FormatForPath picks NDJSON for .ndjson and .json paths, text otherwise.
func FormatForPath(path string) Format {
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".json") {
		return FormatNDJSON
	}
	return FormatText
}

// FormatEvent formats an event according to the specified format.
func FormatEvent(ev *Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	default:
		return formatText(ev)
	}
}

// formatNDJSON formats an event as newline-delimited JSON.
func formatNDJSON(ev *Event) []byte {
	type jsonEvent struct {
		Ticks    uint64            `json:"ticks"`
		Seq      uint64            `json:"seq"`
		Kind     string            `json:"kind"`
		Category string            `json:"category"`
		Frame    uint64            `json:"frame,omitempty"`
		Depth    int               `json:"depth,omitempty"`
		Name     string            `json:"name"`
		Detail   string            `json:"detail,omitempty"`
		Extra    map[string]string `json:"extra,omitempty"`
	}

	j := jsonEvent{
		Ticks:    ev.Ticks,
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Category: ev.Category.String(),
		Frame:    ev.Frame,
		Depth:    ev.Depth,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	}

	data, _ := json.Marshal(j)
	data = append(data, '\n')
	return data
}

// formatText formats an event as human-readable text.
// Format: [ticks] #frame [indent]→/← name (detail) {k=v}
func formatText(ev *Event) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%14d] ", ev.Ticks)
	if ev.Frame > 0 {
		fmt.Fprintf(&sb, "#%-6d ", ev.Frame)
	} else {
		sb.WriteString("        ")
	}

	for range ev.Depth {
		sb.WriteString("  ")
	}

	switch ev.Kind {
	case KindBegin:
		sb.WriteString("\u2192 ") // →
	case KindEnd:
		sb.WriteString("\u2190 ") // ←
	case KindPoint:
		if ev.Category == CategoryFault {
			sb.WriteString("! ")
		} else {
			sb.WriteString("\u2022 ") // •
		}
	case KindHeartbeat:
		sb.WriteString("\u2661 ") // ♡
	}

	sb.WriteString(ev.Name)

	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}

	if len(ev.Extra) > 0 {
		sb.WriteString(" {")
		for i, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(ev.Extra[k])
		}
		sb.WriteString("}")
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
