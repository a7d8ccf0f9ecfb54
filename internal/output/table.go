// Package output renders appdock's terminal output: the app table, the
// event journal, and the env var listing.
//
// Rendering uses ASCII layout with ANSI colors when stdout is a
// terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/stillwater-systems/appdock/internal/appimage"
	"github.com/stillwater-systems/appdock/internal/envedit"
	"github.com/stillwater-systems/appdock/internal/index"
)

// ANSI color codes for status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderAppTable renders the installed apps with their effective
// status. Trusted apps are marked; untrusted ones show why launching is
// blocked.
func RenderAppTable(apps []*appimage.App) string {
	if len(apps) == 0 {
		return "No apps installed.\n"
	}

	sorted := make([]*appimage.App, len(apps))
	copy(sorted, apps)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].InstalledAt.Before(sorted[j].InstalledAt)
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-12s %-18s %-8s %-13s\n",
		"App", "Version", "Status", "Trust", "Installed"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, app := range sorted {
		status := app.EffectiveStatus()
		version := app.Version
		if version == "" {
			version = "-"
		}

		sb.WriteString(fmt.Sprintf("%-24s %-12s %s %-8s %-13s\n",
			truncate(app.Name, 24),
			truncate(version, 12),
			padColored(statusColor(status), statusLabel(status), 18),
			trustLabel(app),
			formatRelativeTime(app.InstalledAt)))
	}

	return sb.String()
}

// padColored pads label to width before applying color, so ANSI escape
// bytes never break the column alignment.
func padColored(color, label string, width int) string {
	padded := fmt.Sprintf("%-*s", width, label)
	return colorize(color, padded)
}

func statusLabel(status appimage.Status) string {
	switch status {
	case appimage.StatusInstalled:
		return "installed"
	case appimage.StatusUpdateAvailable:
		return "update available"
	case appimage.StatusError:
		return "error"
	default:
		return status.String()
	}
}

func statusColor(status appimage.Status) string {
	switch status {
	case appimage.StatusInstalled:
		return colorGreen
	case appimage.StatusUpdateAvailable:
		return colorYellow
	case appimage.StatusError:
		return colorRed
	default:
		return colorGray
	}
}

func trustLabel(app *appimage.App) string {
	if app.Trusted {
		return "✓"
	}
	return "-"
}

// RenderEventTable renders journal entries newest first.
func RenderEventTable(events []*index.Event) string {
	if len(events) == 0 {
		return "No recorded events.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-16s %-13s %s\n",
		"App", "Action", "When", "Detail"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, event := range events {
		sb.WriteString(fmt.Sprintf("%-24s %-16s %-13s %s\n",
			truncate(event.App, 24),
			event.Action,
			formatRelativeTime(event.Timestamp),
			truncate(event.Detail, 30)))
	}

	return sb.String()
}

// RenderEnvRows renders the env var editor state. Invalid rows are
// flagged so the user sees why a commit would drop them.
func RenderEnvRows(rows []envedit.RowState) string {
	if len(rows) == 0 {
		return "No environment variables set.\n"
	}

	var sb strings.Builder
	for i, row := range rows {
		marker := " "
		if !row.Valid {
			marker = colorize(colorRed, "!")
		}
		sb.WriteString(fmt.Sprintf("%s %2d  %s=%s\n", marker, i, row.Key, row.Value))
	}
	return sb.String()
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	case diff < 365*24*time.Hour:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	default:
		years := int(diff.Hours() / 24 / 365)
		if years == 1 {
			return "1 year ago"
		}
		return fmt.Sprintf("%d years ago", years)
	}
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
