package filter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/applylens/inbox-policy/internal/core"
)

// reportHeaders renders the annotation headers for a report
func reportHeaders(prefix string, report *core.Report, analysisErr error) []string {
	if analysisErr != nil {
		return []string{fmt.Sprintf("%s-Error: %s", prefix, oneLine(analysisErr.Error()))}
	}

	headers := []string{
		fmt.Sprintf("%s-Category: %s", prefix, report.Result.Category),
		fmt.Sprintf("%s-Risk-Score: %.0f", prefix, report.Result.RiskScore),
		fmt.Sprintf("%s-Confidence: %.2f", prefix, report.Result.Confidence),
	}
	if len(report.Result.Tags) > 0 {
		headers = append(headers, fmt.Sprintf("%s-Tags: %s", prefix, strings.Join(report.Result.Tags, ", ")))
	}
	if report.Result.ExpiresAt != nil {
		headers = append(headers, fmt.Sprintf("%s-Expires-At: %s", prefix, report.Result.ExpiresAt.Format("2006-01-02T15:04:05Z07:00")))
	}

	var actions []string
	for _, a := range report.AllowedActions() {
		actions = append(actions, fmt.Sprintf("%s (%s)", a.ActionType, a.PolicyID))
	}
	if len(actions) > 0 {
		headers = append(headers, fmt.Sprintf("%s-Actions: %s", prefix, strings.Join(actions, ", ")))
	}
	if report.Advice != nil {
		headers = append(headers, fmt.Sprintf("%s-Advisor: %s (%.2f, %s)",
			prefix, report.Advice.Category, report.Advice.Confidence, report.Advice.ModelUsed))
	}
	return headers
}

// annotate prepends headers to the raw message and optionally replaces the
// Subject. Original header order and the body are preserved byte for byte.
func annotate(raw []byte, headers []string, subject string) []byte {
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(raw, sep)
	if idx == -1 {
		sep = []byte("\n\n")
		idx = bytes.Index(raw, sep)
	}

	var head, body []byte
	if idx == -1 {
		head = raw
	} else {
		head = raw[:idx]
		body = raw[idx+len(sep):]
	}

	var out bytes.Buffer
	for _, h := range headers {
		out.WriteString(h)
		out.WriteString("\r\n")
	}
	if subject != "" {
		fmt.Fprintf(&out, "Subject: %s\r\n", subject)
	}

	skipping := false
	for _, line := range strings.Split(strings.ReplaceAll(string(head), "\r\n", "\n"), "\n") {
		if line == "" {
			continue
		}
		continuation := line[0] == ' ' || line[0] == '\t'
		if !continuation {
			skipping = subject != "" && strings.HasPrefix(strings.ToLower(line), "subject:")
		}
		if skipping {
			continue
		}
		out.WriteString(line)
		out.WriteString("\r\n")
	}

	out.WriteString("\r\n")
	out.Write(body)
	return out.Bytes()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
