package reporting

import (
	"autoblock/waf"
	"sort"
	"strings"
)

const summaryTitle = "Log Event Handler - Rate Limiting Processor run summary"

// Summary renders what a sync changed. details, keyed by IP, is appended in parentheses to added IPs.
func Summary(environment string, result waf.SyncResult, details map[string]string) string {
	var sb strings.Builder
	sb.WriteString(summaryTitle)
	sb.WriteString("\nRunning Environment: ")
	sb.WriteString(environment)

	sb.WriteString("\nIP addresses removed from auto block list: ")
	sb.WriteString(strings.Join(sorted(result.Removed), ", "))

	added := sorted(result.Added)
	for i, ip := range added {
		if d := details[ip]; d != "" {
			added[i] = ip + " (" + d + ")"
		}
	}
	sb.WriteString("\nIP addresses added to auto block list: ")
	sb.WriteString(strings.Join(added, ", "))

	sb.WriteString("\nIP addresses already on auto block list: ")
	sb.WriteString(strings.Join(sorted(result.Unchanged), ", "))
	sb.WriteString("\n")

	return sb.String()
}

func sorted(ips []string) []string {
	out := append([]string(nil), ips...)
	sort.Strings(out)
	return out
}
