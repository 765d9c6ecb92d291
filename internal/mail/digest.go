package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/tazhibayda/dailyjobs/internal/queue"
)

var digestHTML = template.Must(template.New("digest").Parse(`<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif;">
<h1>New job openings for you</h1>
<table style="border-collapse: collapse; width: 100%;">
<tr><th align="left">Title</th><th align="left">Location</th><th align="left">Job Link</th></tr>
{{- range .}}
<tr><td colspan="3" style="background: #F5F5F5; font-weight: 600; padding: 16px;">{{.Company}}</td></tr>
{{- range .Jobs}}
<tr>
<td style="padding: 16px;">{{.Title}}</td>
<td style="padding: 16px;">{{.Location}}</td>
<td style="padding: 16px;"><a href="{{.URL}}" style="background: #43b548; color: white; padding: 10px 20px; border-radius: 6px; text-decoration: none;">Apply Now</a></td>
</tr>
{{- end}}
{{- end}}
</table>
</body>
</html>
`))

type companyJobs struct {
	Company string
	Jobs    []queue.DigestJob
}

// groupByCompany orders companies by name and keeps the event's job order within each.
func groupByCompany(jobs []queue.DigestJob) []companyJobs {
	idx := map[string]int{}
	var out []companyJobs
	for _, j := range jobs {
		i, ok := idx[j.Company]
		if !ok {
			i = len(out)
			idx[j.Company] = i
			out = append(out, companyJobs{Company: j.Company})
		}
		out[i].Jobs = append(out[i].Jobs, j)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Company < out[b].Company })
	return out
}

// DigestMail renders the daily digest. A digest without jobs still goes out.
func DigestMail(ev queue.DigestReady) (Message, error) {
	if len(ev.Jobs) == 0 {
		return Message{
			To:      ev.Email,
			Subject: "Jobs Update - No New Positions",
			Body:    "No new positions matched your preferences since the last digest.\n\nKeep checking back for new opportunities!\n",
		}, nil
	}

	groups := groupByCompany(ev.Jobs)
	var text strings.Builder
	text.WriteString("New job positions found:\n\n")
	for _, g := range groups {
		for _, j := range g.Jobs {
			fmt.Fprintf(&text, "Company: %s\nPosition: %s\nLocation: %s\nApply: %s\n%s\n\n",
				j.Company, j.Title, j.Location, j.URL, strings.Repeat("-", 50))
		}
	}
	var html bytes.Buffer
	if err := digestHTML.Execute(&html, groups); err != nil {
		return Message{}, fmt.Errorf("render digest: %w", err)
	}
	return Message{
		To:      ev.Email,
		Subject: fmt.Sprintf("New Job Openings Found (%d positions)", len(ev.Jobs)),
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}
