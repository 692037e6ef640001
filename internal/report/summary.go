package report

import (
	"fmt"
	"strings"

	"github.com/san-kum/trajstitch/internal/pipeline"
)

// maxListed caps the failures printed in a summary.
const maxListed = 10

// Summary renders the outcome of a run as a bordered panel.
func Summary(s *pipeline.Summary) string {
	var b strings.Builder

	status := StatusOK.Render("ok")
	switch {
	case s.Joined == 0:
		status = StatusFail.Render("failed")
	case !s.OK():
		status = StatusWarn.Render("partial")
	}
	fmt.Fprintf(&b, "%s %s\n", Title.Render(s.Run), status)

	frac := 0.0
	if s.Tracers > 0 {
		frac = float64(s.Joined) / float64(s.Tracers)
	}
	fmt.Fprintf(&b, "%s %d/%d\n", ProgressBar(frac, 30), s.Joined, s.Tracers)
	fmt.Fprintf(&b, "%s %s\n", Label.Render("elapsed:"), Value.Render(s.Elapsed.Round(1e6).String()))

	if !s.OK() {
		fmt.Fprintf(&b, "%s %s\n", Label.Render("failed:"), StatusFail.Render(fmt.Sprint(len(s.Failures))))
		for i, f := range s.Failures {
			if i == maxListed {
				b.WriteString(Subtle.Render(fmt.Sprintf("  ... %d more", len(s.Failures)-maxListed)) + "\n")
				break
			}
			fmt.Fprintf(&b, "  %s\n", Subtle.Render(f.Err.Error()))
		}
	}

	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}
