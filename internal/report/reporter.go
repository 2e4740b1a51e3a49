package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yucheng-lin/twscan/internal/contracts"
	"github.com/yucheng-lin/twscan/internal/screen"
	"github.com/yucheng-lin/twscan/pkg/config"
	"github.com/yucheng-lin/twscan/pkg/logger"
)

// Reporter renders accepted picks into bounded text pages, grouped by
// market segment
type Reporter struct {
	cfg    config.ReportConfig
	logger *logger.Logger
}

// NewReporter creates a new reporter
func NewReporter(cfg config.ReportConfig, log *logger.Logger) *Reporter {
	return &Reporter{
		cfg:    cfg,
		logger: log.WithField("module", "report"),
	}
}

// Render produces the ordered page sequence for one cycle.
// Picks are ranked by change percent descending, volume breaking ties;
// ranking never depends on fetch completion order because the whole batch
// is sorted here.
func (r *Reporter) Render(picks []contracts.Pick, profileName string, profile screen.Profile, now time.Time) *contracts.Report {
	sorted := make([]contracts.Pick, len(picks))
	copy(sorted, picks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ChangePercent != sorted[j].ChangePercent {
			return sorted[i].ChangePercent > sorted[j].ChangePercent
		}
		return sorted[i].Volume > sorted[j].Volume
	})

	date := now.Format("2006-01-02")

	if len(sorted) == 0 {
		return &contracts.Report{
			Pages:       []string{r.noMatchPage(date, profile)},
			GeneratedAt: now,
			Profile:     profileName,
		}
	}

	var pages []string
	for _, segment := range contracts.SegmentOrder {
		group := filterSegment(sorted, segment)
		if len(group) == 0 {
			continue
		}
		header := fmt.Sprintf("【%s %s 起漲清單（共 %d 檔）】", date, segment.Label(), len(group))
		pages = append(pages, r.paginate(header, group)...)
	}

	r.logger.WithFields(map[string]interface{}{
		"picks": len(sorted),
		"pages": len(pages),
	}).Debug("Rendered report")

	return &contracts.Report{
		Pages:       pages,
		GeneratedAt: now,
		Profile:     profileName,
		PickCount:   len(sorted),
	}
}

// filterSegment keeps one segment's picks in rank order
func filterSegment(picks []contracts.Pick, segment contracts.Segment) []contracts.Pick {
	var out []contracts.Pick
	for _, p := range picks {
		if p.Instrument.Segment == segment {
			out = append(out, p)
		}
	}
	return out
}

// paginate splits one group into pages. A new page starts when appending
// the next row would exceed either bound; every page repeats the group
// header.
func (r *Reporter) paginate(header string, group []contracts.Pick) []string {
	var pages []string
	var b strings.Builder
	lines := 0

	flush := func() {
		if lines > 0 {
			pages = append(pages, b.String())
		}
		b.Reset()
		lines = 0
	}

	open := func() {
		b.WriteString(header)
		lines = 1
	}

	for rank, pick := range group {
		row := formatRow(rank+1, pick)

		if lines == 0 {
			open()
		}

		nextLines := lines + 1
		nextChars := utf8.RuneCountInString(b.String()) + 1 + utf8.RuneCountInString(row)
		if nextLines > r.cfg.MaxLines || nextChars > r.cfg.MaxChars {
			flush()
			open()
		}

		b.WriteString("\n")
		b.WriteString(row)
		lines++
	}
	flush()

	return pages
}

// formatRow renders one pick: rank, code, change percent, grouped volume
func formatRow(rank int, p contracts.Pick) string {
	return fmt.Sprintf("%d. %s %+.2f%% %s", rank, p.Instrument.Code, p.ChangePercent, groupThousands(p.Volume))
}

// noMatchPage states the active thresholds so an empty scan is never a
// silently empty report
func (r *Reporter) noMatchPage(date string, profile screen.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "【%s 起漲清單】\n", date)
	b.WriteString("尚無符合條件的個股（或資料未更新）\n")
	fmt.Fprintf(&b, "門檻：漲幅 ≥ %.2f%%、成交量 ≥ %s", profile.MinChangePercent, groupThousands(profile.MinVolume))
	return b.String()
}

// groupThousands formats an integer with comma grouping
func groupThousands(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
