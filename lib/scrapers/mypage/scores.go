package mypage

import (
	"fmt"
	"io"
	"mypage-client/lib/htmlutil"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SubjectScore is the progress of a single report of a subject.
type SubjectScore struct {
	Subject string
	// Limit is the due date as the portal writes it, ex. "4/15".
	Limit      string
	Percentage int
	// Score is not always a number, ex. "未受験".
	Score string
}

// DecodeScores decodes the score list page using the default markers.
func DecodeScores(r io.Reader) ([]SubjectScore, error) {
	return DecodeScoresWith(r, DefaultScoreMarkers())
}

// DecodeScoresWith decodes the score list page.
//
// The page is a table with one row group per subject and one column per
// report, but the only reliable way to read it is through four flat lists
// pulled out by class, which are then lined back up by position.
func DecodeScoresWith(r io.Reader, m ScoreMarkers) ([]SubjectScore, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse score page: %w", ErrParse, err)
	}

	subjects := htmlutil.TrimmedTexts(doc.Find(m.Subject))
	reportCount := doc.Find(m.ReportHeader).Length()
	limitDates := htmlutil.TrimmedTexts(doc.Find(m.LimitDate))
	progress := htmlutil.TrimmedTexts(doc.Find(m.Progress))

	return decodeLists(subjects, reportCount, limitDates, progress)
}

// splitProgress undoes the interleaving of the progress cells. Each subject
// emits a block of reportCount percentages followed by a block of
// reportCount scores.
func splitProgress(progress []string, reportCount int) (percentages, scores []string) {
	for chunk := 0; chunk*reportCount < len(progress); chunk++ {
		start := chunk * reportCount
		end := min(start+reportCount, len(progress))
		if chunk%2 == 0 {
			percentages = append(percentages, progress[start:end]...)
		} else {
			scores = append(scores, progress[start:end]...)
		}
	}
	return percentages, scores
}

// parsePercentage accepts anything strconv.Atoi does once the trailing % is
// gone, so signed and out of range values like "-3%" or "150%" pass through
// unchanged.
func parsePercentage(text string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), "%"))
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: percentage '%s' is not a number", ErrParse, text)
	}
	return value, nil
}

func decodeLists(subjects []string, reportCount int, limitDates, progress []string) ([]SubjectScore, error) {
	result := []SubjectScore{}
	if reportCount == 0 {
		return result, nil
	}

	percentages, scores := splitProgress(progress, reportCount)
	if len(percentages) != len(limitDates) || len(scores) != len(limitDates) {
		return nil, fmt.Errorf(
			"%w: %d limit dates, %d percentages and %d scores do not line up",
			ErrParse, len(limitDates), len(percentages), len(scores),
		)
	}

	subjectIdx := -1
	for pos, limit := range limitDates {
		if pos%reportCount == 0 {
			subjectIdx++
		}
		// unused report slot
		if limit == "-" {
			continue
		}
		if subjectIdx >= len(subjects) {
			return nil, fmt.Errorf(
				"%w: report %d belongs to subject %d but only %d subjects were found",
				ErrParse, pos, subjectIdx, len(subjects),
			)
		}

		percentage, err := parsePercentage(percentages[pos])
		if err != nil {
			return nil, err
		}
		result = append(result, SubjectScore{
			Subject:    subjects[subjectIdx],
			Limit:      limit,
			Percentage: percentage,
			Score:      scores[pos],
		})
	}

	return result, nil
}
