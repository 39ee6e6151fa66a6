package session

import (
	"math"

	"github.com/classpoll/backend/internal/models"
)

// Aggregate computes the vote tally for a poll from its ledger. It is a
// pure function: callable at any time, including after closure against
// the frozen ledger. Percentages are rounded to the nearest integer and
// defined as zero when there are no responses.
func Aggregate(poll *models.Poll, ledger *Ledger) models.PollResult {
	total := ledger.Size()
	counts := ledger.Counts(len(poll.Options))

	perOption := make([]models.OptionResult, len(poll.Options))
	for i, option := range poll.Options {
		percentage := 0
		if total > 0 {
			percentage = int(math.Round(float64(counts[i]) / float64(total) * 100))
		}
		perOption[i] = models.OptionResult{
			Option:     option,
			Count:      counts[i],
			Percentage: percentage,
			IsCorrect:  poll.IsCorrect(i),
		}
	}

	return models.PollResult{
		Poll:           poll,
		PerOption:      perOption,
		TotalResponses: total,
	}
}
