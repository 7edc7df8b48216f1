package voting

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// NeutralConfidence is assumed for votes submitted without a confidence.
const NeutralConfidence = 0.5

// Calculate computes the consensus of a round. The majority value is the
// one with the most votes; ties go to the value submitted first. It
// returns nil when there are no votes.
func Calculate(votes []models.Vote, threshold float64) *models.ConsensusResult {
	if len(votes) == 0 {
		return nil
	}
	if threshold <= 0 || threshold > 100 {
		threshold = models.DefaultConsensusThreshold
	}

	var order []string
	counts := make(map[string]int)
	for _, v := range votes {
		if _, seen := counts[v.Value]; !seen {
			order = append(order, v.Value)
		}
		counts[v.Value]++
	}

	majority := order[0]
	for _, value := range order[1:] {
		if counts[value] > counts[majority] {
			majority = value
		}
	}

	total := len(votes)
	// Both sides are compared at the one decimal the percentage is reported
	// with, so a result reads as achieved exactly when the shown numbers say so.
	percentage := roundTenth(float64(counts[majority]) / float64(total) * 100)

	result := &models.ConsensusResult{
		Achieved:       percentage >= roundTenth(threshold),
		Percentage:     percentage,
		FinalEstimate:  majority,
		Confidence:     meanConfidence(votes),
		AgreeingVoters: []uuid.UUID{},
		OutlierVoters:  []uuid.UUID{},
		VoteCount:      total,
		Distribution:   counts,
		Average:        numericAverage(votes),
	}
	for _, v := range votes {
		if v.Value == majority {
			result.AgreeingVoters = append(result.AgreeingVoters, v.UserID)
		} else {
			result.OutlierVoters = append(result.OutlierVoters, v.UserID)
		}
	}
	return result
}

func meanConfidence(votes []models.Vote) float64 {
	var sum float64
	for _, v := range votes {
		if v.Confidence != nil {
			sum += *v.Confidence
		} else {
			sum += NeutralConfidence
		}
	}
	return math.Round(sum/float64(len(votes))*1000) / 1000
}

// numericAverage averages the votes that parse as numbers; non-numeric
// cards such as "?" are skipped.
func numericAverage(votes []models.Vote) *float64 {
	var sum float64
	n := 0
	for _, v := range votes {
		f, ok := parseCard(v.Value)
		if !ok {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return nil
	}
	avg := math.Round(sum/float64(n)*100) / 100
	return &avg
}

func parseCard(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "½" {
		return 0.5, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// roundTenth keeps one decimal so 2 of 3 votes reads as 66.7.
func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}
