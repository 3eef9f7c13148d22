// internal/domain/sentiment/model.go

package sentiment

import (
	"sort"
	"time"
)

// Choice is one entry of the fixed reaction vocabulary
type Choice string

const (
	Heart    Choice = "heart"
	Like     Choice = "like"
	Check    Choice = "check"
	Question Choice = "question"
	Sad      Choice = "sad"
	Angry    Choice = "angry"
)

// Symmetric around zero and monotonic in intensity
var choiceToSentiment = map[Choice]int{
	Heart:    3,
	Like:     2,
	Check:    1,
	Question: -1,
	Sad:      -2,
	Angry:    -3,
}

// Sentiment returns the signed score for the choice
func (c Choice) Sentiment() (int, bool) {
	s, ok := choiceToSentiment[c]
	return s, ok
}

// Valid reports whether c is part of the vocabulary
func (c Choice) Valid() bool {
	_, ok := choiceToSentiment[c]
	return ok
}

// Choices lists the vocabulary from most positive to most negative
func Choices() []Choice {
	choices := make([]Choice, 0, len(choiceToSentiment))
	for c := range choiceToSentiment {
		choices = append(choices, c)
	}
	sort.Slice(choices, func(i, j int) bool {
		return choiceToSentiment[choices[i]] > choiceToSentiment[choices[j]]
	})
	return choices
}

// Reaction is the single live reaction of By to target To
type Reaction struct {
	By        string    `json:"by"`
	To        string    `json:"to"`
	Choice    Choice    `json:"choice"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Average returns the mean sentiment of reactions, false when there are none
func Average(reactions []Reaction) (float64, bool) {
	if len(reactions) == 0 {
		return 0, false
	}
	total := 0
	for _, r := range reactions {
		s, _ := r.Choice.Sentiment()
		total += s
	}
	return float64(total) / float64(len(reactions)), true
}
