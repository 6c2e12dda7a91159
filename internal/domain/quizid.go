package domain

import "time"

// QuizID derives the daily quiz identifier from the given instant: the UTC
// calendar date as a YYYYMMDD integer. All of one day's questions, answers,
// and the reward share this id.
func QuizID(now time.Time) int {
	d := now.UTC()
	return d.Year()*10000 + int(d.Month())*100 + d.Day()
}

// PrevQuizID derives the identifier of the previous day's quiz.
func PrevQuizID(now time.Time) int {
	return QuizID(now.UTC().AddDate(0, 0, -1))
}
