// Package cue labels a tutor reply with one emotion and one gesture using
// keyword rules. It only classifies text it is handed.
package cue

import (
	"strings"

	"github.com/normanking/tutoravatar/internal/expression"
	"github.com/normanking/tutoravatar/internal/gesture"
)

// Performance is the student's overall standing as reported by the host.
type Performance string

const (
	PerformanceExcellent  Performance = "excellent"
	PerformanceStruggling Performance = "struggling"
)

type rule[T any] struct {
	label    T
	keywords []string
}

// Rules are checked in order; the first match wins.
var emotionRules = []rule[expression.Emotion]{
	{expression.Excited, []string{"congratulations", "amazing", "perfect score", "outstanding", "incredible"}},
	{expression.Happy, []string{"great job", "well done", "keep it up", "fantastic", "excellent work", "nice work"}},
	{expression.Confused, []string{"not sure", "unclear", "hard to say", "depends on", "it varies"}},
	{expression.Encouraging, []string{"improve", "weak", "low score", "revise", "practice more", "don't worry"}},
	{expression.Serious, []string{"important", "critical", "must", "carefully", "pay attention"}},
}

var gestureRules = []rule[gesture.Name]{
	{gesture.Celebrate, []string{"congratulations", "achieved", "completed", "milestone", "perfect"}},
	{gesture.Wave, []string{"hello", "welcome", "hi there", "good morning", "good evening", "greetings"}},
	{gesture.Think, []string{"let me think", "consider", "interesting", "analyzing", "looking at your"}},
	{gesture.Point, []string{"focus on", "start with", "i recommend", "you should try", "take a look"}},
	{gesture.Shrug, []string{"depends", "either way", "up to you", "hard to say", "not sure"}},
	{gesture.Nod, []string{"exactly", "right", "correct", "yes", "agree", "good question"}},
	{gesture.Talk, []string{"explain", "means", "concept", "understand", "how", "let me"}},
}

func match[T any](text string, rules []rule[T]) (T, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.label, true
			}
		}
	}
	var zero T
	return zero, false
}

// Detect picks an emotion and a gesture for text. Performance sets the
// baseline emotion; a keyword match overrides it. Matching is a plain
// case-insensitive substring test.
func Detect(text string, performance Performance) (expression.Emotion, gesture.Name) {
	lower := strings.ToLower(text)

	emotion := expression.Neutral
	switch Performance(strings.ToLower(string(performance))) {
	case PerformanceExcellent:
		emotion = expression.Happy
	case PerformanceStruggling:
		emotion = expression.Encouraging
	}
	if e, ok := match(lower, emotionRules); ok {
		emotion = e
	}

	g, ok := match(lower, gestureRules)
	if !ok {
		g = gesture.Idle
	}
	return emotion, g
}
