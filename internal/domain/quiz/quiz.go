// Package quiz defines questions, the quiz catalog and grading.
//
// Answers are 0-based option indices. Skipped (-1) marks a question the user
// did not answer; any other index outside the option range is an answer that
// is simply wrong. Grading never fails.
package quiz

import (
	"fmt"
	"strings"

	"github.com/codevia/codevia/internal/domain/shared"
)

const (
	// Skipped marks an unanswered question.
	Skipped = -1

	// DefaultXPPerCorrect is awarded per correct answer.
	DefaultXPPerCorrect = 20

	// DefaultPassingScore is the display-only pass mark in percent.
	DefaultPassingScore = 70
)

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION
// ══════════════════════════════════════════════════════════════════════════════

// Question is a multiple-choice question. Immutable after construction.
type Question struct {
	text    string
	options []string
	correct int
}

// NewQuestion creates a question. correct is a 0-based option index.
func NewQuestion(text string, options []string, correct int) (Question, error) {
	if strings.TrimSpace(text) == "" {
		return Question{}, shared.NewDomainError("quiz", "NewQuestion", shared.ErrEmptyValue, "question text cannot be empty")
	}
	if len(options) < 2 {
		return Question{}, shared.NewDomainError("quiz", "NewQuestion", shared.ErrInvalidInput, "question needs at least two options")
	}
	if correct < 0 || correct >= len(options) {
		return Question{}, shared.NewDomainError("quiz", "NewQuestion", shared.ErrInvalidInput,
			fmt.Sprintf("correct index %d out of range", correct))
	}
	return Question{
		text:    text,
		options: append([]string(nil), options...),
		correct: correct,
	}, nil
}

// MustQuestion is NewQuestion for static catalogs.
func MustQuestion(text string, options []string, correct int) Question {
	q, err := NewQuestion(text, options, correct)
	if err != nil {
		panic(err)
	}
	return q
}

// Text returns the question text.
func (q Question) Text() string { return q.text }

// Options returns a copy of the answer options.
func (q Question) Options() []string { return append([]string(nil), q.options...) }

// CorrectIndex returns the 0-based index of the correct option.
func (q Question) CorrectIndex() int { return q.correct }

// IsCorrect reports whether answer selects the correct option.
func (q Question) IsCorrect(answer int) bool {
	return answer == q.correct
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ
// ══════════════════════════════════════════════════════════════════════════════

// Quiz is an ordered set of questions for one skill.
type Quiz struct {
	ID           string
	Skill        string
	Questions    []Question
	PassingScore int
}

// Len returns the number of questions.
func (q *Quiz) Len() int {
	return len(q.Questions)
}

// Catalog maps skill names to quizzes, preserving insertion order.
type Catalog struct {
	quizzes []*Quiz
}

// NewCatalog builds a catalog. One quiz per skill.
func NewCatalog(quizzes ...*Quiz) (*Catalog, error) {
	c := &Catalog{}
	for _, q := range quizzes {
		if _, err := c.Find(q.Skill); err == nil {
			return nil, shared.NewDomainError("quiz", "NewCatalog", shared.ErrAlreadyExists,
				fmt.Sprintf("duplicate quiz for skill %q", q.Skill))
		}
		c.quizzes = append(c.quizzes, q)
	}
	return c, nil
}

// DefaultCatalog returns the built-in quizzes.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		&Quiz{
			ID:    "java-basics",
			Skill: "Java Basics",
			Questions: []Question{
				MustQuestion("What is the size of int in Java?",
					[]string{"2 bytes", "4 bytes", "8 bytes"}, 1),
				MustQuestion("Which loop checks the condition after executing once?",
					[]string{"for", "while", "do-while"}, 2),
			},
			PassingScore: DefaultPassingScore,
		},
		&Quiz{
			ID:    "oop",
			Skill: "OOP",
			Questions: []Question{
				MustQuestion("What is inheritance?",
					[]string{
						"Copying code from one class to another",
						"A class deriving properties from another",
						"Unrelated class sharing names",
					}, 1),
				MustQuestion("Which keyword is used to inherit a class in Java?",
					[]string{"inherits", "extends", "implements"}, 1),
			},
			PassingScore: DefaultPassingScore,
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Find returns the quiz for a skill name, ignoring case.
func (c *Catalog) Find(skill string) (*Quiz, error) {
	skill = strings.TrimSpace(skill)
	for _, q := range c.quizzes {
		if strings.EqualFold(q.Skill, skill) || strings.EqualFold(q.ID, skill) {
			return q, nil
		}
	}
	return nil, shared.ErrQuizNotFound
}

// All returns the quizzes in insertion order.
func (c *Catalog) All() []*Quiz {
	return append([]*Quiz(nil), c.quizzes...)
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADING
// ══════════════════════════════════════════════════════════════════════════════

// Outcome is the grade of one question.
type Outcome struct {
	Answer   int
	Answered bool
	Correct  bool
}

// Result is the grade of a whole quiz.
type Result struct {
	QuizID       string
	Skill        string
	Outcomes     []Outcome
	Score        int
	Total        int
	Answered     int
	EarnedXP     int
	Percent      int
	PassingScore int
	Passed       bool
}

// Grader scores quizzes.
type Grader struct {
	xpPerCorrect int
}

// NewGrader creates a Grader. Non-positive xpPerCorrect falls back to the
// default.
func NewGrader(xpPerCorrect int) Grader {
	if xpPerCorrect <= 0 {
		xpPerCorrect = DefaultXPPerCorrect
	}
	return Grader{xpPerCorrect: xpPerCorrect}
}

// XPPerCorrect returns the XP paid per correct answer.
func (g Grader) XPPerCorrect() int { return g.xpPerCorrect }

// Grade scores answers against q. answers[i] belongs to question i; missing
// entries count as Skipped and extra entries are ignored.
func (g Grader) Grade(q *Quiz, answers []int) Result {
	res := Result{
		QuizID:       q.ID,
		Skill:        q.Skill,
		Total:        len(q.Questions),
		PassingScore: q.PassingScore,
		Outcomes:     make([]Outcome, len(q.Questions)),
	}

	for i, question := range q.Questions {
		answer := Skipped
		if i < len(answers) {
			answer = answers[i]
		}

		o := Outcome{Answer: answer, Answered: answer != Skipped}
		o.Correct = o.Answered && question.IsCorrect(answer)
		if o.Answered {
			res.Answered++
		}
		if o.Correct {
			res.Score++
		}
		res.Outcomes[i] = o
	}

	res.EarnedXP = res.Score * g.xpPerCorrect
	if res.Total > 0 {
		res.Percent = res.Score * 100 / res.Total
		res.Passed = res.Percent >= q.PassingScore
	}
	return res
}
