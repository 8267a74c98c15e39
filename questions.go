// Icebreaker question pools, bucketed by category.
//
// The default category "random" is intentionally absent from the category
// table: it (and any other unrecognized category) resolves to the small
// default pool below.

package main

import (
	"math/rand/v2"
	"sync"
)

const (
	defaultCategory = "random"

	// How many redraws pickRandom attempts before tolerating a duplicate.
	pickRetries = 10
)

var questionPools = map[string][]string{
	"personal": {
		"What's the weirdest thing you've done in public?",
		"What's an embarrassing thing you've done and never told anyone about?",
		"What's the most bizarre text you've ever received?",
		"What's the cringiest thing you've ever put up on social media?",
		"What do you feel the most guilty about?",
		"Who do you wish you could reconnect with?",
		"How much does your personality change when you're around different people?",
		"What stresses you out the most?",
		"When do you feel the most alone?",
		"Have you ever been in love?",
		"Do you believe in love at first sight?",
		"What's the biggest lesson your last relationship taught you?",
	},
	"work": {
		"What's the nicest thing someone has done for you at work?",
		"If someone wrote a book about your work life, what would it be called?",
		"What's one thing you would change about your work environment?",
		"What was the last turning point in your career?",
		"What thing keeps you going on hard work days?",
		"What's your biggest work achievement?",
	},
	"food": {
		"What's your favorite comfort food?",
		"If you could only eat one condiment for the rest of your life, which would you choose?",
		"What's the spiciest food you've ever eaten?",
		"What's a food combination that you love but others find strange?",
		"If you had to eat an entire barrel of one single thing, what would you choose?",
		"What's the most unusual food you've ever tried?",
	},
	"hobbies": {
		"What hobby would you like to get into if time and money weren't issues?",
		"Have you ever had a crush on a cartoon character?",
		"Did you build forts when you were a kid? What did they look like?",
		"If you got to design a new instrument, what would you create?",
		"What's your favorite way to exercise?",
		"If you were to write a book, what would it be about?",
	},
	"travel": {
		"Where do you want to travel the most?",
		"What's the luckiest thing that's ever happened to you while traveling?",
		"If you had to live in another time period, what would you choose?",
		"If you could only visit beaches or mountains for the rest of your life, which would you choose?",
		"What's your favorite form of transportation?",
		"What's the best museum you've ever been to?",
	},
	"deep": {
		"What's something you consider unforgivable?",
		"What's the most loved you've ever felt?",
		"What do you think happens when we die?",
		"When's the last time you felt inspired to create something?",
		"What does friendship mean to you?",
		"Do you believe in soulmates?",
	},
}

var defaultQuestions = []string{
	"What's the weirdest thing you've done in public?",
	"What's your most embarrassing moment?",
	"Have you ever been in love?",
	"If you could have any superpower, what would it be?",
}

// QuestionBank selects questions from the category pools. The random source
// is injectable so tests can fix the sequence; a nil source falls back to a
// PCG seeded from the global generator.
type QuestionBank struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newQuestionBank(rng *rand.Rand) *QuestionBank {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &QuestionBank{rng: rng}
}

func (qb *QuestionBank) questionsFor(category string) []string {
	if pool, ok := questionPools[category]; ok {
		return pool
	}
	return defaultQuestions
}

func (qb *QuestionBank) validCategory(category string) bool {
	_, ok := questionPools[category]
	return ok
}

// pickRandom draws uniformly from the category's pool, redrawing up to
// pickRetries times to avoid anything in excluding. Once the retry budget is
// spent the last draw is returned even if it is a duplicate, so a nearly
// exhausted pool never fails.
func (qb *QuestionBank) pickRandom(category string, excluding map[string]struct{}) string {
	pool := qb.questionsFor(category)

	qb.mu.Lock()
	defer qb.mu.Unlock()

	question := pool[qb.rng.IntN(len(pool))]
	for attempts := 0; attempts < pickRetries; attempts++ {
		if _, used := excluding[question]; !used {
			break
		}
		question = pool[qb.rng.IntN(len(pool))]
	}

	return question
}
