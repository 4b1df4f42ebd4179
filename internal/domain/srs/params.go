package srs

import "github.com/phrazzld/vocab-review/internal/domain"

// Params holds the constants of the review scheduling policy.
// There is exactly one policy; DefaultParams is the only source of values.
type Params struct {
	// Mastery level bounds and per-review step
	MinLevel  int
	MaxLevel  int
	LevelStep int

	// Retention score bounds and adjustments
	MinRetention       float64
	MaxRetention       float64
	CorrectRetention   float64
	IncorrectRetention float64
	RetentionDecimals  int

	// Interval bands by post-review mastery level
	LearningLevel        int
	MasteredLevel        int
	BaseIntervalDays     int
	LearningIntervalDays int
	MasteredIntervalDays int
	LapseIntervalDays    int

	// State assumed for an item that has never been reviewed
	InitialLevel     int
	InitialRetention float64
}

// DefaultParams returns the scheduling policy.
func DefaultParams() Params {
	return Params{
		MinLevel:  domain.MinMasteryLevel,
		MaxLevel:  domain.MaxMasteryLevel,
		LevelStep: 1,

		MinRetention:       domain.MinRetentionScore,
		MaxRetention:       domain.MaxRetentionScore,
		CorrectRetention:   0.1,
		IncorrectRetention: -0.2,
		RetentionDecimals:  4,

		LearningLevel:        2,
		MasteredLevel:        4,
		BaseIntervalDays:     1,
		LearningIntervalDays: 7,
		MasteredIntervalDays: 30,
		LapseIntervalDays:    1,

		InitialLevel:     domain.InitialMasteryLevel,
		InitialRetention: domain.InitialRetentionScore,
	}
}
