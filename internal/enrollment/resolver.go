// Package enrollment decides whether a student belongs to a course, either by
// an explicit enrollment row or by the level-prefix auto-enrollment heuristic.
package enrollment

import (
	"context"
	"fmt"
	"unicode"

	"go.uber.org/zap"
)

// Store is the persistence surface the resolver needs.
type Store interface {
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	Enroll(ctx context.Context, studentID, courseID string, auto bool) error
	StudentLevel(ctx context.Context, studentID string) (string, error)
	CourseCode(ctx context.Context, courseID string) (string, error)
}

// Result describes how a membership was established.
type Result struct {
	Enrolled     bool
	AutoEnrolled bool
}

// Resolver applies the enrollment rules.
type Resolver struct {
	store Store
	log   *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(store Store, log *zap.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Resolve reports whether the student belongs to the course. An explicit row
// wins. Otherwise the first rune of the student's level is compared with the
// first digit found in the course code ("CS301" matches level "300"); on a
// match an auto-enrollment row is created. Course codes without a digit never
// auto-match.
func (r *Resolver) Resolve(ctx context.Context, studentID, courseID string) (Result, error) {
	enrolled, err := r.store.IsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return Result{}, fmt.Errorf("enrollment lookup: %w", err)
	}
	if enrolled {
		return Result{Enrolled: true}, nil
	}

	level, err := r.store.StudentLevel(ctx, studentID)
	if err != nil {
		return Result{}, fmt.Errorf("student level lookup: %w", err)
	}
	code, err := r.store.CourseCode(ctx, courseID)
	if err != nil {
		return Result{}, fmt.Errorf("course code lookup: %w", err)
	}

	if !levelMatches(level, code) {
		return Result{}, nil
	}

	if err := r.store.Enroll(ctx, studentID, courseID, true); err != nil {
		return Result{}, fmt.Errorf("auto-enroll: %w", err)
	}
	r.log.Info("auto-enrolled student",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.String("level", level),
		zap.String("course_code", code))
	return Result{Enrolled: true, AutoEnrolled: true}, nil
}

func levelMatches(level, courseCode string) bool {
	if level == "" {
		return false
	}
	levelDigit := rune(level[0])
	for _, r := range courseCode {
		if unicode.IsDigit(r) {
			return r == levelDigit
		}
	}
	return false
}
