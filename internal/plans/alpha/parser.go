// Package alpha builds workout plans from Alpha Progression CSV exports.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Session is one logged workout in an export.
type Session struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []Exercise
}

// Exercise is one exercise block of a session.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// WorkingSets returns the non-warmup sets.
func (e Exercise) WorkingSets() []Set {
	var sets []Set
	for _, s := range e.Sets {
		if !s.IsWarmup {
			sets = append(sets, s)
		}
	}
	return sets
}

// Set is a single logged set. Bodyweight exercises store the added load in
// WeightKg with IsBodyweightPlus set.
type Set struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              float64
	IsWarmup         bool
}

var (
	// "Push · Day 1";"2026-02-17 5:04 h";"1:12 hr"
	sessionLine = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Bench Press · Barbell · 6 reps[ · modifiers]"[;"WU1 · 22,5 kg · 10 reps<br>..."]
	exerciseLine = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;102,5;6;0
	setLine = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	warmupPart = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	headerLine = regexp.MustCompile(`^#;KG;REPS;RIR$`)
)

// parser accumulates sessions line by line.
type parser struct {
	sessions []Session
	session  *Session
	exercise *Exercise
}

func (p *parser) flushExercise() {
	if p.session != nil && p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parser) flushSession() {
	p.flushExercise()
	if p.session != nil {
		p.sessions = append(p.sessions, *p.session)
	}
	p.session = nil
}

// Parse reads an export. Sessions are separated by blank lines; unknown
// lines are ignored.
func Parse(r io.Reader) ([]Session, error) {
	scanner := bufio.NewScanner(r)
	p := &parser{}

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			p.flushSession()

		case headerLine.MatchString(line):
			// column header, nothing to keep

		case sessionLine.MatchString(line):
			m := sessionLine.FindStringSubmatch(line)
			p.flushSession()
			date, err := parseSessionDate(m[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			p.session = &Session{Name: m[1], Date: date, Duration: m[3]}

		case exerciseLine.MatchString(line):
			m := exerciseLine.FindStringSubmatch(line)
			if p.session == nil {
				return nil, fmt.Errorf("line %d: exercise outside a session: %q", lineNo, line)
			}
			p.flushExercise()
			num, _ := strconv.Atoi(m[1])
			reps, _ := strconv.Atoi(m[4])
			p.exercise = &Exercise{
				Number:     num,
				Name:       strings.TrimSpace(m[2]),
				Equipment:  strings.TrimSpace(m[3]),
				TargetReps: reps,
			}
			if m[6] != "" {
				p.exercise.Sets = append(p.exercise.Sets, parseWarmups(m[6])...)
			}

		case setLine.MatchString(line):
			m := setLine.FindStringSubmatch(line)
			if p.exercise == nil {
				return nil, fmt.Errorf("line %d: set outside an exercise: %q", lineNo, line)
			}
			num, _ := strconv.Atoi(m[1])
			weight, bw := parseWeight(m[2])
			reps, _ := strconv.Atoi(m[3])
			p.exercise.Sets = append(p.exercise.Sets, Set{
				Number:           num,
				WeightKg:         weight,
				IsBodyweightPlus: bw,
				Reps:             reps,
				RIR:              parseDecimalComma(m[4]),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	p.flushSession()
	return p.sessions, nil
}

// parseSessionDate accepts both "2026-02-19 4:54" and "2026-02-19 16:54".
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse session date %q", s)
}

// parseWarmups reads the "<br>"-separated warmup list of an exercise header.
func parseWarmups(s string) []Set {
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupPart.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, Set{
			Number:           num,
			WeightKg:         weight,
			IsBodyweightPlus: bw,
			Reps:             reps,
			IsWarmup:         true,
		})
	}
	return sets
}

// parseWeight reads "102,5" as 102.5 and "+35" as bodyweight plus 35.
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return parseDecimalComma(rest), true
	}
	return parseDecimalComma(s), false
}

func parseDecimalComma(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return f
}
