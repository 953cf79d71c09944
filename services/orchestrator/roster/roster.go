// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package roster holds the catalog of students and topics sessions can
// reference. The catalog is read-only at runtime; it is loaded once at
// startup from a YAML file, falling back to a small built-in set.
package roster

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownStudent = errors.New("unknown student")
	ErrUnknownTopic   = errors.New("unknown topic")
)

// Topic is one teachable subject area a student can be tutored on.
type Topic struct {
	Id          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	SubjectName string `yaml:"subject_name" json:"subject_name"`
}

// Student is one roster entry. Personality feeds the simulated student's
// behavioral profile; it is never shown to the tutor.
type Student struct {
	Id          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	GradeLevel  string  `yaml:"grade_level" json:"grade_level"`
	Personality string  `yaml:"personality" json:"personality,omitempty"`
	Topics      []Topic `yaml:"topics" json:"topics"`
}

// Roster is the full catalog, indexed for lookup at load time.
type Roster struct {
	students []Student
	byId     map[string]*Student
}

type rosterFile struct {
	Students []Student `yaml:"students"`
}

// Load reads a roster from a YAML file.
func Load(path string) (*Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file %s: %w", path, err)
	}
	var file rosterFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse roster file %s: %w", path, err)
	}
	return build(file.Students)
}

// Default returns the built-in roster used when no roster file is
// configured. Small but varied enough to exercise every tutoring branch.
func Default() *Roster {
	r, err := build([]Student{
		{
			Id: "student_mia", Name: "Mia", GradeLevel: "6",
			Personality: "eager but easily flustered; gives up quickly when stuck",
			Topics: []Topic{
				{Id: "topic_fractions", Name: "Adding Fractions", SubjectName: "Math"},
				{Id: "topic_photosynthesis", Name: "Photosynthesis", SubjectName: "Biology"},
			},
		},
		{
			Id: "student_leo", Name: "Leo", GradeLevel: "8",
			Personality: "confident and talkative; explains his reasoning unprompted",
			Topics: []Topic{
				{Id: "topic_linear_eq", Name: "Linear Equations", SubjectName: "Math"},
				{Id: "topic_newton", Name: "Newton's Laws", SubjectName: "Physics"},
			},
		},
		{
			Id: "student_ana", Name: "Ana", GradeLevel: "7",
			Personality: "quiet and hesitant; hedges most answers with maybe",
			Topics: []Topic{
				{Id: "topic_percentages", Name: "Percentages", SubjectName: "Math"},
			},
		},
	})
	if err != nil {
		// Built-in data; only reachable through a programming error.
		panic(err)
	}
	return r
}

func build(students []Student) (*Roster, error) {
	r := &Roster{
		students: students,
		byId:     make(map[string]*Student, len(students)),
	}
	for i := range r.students {
		s := &r.students[i]
		if s.Id == "" || s.Name == "" {
			return nil, fmt.Errorf("roster student %d is missing id or name", i)
		}
		if _, dup := r.byId[s.Id]; dup {
			return nil, fmt.Errorf("duplicate student id %q in roster", s.Id)
		}
		seen := make(map[string]bool, len(s.Topics))
		for _, topic := range s.Topics {
			if topic.Id == "" || topic.Name == "" {
				return nil, fmt.Errorf("student %q has a topic missing id or name", s.Id)
			}
			if seen[topic.Id] {
				return nil, fmt.Errorf("duplicate topic id %q for student %q", topic.Id, s.Id)
			}
			seen[topic.Id] = true
		}
		r.byId[s.Id] = s
	}
	return r, nil
}

// Students returns the full student list.
func (r *Roster) Students() []Student {
	return r.students
}

// Student looks up one student by id.
func (r *Roster) Student(studentId string) (*Student, error) {
	s, ok := r.byId[studentId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStudent, studentId)
	}
	return s, nil
}

// Topic looks up a topic within a student's catalog. Both the student
// and the topic must exist.
func (r *Roster) Topic(studentId, topicId string) (*Student, *Topic, error) {
	s, err := r.Student(studentId)
	if err != nil {
		return nil, nil, err
	}
	for i := range s.Topics {
		if s.Topics[i].Id == topicId {
			return s, &s.Topics[i], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s for student %s", ErrUnknownTopic, topicId, studentId)
}
