package services

import (
	"context"
	"fmt"
	"strings"

	"kaskelas/internal/core"
	"kaskelas/internal/log"
	"kaskelas/internal/store"
)

// StudentInput is the admin form for a student.
type StudentInput struct {
	Name   string
	NIM    string
	Cohort string
}

func (in StudentInput) student() core.Student {
	cohort := strings.TrimSpace(in.Cohort)
	if cohort == "" {
		cohort = core.DefaultCohort
	}
	return core.Student{
		Name:   strings.TrimSpace(in.Name),
		NIM:    strings.TrimSpace(in.NIM),
		Cohort: cohort,
	}
}

// StudentService manages the student roster.
type StudentService struct {
	store  store.Store
	logger *log.Logger
}

func NewStudentService(s store.Store, logger *log.Logger) *StudentService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &StudentService{store: s, logger: logger.WithComponent(log.ComponentStudent)}
}

// Create validates in and adds the student. A NIM already in use is reported
// as a validation error before the store's unique constraint is reached.
func (s *StudentService) Create(ctx context.Context, in StudentInput) (core.Student, error) {
	st := in.student()
	if err := st.Validate(); err != nil {
		return core.Student{}, err
	}
	if err := s.checkNIM(ctx, st.NIM, ""); err != nil {
		return core.Student{}, err
	}

	created, err := s.store.CreateStudent(ctx, st)
	if err != nil {
		return core.Student{}, err
	}
	s.logger.InfoContext(ctx, "Student created",
		log.FieldStudentID, created.ID,
		log.FieldOperation, log.OpCreate)
	return created, nil
}

// Update replaces name, NIM and cohort of an existing student.
func (s *StudentService) Update(ctx context.Context, id string, in StudentInput) (core.Student, error) {
	current, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return core.Student{}, err
	}

	st := in.student()
	st.ID = current.ID
	st.CreatedAt = current.CreatedAt
	if err := st.Validate(); err != nil {
		return core.Student{}, err
	}
	if err := s.checkNIM(ctx, st.NIM, id); err != nil {
		return core.Student{}, err
	}

	updated, err := s.store.UpdateStudent(ctx, st)
	if err != nil {
		return core.Student{}, err
	}
	s.logger.InfoContext(ctx, "Student updated",
		log.FieldStudentID, id,
		log.FieldOperation, log.OpUpdate)
	return updated, nil
}

// Delete removes the student's payments and then the student. When the
// payment deletion fails the student is left untouched.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetStudent(ctx, id); err != nil {
		return err
	}

	n, err := s.store.DeletePaymentsByStudent(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete student payments",
			log.FieldStudentID, id,
			log.FieldError, err)
		return fmt.Errorf("delete payments of student %s: %w", id, err)
	}

	if err := s.store.DeleteStudent(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete student",
			log.FieldStudentID, id,
			log.FieldError, err)
		return err
	}
	s.logger.InfoContext(ctx, "Student deleted",
		log.FieldStudentID, id,
		"payments_deleted", n,
		log.FieldOperation, log.OpDelete)
	return nil
}

func (s *StudentService) checkNIM(ctx context.Context, nim, exceptID string) error {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return fmt.Errorf("list students: %w", err)
	}
	for _, other := range students {
		if other.ID != exceptID && other.NIM == nim {
			return core.ErrDuplicateNIM
		}
	}
	return nil
}
