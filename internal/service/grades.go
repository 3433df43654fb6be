package service

import (
	"context"
)

func (s Service) getGrades(ctx context.Context, userID, source string) (Response, error) {
	grades, err := s.grades.Get(ctx, userID, source)
	if err != nil {
		s.tel.ReportBroken(report_service_grades, err, source)
		return Response{}, err
	}
	return Response{Success: true, GradesCount: ptr(len(grades)), Grades: grades}, nil
}

func (s Service) getAllGrades(ctx context.Context, userID string) (Response, error) {
	grades, err := s.grades.GetAll(ctx, userID)
	if err != nil {
		s.tel.ReportBroken(report_service_grades, err)
		return Response{}, err
	}
	return Response{Success: true, GradesCount: ptr(len(grades)), Grades: grades}, nil
}
