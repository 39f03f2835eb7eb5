package attendance

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"classroll/internal/apperr"
	"classroll/internal/gateway"
	"classroll/internal/model"
)

// DefaultHistoryCap is used when the service is built with a zero cap.
const DefaultHistoryCap = 50

// Backend is the subset of the gateway the service depends on.
type Backend interface {
	RegisterStudent(ctx context.Context, in gateway.RegisterRequest) (*gateway.RegisterResult, error)
	ListStudents(ctx context.Context) ([]model.StudentRecord, error)
	ProcessAttendance(ctx context.Context, in gateway.AttendanceRequest) (*gateway.AttendanceResult, error)
}

// Source tells where a student list came from.
type Source string

const (
	SourceServer Source = "server"
	SourceCache  Source = "cache"
)

// Processed is the outcome of a successful attendance run.
type Processed struct {
	Payload []byte
	Record  model.AttendanceRecord
}

// Service decides between cache and backend and writes results back.
type Service struct {
	repo       *Repository
	backend    Backend
	historyCap int
	now        func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, backend Backend, historyCap int) *Service {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &Service{repo: repo, backend: backend, historyCap: historyCap, now: time.Now}
}

// GetStudentsCached reads the cache only. Storage failures yield an empty list.
func (s *Service) GetStudentsCached(ctx context.Context, classroomFilter string) []model.StudentRecord {
	list, err := s.repo.Students(ctx)
	if err != nil {
		log.Printf("attendance: read cached students: %v", err)
		return []model.StudentRecord{}
	}
	return filterStudents(list, classroomFilter)
}

// GetStudentsFromServer asks the roster endpoint and ignores the cache.
func (s *Service) GetStudentsFromServer(ctx context.Context) ([]model.StudentRecord, error) {
	return s.backend.ListStudents(ctx)
}

// GetStudents prefers the server and falls back to the cache when the
// network is unavailable. Server records carry no classroom, so a filter
// only applies to cached results.
func (s *Service) GetStudents(ctx context.Context, classroomFilter string) ([]model.StudentRecord, Source, error) {
	list, err := s.GetStudentsFromServer(ctx)
	if err == nil {
		return list, SourceServer, nil
	}
	if apperr.KindOf(err) != apperr.KindNetwork {
		return nil, SourceServer, err
	}
	log.Printf("attendance: roster unavailable, using cache: %v", err)
	return s.GetStudentsCached(ctx, classroomFilter), SourceCache, nil
}

// RegisterStudent registers remotely and then caches the new record.
func (s *Service) RegisterStudent(ctx context.Context, in gateway.RegisterRequest) (*gateway.RegisterResult, error) {
	res, err := s.backend.RegisterStudent(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.PrependStudent(ctx, res.Student); err != nil {
		log.Printf("attendance: cache student %s: %v", res.Student.RollNumber, err)
	}
	return res, nil
}

// ProcessAttendance submits photos and appends a summary to the history.
func (s *Service) ProcessAttendance(ctx context.Context, in gateway.AttendanceRequest) (*Processed, error) {
	res, err := s.backend.ProcessAttendance(ctx, in)
	if err != nil {
		return nil, err
	}

	rec := model.AttendanceRecord{
		ID:              uuid.NewString(),
		ClassroomLabel:  res.Classroom.Label(),
		Timestamp:       s.now().UTC(),
		PhotoReferences: make([]string, 0, len(res.Photos)),
		Results:         []model.StudentResult{},
	}
	for _, p := range res.Photos {
		rec.PhotoReferences = append(rec.PhotoReferences, p.Path)
	}
	if res.Present != nil && res.Absent != nil {
		rec.PresentCount = *res.Present
		rec.AbsentCount = *res.Absent
		rec.TotalCount = rec.PresentCount + rec.AbsentCount
	} else {
		rec.TotalCount = len(s.GetStudentsCached(ctx, rec.ClassroomLabel))
		rec.Estimated = true
	}

	if err := s.repo.PrependAttendance(ctx, rec, s.historyCap); err != nil {
		log.Printf("attendance: cache record for %s: %v", rec.ClassroomLabel, err)
	}
	return &Processed{Payload: res.Payload, Record: rec}, nil
}

// History returns cached attendance records, optionally for one classroom.
func (s *Service) History(ctx context.Context, classroomFilter string) []model.AttendanceRecord {
	list, err := s.repo.History(ctx)
	if err != nil {
		log.Printf("attendance: read history: %v", err)
		return []model.AttendanceRecord{}
	}
	out := make([]model.AttendanceRecord, 0, len(list))
	for _, rec := range list {
		if classroomFilter == "" || strings.EqualFold(rec.ClassroomLabel, classroomFilter) {
			out = append(out, rec)
		}
	}
	return out
}

// ClearCache drops cached students and history. The session is untouched.
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return apperr.Storage("Could not clear local cache", err)
	}
	return nil
}

func filterStudents(list []model.StudentRecord, classroomFilter string) []model.StudentRecord {
	out := make([]model.StudentRecord, 0, len(list))
	for _, st := range list {
		if classroomFilter == "" || strings.EqualFold(st.ClassroomLabel, classroomFilter) {
			out = append(out, st)
		}
	}
	return out
}
