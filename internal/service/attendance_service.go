package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

// Attendance errors.
var (
	ErrAttendanceNotFound = errors.New("attendance session not found")
	ErrCheckInNotStarted  = errors.New("attendance window has not started")
	ErrCheckInEnded       = errors.New("attendance window has ended")
	ErrAlreadyCheckedIn   = errors.New("member already checked in")
	ErrInvalidStatus      = errors.New("invalid attendance status")
)

// AttendanceService owns sessions and check-ins. A member checks in once per
// session; the admin override can set any status at any time, including an
// explicit absent row.
type AttendanceService interface {
	CreateSession(ctx context.Context, courseID, actorID uint, payload dto.SessionCreateRequest) (dto.SessionResponse, error)
	ListSessions(ctx context.Context, courseID uint) ([]dto.SessionResponse, error)
	CheckIn(ctx context.Context, attendanceID, userID uint) (dto.CheckInResponse, error)
	SetStatus(ctx context.Context, attendanceID, memberID uint, status int, actorID uint) (dto.DetailResponse, error)
	Roster(ctx context.Context, attendanceID, actorID uint) ([]dto.RosterEntry, error)
}

type attendanceService struct {
	attendances repository.AttendanceRepository
	members     repository.CourseMemberRepository
	membership  MembershipService
	events      EventPublisher
	standings   StandingsCache
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(attendances repository.AttendanceRepository, members repository.CourseMemberRepository, membership MembershipService, events EventPublisher, standings StandingsCache, validate *validator.Validate, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		attendances: attendances,
		members:     members,
		membership:  membership,
		events:      events,
		standings:   standings,
		validator:   validate,
		logger:      logger.With().Str("component", "attendance_service").Logger(),
		now:         time.Now,
	}
}

func (s *attendanceService) CreateSession(ctx context.Context, courseID, actorID uint, payload dto.SessionCreateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	role, err := s.membership.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	if !role.CanManage() {
		return dto.SessionResponse{}, ErrForbidden
	}

	startAt, err := time.Parse(time.RFC3339, payload.StartAt)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	finishAt, err := time.Parse(time.RFC3339, payload.FinishAt)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	if !finishAt.After(startAt) {
		return dto.SessionResponse{}, errors.New("finish_at must be after start_at")
	}

	attendance := models.CourseAttendance{
		CourseID:  courseID,
		GroupID:   payload.GroupID,
		Title:     payload.Title,
		StartAt:   startAt,
		FinishAt:  finishAt,
		LateAfter: payload.LateAfter,
	}
	if err := s.attendances.CreateSession(ctx, &attendance); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Uint("course_id", courseID).Uint("attendance_id", attendance.ID).Msg("attendance session created")

	return dto.NewSessionResponse(attendance), nil
}

func (s *attendanceService) ListSessions(ctx context.Context, courseID uint) ([]dto.SessionResponse, error) {
	sessions, err := s.attendances.ListSessionsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return dto.NewSessionResponseSlice(sessions), nil
}

// CheckIn records the caller's attendance. The window is validated against
// the session clock: before start_at rejects, after finish_at rejects,
// inside the window the status is present unless the late threshold passed.
// Repeating a check-in returns the first recorded status without writing.
func (s *attendanceService) CheckIn(ctx context.Context, attendanceID, userID uint) (dto.CheckInResponse, error) {
	attendance, err := s.attendances.GetSessionByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckInResponse{}, ErrAttendanceNotFound
		}
		return dto.CheckInResponse{}, err
	}

	member, err := s.members.GetByCourseAndUser(ctx, attendance.CourseID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CheckInResponse{}, ErrMemberNotFound
		}
		return dto.CheckInResponse{}, err
	}
	if !member.IsActive() {
		return dto.CheckInResponse{}, ErrMemberNotFound
	}

	now := s.now()
	if now.Before(attendance.StartAt) {
		return dto.CheckInResponse{}, ErrCheckInNotStarted
	}
	if now.After(attendance.FinishAt) {
		return dto.CheckInResponse{}, ErrCheckInEnded
	}

	status := attendance.CheckInStatus(now)
	detail, created, err := s.attendances.RecordCheckIn(ctx, attendanceID, member.ID, status, now)
	if err != nil {
		return dto.CheckInResponse{}, err
	}
	if !created && detail.CheckedIn() {
		return dto.CheckInResponse{Status: detail.Status, TimeIn: detail.TimeIn}, ErrAlreadyCheckedIn
	}

	s.events.Publish(ctx, SubjectMemberCheckIn, map[string]interface{}{
		"attendance_id":    attendanceID,
		"course_member_id": member.ID,
		"status":           detail.Status,
	})
	s.standings.Invalidate(ctx, attendance.CourseID)
	s.logger.Info().Uint("attendance_id", attendanceID).Uint("member_id", member.ID).Int("status", detail.Status).Msg("member checked in")

	return dto.CheckInResponse{Status: detail.Status, TimeIn: detail.TimeIn}, nil
}

// SetStatus is the unconditional admin override; it performs no window
// validation.
func (s *attendanceService) SetStatus(ctx context.Context, attendanceID, memberID uint, status int, actorID uint) (dto.DetailResponse, error) {
	if !models.ValidAttendanceStatus(status) {
		return dto.DetailResponse{}, ErrInvalidStatus
	}

	attendance, err := s.attendances.GetSessionByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DetailResponse{}, ErrAttendanceNotFound
		}
		return dto.DetailResponse{}, err
	}

	role, err := s.membership.ResolveRole(ctx, attendance.CourseID, actorID)
	if err != nil {
		return dto.DetailResponse{}, err
	}
	if !role.CanManage() {
		return dto.DetailResponse{}, ErrForbidden
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DetailResponse{}, ErrMemberNotFound
		}
		return dto.DetailResponse{}, err
	}
	if member.CourseID != attendance.CourseID {
		return dto.DetailResponse{}, ErrMemberNotFound
	}

	detail, err := s.attendances.SetStatus(ctx, attendanceID, memberID, status)
	if err != nil {
		return dto.DetailResponse{}, err
	}

	s.standings.Invalidate(ctx, attendance.CourseID)
	s.logger.Info().Uint("attendance_id", attendanceID).Uint("member_id", memberID).Int("status", status).Msg("attendance status set")

	return dto.NewDetailResponse(detail), nil
}

// Roster lists every relevant member with their record for the session.
// Members without a row are reported unrecorded rather than absent.
func (s *attendanceService) Roster(ctx context.Context, attendanceID, actorID uint) ([]dto.RosterEntry, error) {
	attendance, err := s.attendances.GetSessionByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}

	role, err := s.membership.ResolveRole(ctx, attendance.CourseID, actorID)
	if err != nil {
		return nil, err
	}
	if !role.IsEnrolled() {
		return nil, ErrForbidden
	}

	filter := repository.CourseMemberFilter{Status: models.MemberStatusActive}
	if attendance.GroupID != nil {
		filter.GroupID = attendance.GroupID
	}
	members, _, err := s.members.List(ctx, attendance.CourseID, filter)
	if err != nil {
		return nil, err
	}

	details, err := s.attendances.ListDetails(ctx, attendanceID)
	if err != nil {
		return nil, err
	}

	byMember := make(map[uint]models.AttendanceDetail, len(details))
	for _, detail := range details {
		byMember[detail.CourseMemberID] = detail
	}

	entries := make([]dto.RosterEntry, 0, len(members))
	for _, member := range members {
		entry := dto.RosterEntry{
			CourseMemberID: member.ID,
			UserID:         member.UserID,
			UserName:       member.User.Name,
		}
		if detail, ok := byMember[member.ID]; ok {
			status := detail.Status
			entry.Recorded = true
			entry.Status = &status
			entry.TimeIn = detail.TimeIn
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CourseMemberID < entries[j].CourseMemberID })

	return entries, nil
}
