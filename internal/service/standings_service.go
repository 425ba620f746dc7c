package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classloop/classloop-api/internal/dto"
	"github.com/classloop/classloop-api/internal/models"
	"github.com/classloop/classloop-api/internal/repository"
)

// StandingsCache is the invalidation hook used by the services that mutate
// scores or attendance.
type StandingsCache interface {
	Invalidate(ctx context.Context, courseID uint)
}

// StandingsService produces the per-course standings board.
type StandingsService interface {
	StandingsCache
	Get(ctx context.Context, courseID, actorID uint) (dto.StandingsResponse, error)
}

type standingsService struct {
	members     repository.CourseMemberRepository
	attendances repository.AttendanceRepository
	courses     repository.CourseRepository
	membership  MembershipService
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewStandingsService builds the standings aggregator. cache may be nil to
// disable caching.
func NewStandingsService(members repository.CourseMemberRepository, attendances repository.AttendanceRepository, courses repository.CourseRepository, membership MembershipService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StandingsService {
	return &standingsService{
		members:     members,
		attendances: attendances,
		courses:     courses,
		membership:  membership,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "standings_service").Logger(),
	}
}

func standingsCacheKey(courseID uint) string {
	return fmt.Sprintf("standings:course:%d", courseID)
}

func (s *standingsService) Get(ctx context.Context, courseID, actorID uint) (dto.StandingsResponse, error) {
	role, err := s.membership.ResolveRole(ctx, courseID, actorID)
	if err != nil {
		return dto.StandingsResponse{}, err
	}
	if !role.IsEnrolled() {
		return dto.StandingsResponse{}, ErrForbidden
	}

	key := standingsCacheKey(courseID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var response dto.StandingsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("course_id", courseID).Msg("standings cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read standings cache")
		}
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StandingsResponse{}, ErrCourseNotFound
		}
		return dto.StandingsResponse{}, err
	}

	members, err := s.members.ListByScore(ctx, courseID)
	if err != nil {
		return dto.StandingsResponse{}, err
	}

	counts, err := s.attendances.CountByStatus(ctx, courseID)
	if err != nil {
		return dto.StandingsResponse{}, err
	}

	response := buildStandings(course, members, counts)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store standings cache")
			}
		}
	}

	return response, nil
}

// Invalidate drops the cached board; the next read rebuilds it.
func (s *standingsService) Invalidate(ctx context.Context, courseID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, standingsCacheKey(courseID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate standings cache")
	}
}

func buildStandings(course models.Course, members []models.CourseMember, counts []repository.AttendanceStatusCount) dto.StandingsResponse {
	type tally struct {
		present, late, excused, absent int64
	}
	tallies := make(map[uint]tally, len(members))
	for _, count := range counts {
		t := tallies[count.CourseMemberID]
		switch count.Status {
		case models.AttendancePresent:
			t.present += count.Count
		case models.AttendanceLate:
			t.late += count.Count
		case models.AttendanceExcused:
			t.excused += count.Count
		case models.AttendanceAbsent:
			t.absent += count.Count
		}
		tallies[count.CourseMemberID] = t
	}

	standings := make([]dto.MemberStanding, 0, len(members))
	for idx, member := range members {
		t := tallies[member.ID]
		standings = append(standings, dto.MemberStanding{
			CourseMemberID: member.ID,
			UserID:         member.UserID,
			UserName:       member.User.Name,
			Rank:           idx + 1,
			AchievedScore:  member.AchievedScore,
			BonusPoints:    member.BonusPoints,
			Grade:          member.Grade(course.TotalScore),
			Present:        t.present,
			Late:           t.late,
			Excused:        t.excused,
			Absent:         t.absent,
		})
	}

	return dto.StandingsResponse{
		CourseID:   course.ID,
		TotalScore: course.TotalScore,
		Members:    standings,
	}
}
