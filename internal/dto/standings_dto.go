package dto

// MemberStanding is one row in the course standings board.
type MemberStanding struct {
	CourseMemberID uint    `json:"course_member_id"`
	UserID         uint    `json:"user_id"`
	UserName       string  `json:"user_name"`
	Rank           int     `json:"rank"`
	AchievedScore  int     `json:"achieved_score"`
	BonusPoints    int     `json:"bonus_points"`
	Grade          float64 `json:"grade"`
	Present        int64   `json:"present"`
	Late           int64   `json:"late"`
	Excused        int64   `json:"excused"`
	Absent         int64   `json:"absent"`
}

// StandingsResponse is the serialized standings board for a course.
type StandingsResponse struct {
	CourseID   uint             `json:"course_id"`
	TotalScore int              `json:"total_score"`
	Members    []MemberStanding `json:"members"`
}
