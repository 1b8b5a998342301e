package access

import (
	"slices"

	"github.com/google/uuid"

	"github.com/eduhub/course-service/internal/models"
)

// Relation is a relationship between a principal and a course that can grant access.
type Relation int

const (
	// Owner is the instructor of the course.
	Owner Relation = 1 << iota
	// Member is a student enrolled in the course.
	Member
)

func (r Relation) has(other Relation) bool {
	return r&other != 0
}

// CanAccess is the single predicate behind every action family. Admins always
// pass; instructors pass on Owner when they own the resource; students pass on
// Member when they are enrolled.
func CanAccess(p *Principal, ownerID uuid.UUID, enrolled []uuid.UUID, required Relation) bool {
	if p == nil {
		return false
	}
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleInstructor:
		return required.has(Owner) && ownerID == p.ID
	case models.RoleStudent:
		return required.has(Member) && slices.Contains(enrolled, p.ID)
	default:
		return false
	}
}

func canAccessCourse(p *Principal, c *models.Course, required Relation) bool {
	return CanAccess(p, c.InstructorID, c.EnrolledStudents, required)
}
