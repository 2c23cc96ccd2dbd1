package student

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/roster/models"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
)

type InMemoryStudentStoreSuite struct {
	suite.Suite
	store *InMemoryStudentStore
}

func (s *InMemoryStudentStoreSuite) SetupTest() {
	s.store = New()
}

func (s *InMemoryStudentStoreSuite) newStudent(studentNo string) *models.Student {
	student, err := models.NewStudent(id.StudentID(uuid.New()), "Ada Lovelace", studentNo, "ada@example.edu", time.Now().UTC())
	require.NoError(s.T(), err)
	return student
}

func (s *InMemoryStudentStoreSuite) TestCreateAndFind() {
	student := s.newStudent("S-1001")
	require.NoError(s.T(), s.store.Create(context.Background(), student))

	found, err := s.store.FindByID(context.Background(), student.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), student, found)
}

func (s *InMemoryStudentStoreSuite) TestFindNotFound() {
	_, err := s.store.FindByID(context.Background(), id.StudentID(uuid.New()))
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *InMemoryStudentStoreSuite) TestDuplicateStudentNo() {
	require.NoError(s.T(), s.store.Create(context.Background(), s.newStudent("S-1001")))
	err := s.store.Create(context.Background(), s.newStudent("S-1001"))
	assert.ErrorIs(s.T(), err, sentinel.ErrConflict)
}

func (s *InMemoryStudentStoreSuite) TestFindByIDs() {
	first := s.newStudent("S-1001")
	second := s.newStudent("S-1002")
	require.NoError(s.T(), s.store.Create(context.Background(), first))
	require.NoError(s.T(), s.store.Create(context.Background(), second))

	found, err := s.store.FindByIDs(context.Background(), []id.StudentID{first.ID, id.StudentID(uuid.New())})
	require.NoError(s.T(), err)
	require.Len(s.T(), found, 1)
	assert.Equal(s.T(), first.ID, found[first.ID].ID)
}

func TestInMemoryStudentStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStudentStoreSuite))
}
