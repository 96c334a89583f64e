package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides a fresh fixture directory and context for
// every test of a suite.
type IntegrationTestSuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	fixtures Fixtures
}

// SetupTest writes the source fixtures into a new temp directory
func (s *IntegrationTestSuite) SetupTest() {
	IntegrationTest(s.T())
	ClearDatabaseEnv(s.T())
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 2*time.Minute)
	s.fixtures = WriteFixtures(s.T(), s.T().TempDir())
}

// TearDownTest cancels the test context
func (s *IntegrationTestSuite) TearDownTest() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Context returns the test context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// Fixtures returns the fixture files of the current test
func (s *IntegrationTestSuite) Fixtures() Fixtures {
	return s.fixtures
}
